package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	merchantdomain "github.com/saldotech/saldo/internal/merchant/domain"
	txndomain "github.com/saldotech/saldo/internal/transaction/domain"
	uploaddomain "github.com/saldotech/saldo/internal/upload/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrTooManyRequests is raised by the submission rate limit.
var ErrTooManyRequests = errors.New("too_many_requests")

// RequestError fixes the status and client-facing message for a failure
// detected at the handler boundary.
type RequestError struct {
	Status  int
	Type    string
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

func badRequest(message string) error {
	return &RequestError{
		Status:  http.StatusBadRequest,
		Type:    "validation_error",
		Message: message,
	}
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status, errorPayload{
			Type:    reqErr.Type,
			Message: reqErr.Message,
		}
	}

	switch {
	case errors.Is(err, uploaddomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "Upload not found",
		}
	case errors.Is(err, txndomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "Transaction not found",
		}
	case errors.Is(err, merchantdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "Merchant not found",
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, merchantdomain.ErrUnknownCategory):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "Unknown category. Seed categories first or use an existing category name.",
		}
	case errors.Is(err, txndomain.ErrInvalidSortBy):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "invalid sort_by",
		}
	case errors.Is(err, txndomain.ErrInvalidSortOrder):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "invalid sort_order",
		}
	case errors.Is(err, txndomain.ErrInvalidDirection):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "invalid direction",
		}
	case errors.Is(err, uploaddomain.ErrQueueFull):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "upload queue is full, retry later",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog gives the request logger a low-cardinality view of
// the failure without rendering a response.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	return payload.Type, strconv.Itoa(status)
}
