package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	txndomain "github.com/saldotech/saldo/internal/transaction/domain"
	"github.com/saldotech/saldo/pkg/db/pagination"
)

func (s *Server) ListTransactions(c *gin.Context) {
	var query struct {
		pagination.Page
		UploadID         string `form:"upload_id"`
		DateFrom         string `form:"date_from"`
		DateTo           string `form:"date_to"`
		Direction        string `form:"direction"`
		Category         string `form:"category"`
		Categories       string `form:"categories"`
		Merchant         string `form:"merchant"`
		CurrencyOriginal string `form:"currency_original"`
		AmountGELMin     string `form:"amount_gel_min"`
		AmountGELMax     string `form:"amount_gel_max"`
		SortBy           string `form:"sort_by"`
		SortOrder        string `form:"sort_order"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, badRequest("invalid query"))
		return
	}

	uploadID, err := parseOptionalSnowflakeID(query.UploadID)
	if err != nil {
		AbortWithError(c, badRequest("invalid upload_id"))
		return
	}

	dateFrom, err := parseOptionalTime(query.DateFrom, false)
	if err != nil {
		AbortWithError(c, badRequest("invalid date_from"))
		return
	}
	dateTo, err := parseOptionalTime(query.DateTo, true)
	if err != nil {
		AbortWithError(c, badRequest("invalid date_to"))
		return
	}

	amountMin, err := parseOptionalDecimal(query.AmountGELMin)
	if err != nil {
		AbortWithError(c, badRequest("invalid amount_gel_min"))
		return
	}
	amountMax, err := parseOptionalDecimal(query.AmountGELMax)
	if err != nil {
		AbortWithError(c, badRequest("invalid amount_gel_max"))
		return
	}

	req := txndomain.ListRequest{
		Page:             query.Page,
		DateFrom:         dateFrom,
		DateTo:           dateTo,
		Direction:        query.Direction,
		Category:         query.Category,
		Categories:       query.Categories,
		Merchant:         query.Merchant,
		CurrencyOriginal: query.CurrencyOriginal,
		AmountGELMin:     amountMin,
		AmountGELMax:     amountMax,
		SortBy:           query.SortBy,
		SortOrder:        query.SortOrder,
	}
	if uploadID != nil {
		id := int64(*uploadID)
		req.UploadID = &id
	}

	resp, err := s.txnSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteTransaction(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id == 0 {
		AbortWithError(c, txndomain.ErrNotFound)
		return
	}

	if err := s.txnSvc.Delete(c.Request.Context(), int64(id)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
