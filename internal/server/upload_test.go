package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/saldotech/saldo/internal/ratelimit"
	uploaddomain "github.com/saldotech/saldo/internal/upload/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitUploadAccepted(t *testing.T) {
	h := newServerHarness(t)

	body, contentType := statementForm(t, "statement.xlsx", []byte("PK\x03\x04workbook"))
	rec := h.request(t, http.MethodPost, "/api/uploads", body, contentType)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"upload_id":"41","filename":"statement.xlsx","status":"processing"}`, rec.Body.String())

	req := h.uploads.submitReq
	require.NotNil(t, req)
	assert.Equal(t, "statement.xlsx", req.Filename)
	assert.Equal(t, []byte("PK\x03\x04workbook"), req.Content)
	assert.True(t, req.GenerateEmbeddings, "embeddings default on when the flag is absent")
}

func TestSubmitUploadEmbeddingsOptOut(t *testing.T) {
	h := newServerHarness(t)

	body, contentType := statementForm(t, "statement.xlsx", []byte("rows"))
	rec := h.request(t, http.MethodPost, "/api/uploads?generate_embeddings=false", body, contentType)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, h.uploads.submitReq)
	assert.False(t, h.uploads.submitReq.GenerateEmbeddings)
}

func TestSubmitUploadEmbeddingsFlagMalformed(t *testing.T) {
	h := newServerHarness(t)

	body, contentType := statementForm(t, "statement.xlsx", []byte("rows"))
	rec := h.request(t, http.MethodPost, "/api/uploads?generate_embeddings=banana", body, contentType)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "generate_embeddings must be true or false", decodeError(t, rec).Message)
	assert.Nil(t, h.uploads.submitReq)
}

func TestSubmitUploadMissingFilePart(t *testing.T) {
	h := newServerHarness(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("note", "no file here"))
	require.NoError(t, w.Close())

	rec := h.request(t, http.MethodPost, "/api/uploads", &buf, w.FormDataContentType())

	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	assert.Equal(t, "Filename is required", payload.Message)
}

func TestSubmitUploadRejectsNonXLSX(t *testing.T) {
	h := newServerHarness(t)

	body, contentType := statementForm(t, "statement.csv", []byte("a,b,c"))
	rec := h.request(t, http.MethodPost, "/api/uploads", body, contentType)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only .xlsx files are supported", decodeError(t, rec).Message)
	assert.Nil(t, h.uploads.submitReq)
}

// Extension matching ignores case.
func TestSubmitUploadAcceptsUppercaseExtension(t *testing.T) {
	h := newServerHarness(t)

	body, contentType := statementForm(t, "STATEMENT.XLSX", []byte("rows"))
	rec := h.request(t, http.MethodPost, "/api/uploads", body, contentType)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, h.uploads.submitReq)
	assert.Equal(t, "STATEMENT.XLSX", h.uploads.submitReq.Filename)
}

func TestSubmitUploadEmptyFile(t *testing.T) {
	h := newServerHarness(t)

	body, contentType := statementForm(t, "statement.xlsx", nil)
	rec := h.request(t, http.MethodPost, "/api/uploads", body, contentType)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Uploaded file is empty", decodeError(t, rec).Message)
}

func TestSubmitUploadQueueFull(t *testing.T) {
	h := newServerHarness(t)
	h.uploads.submitErr = uploaddomain.ErrQueueFull

	body, contentType := statementForm(t, "statement.xlsx", []byte("rows"))
	rec := h.request(t, http.MethodPost, "/api/uploads", body, contentType)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "service_unavailable", payload.Type)
	assert.Equal(t, "upload queue is full, retry later", payload.Message)
}

func TestSubmitUploadRateLimited(t *testing.T) {
	h := newServerHarness(t)
	h.srv.uploadLimiter = ratelimit.NewTokenBucket(0.0001, 1)

	body, contentType := statementForm(t, "statement.xlsx", []byte("rows"))
	rec := h.request(t, http.MethodPost, "/api/uploads", body, contentType)
	require.Equal(t, http.StatusAccepted, rec.Code)

	body, contentType = statementForm(t, "statement.xlsx", []byte("rows"))
	rec = h.request(t, http.MethodPost, "/api/uploads", body, contentType)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	payload := decodeError(t, rec)
	assert.Equal(t, "rate_limited", payload.Type)
	assert.Equal(t, "too many requests", payload.Message)
}

func TestGetUploadStatus(t *testing.T) {
	h := newServerHarness(t)
	errMsg := "sheet has no transaction rows"
	h.uploads.statusResp = &uploaddomain.StatusResponse{
		UploadID:                  "41",
		Filename:                  "statement.xlsx",
		Status:                    "completed_with_errors",
		ProcessingPhase:           "done",
		ProgressPercent:           100,
		RowsTotal:                 120,
		RowsProcessed:             120,
		RowsSkippedNonTransaction: 6,
		RowsInvalid:               2,
		RowsDuplicate:             12,
		RowsInserted:              100,
		LLMUsedCount:              80,
		FallbackUsedCount:         20,
		EmbeddingsGenerated:       100,
		ErrorMessage:              &errMsg,
	}

	rec := h.request(t, http.MethodGet, "/api/uploads/41", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(41), h.uploads.statusID)

	var got uploaddomain.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, *h.uploads.statusResp, got)
}

func TestGetUploadStatusNotFound(t *testing.T) {
	h := newServerHarness(t)

	rec := h.request(t, http.MethodGet, "/api/uploads/999", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "not_found", payload.Type)
	assert.Equal(t, "Upload not found", payload.Message)
}

// A path id that does not parse identifies nothing; the service is never
// consulted.
func TestGetUploadStatusMalformedID(t *testing.T) {
	h := newServerHarness(t)

	rec := h.request(t, http.MethodGet, "/api/uploads/not-a-number", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Upload not found", decodeError(t, rec).Message)
	assert.Zero(t, h.uploads.statusID)
}
