package server

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	uploaddomain "github.com/saldotech/saldo/internal/upload/domain"
)

// SubmitUpload accepts one xlsx statement, persists the job and answers
// 202 before any parsing happens.
func (s *Server) SubmitUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, badRequest("Filename is required"))
		return
	}

	filename := strings.TrimSpace(file.Filename)
	if filename == "" {
		AbortWithError(c, badRequest("Filename is required"))
		return
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		AbortWithError(c, badRequest("Only .xlsx files are supported"))
		return
	}

	content, err := readFormFile(file)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if len(content) == 0 {
		AbortWithError(c, badRequest("Uploaded file is empty"))
		return
	}

	generateEmbeddings := true
	if flag, err := parseOptionalBool(c.Query("generate_embeddings")); err != nil {
		AbortWithError(c, badRequest("generate_embeddings must be true or false"))
		return
	} else if flag != nil {
		generateEmbeddings = *flag
	}

	resp, err := s.uploadSvc.Submit(c.Request.Context(), uploaddomain.SubmitRequest{
		Filename:           filename,
		Content:            content,
		GenerateEmbeddings: generateEmbeddings,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

func (s *Server) GetUploadStatus(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id == 0 {
		AbortWithError(c, uploaddomain.ErrNotFound)
		return
	}

	resp, err := s.uploadSvc.Status(c.Request.Context(), int64(id))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func readFormFile(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
