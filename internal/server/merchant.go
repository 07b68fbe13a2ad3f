package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	merchantdomain "github.com/saldotech/saldo/internal/merchant/domain"
)

func (s *Server) ListMerchants(c *gin.Context) {
	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, badRequest("invalid limit"))
		return
	}

	items, err := s.merchantSvc.List(c.Request.Context(), query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

type updateMerchantRequest struct {
	Category string `json:"category"`
}

func (s *Server) UpdateMerchantCategory(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id == 0 {
		AbortWithError(c, merchantdomain.ErrNotFound)
		return
	}

	var req updateMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, badRequest("invalid request"))
		return
	}

	resp, err := s.merchantSvc.UpdateCategory(c.Request.Context(), int64(id), req.Category)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
