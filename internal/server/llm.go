package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LLMCheck probes the enrichment model. Failures are reported in the
// body; the endpoint itself always answers 200.
func (s *Server) LLMCheck(c *gin.Context) {
	c.JSON(http.StatusOK, s.llmClient.Check(c.Request.Context()))
}
