package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	dashboarddomain "github.com/saldotech/saldo/internal/dashboard/domain"
)

func (s *Server) DashboardSummary(c *gin.Context) {
	filter, ok := dashboardFilter(c)
	if !ok {
		return
	}

	resp, err := s.dashboardSvc.Summary(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) DashboardSpendingByCategory(c *gin.Context) {
	filter, ok := dashboardFilter(c)
	if !ok {
		return
	}

	items, err := s.dashboardSvc.SpendingByCategory(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) DashboardMonthlyTrend(c *gin.Context) {
	filter, ok := dashboardFilter(c)
	if !ok {
		return
	}

	items, err := s.dashboardSvc.MonthlyTrend(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) DashboardTopMerchants(c *gin.Context) {
	filter, ok := dashboardFilter(c)
	if !ok {
		return
	}

	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, badRequest("invalid limit"))
		return
	}

	items, err := s.dashboardSvc.TopMerchants(c.Request.Context(), filter, query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) DashboardCurrencyBreakdown(c *gin.Context) {
	filter, ok := dashboardFilter(c)
	if !ok {
		return
	}

	items, err := s.dashboardSvc.CurrencyBreakdown(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// dashboardFilter parses the shared date window. On failure the request
// is already aborted and the caller just returns.
func dashboardFilter(c *gin.Context) (dashboarddomain.RangeFilter, bool) {
	dateFrom, err := parseOptionalTime(c.Query("date_from"), false)
	if err != nil {
		AbortWithError(c, badRequest("invalid date_from"))
		return dashboarddomain.RangeFilter{}, false
	}
	dateTo, err := parseOptionalTime(c.Query("date_to"), true)
	if err != nil {
		AbortWithError(c, badRequest("invalid date_to"))
		return dashboarddomain.RangeFilter{}, false
	}
	return dashboarddomain.RangeFilter{DateFrom: dateFrom, DateTo: dateTo}, true
}
