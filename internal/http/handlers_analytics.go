package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

const defaultDashboardPeriod = 30

// handleDashboard serves GET /api/analytics/dashboard?period=<days>
func (s *Server) handleDashboard(c *gin.Context) {
	period, err := queryInt(c, "period", defaultDashboardPeriod)
	if err != nil {
		respondError(c, err)
		return
	}

	dashboard, err := s.analytics.Dashboard(c.Request.Context(), identityFrom(c).ID, period)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// handleCategoryAnalytics serves GET /api/analytics/categories?startDate&endDate&type
func (s *Server) handleCategoryAnalytics(c *gin.Context) {
	var (
		f   services.CategoryFilter
		err error
	)
	if f.StartDate, err = queryDate(c, "startDate", s.location, false); err != nil {
		respondError(c, err)
		return
	}
	if f.EndDate, err = queryDate(c, "endDate", s.location, true); err != nil {
		respondError(c, err)
		return
	}
	if f.Type, err = queryType(c, "type"); err != nil {
		respondError(c, err)
		return
	}

	stats, err := s.analytics.CategoryAnalytics(c.Request.Context(), identityFrom(c).ID, f)
	if err != nil {
		respondError(c, err)
		return
	}
	if stats == nil {
		stats = []core.CategoryStat{}
	}
	c.JSON(http.StatusOK, gin.H{"categoryAnalytics": stats})
}

// handleSpendingTrends serves GET /api/analytics/trends?period&categoryId&periods
func (s *Server) handleSpendingTrends(c *gin.Context) {
	var (
		q   services.TrendQuery
		err error
	)
	if q.Granularity, err = core.ParseGranularity(c.Query("period")); err != nil {
		respondError(c, err)
		return
	}
	if q.CategoryID, err = queryID(c, "categoryId"); err != nil {
		respondError(c, err)
		return
	}
	if q.Periods, err = queryInt(c, "periods", 0); err != nil {
		respondError(c, err)
		return
	}
	if c.Query("periods") != "" && q.Periods == 0 {
		respondError(c, core.Invalidf("periods must be between 1 and %d", services.MaxTrendPeriods))
		return
	}

	trends, err := s.analytics.SpendingTrends(c.Request.Context(), identityFrom(c).ID, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trends": trends})
}

// handleMonthlyOverview serves GET /api/analytics/monthly
func (s *Server) handleMonthlyOverview(c *gin.Context) {
	series, err := s.analytics.MonthlyOverview(c.Request.Context(), identityFrom(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

// handleCategoryExpenses serves GET /api/analytics/category
func (s *Server) handleCategoryExpenses(c *gin.Context) {
	series, err := s.analytics.ExpensesByCategory(c.Request.Context(), identityFrom(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}
