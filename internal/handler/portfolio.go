package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"valuation/internal/service"
	"valuation/internal/valuation"
)

type PortfolioHandler struct {
	Service *service.PortfolioService
}

func (h *PortfolioHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/users/:user/portfolios/:portfolio")
	g.GET("/positions", h.positions)
	g.GET("/closed-trades", h.closedTrades)
	g.GET("/history", h.history)
	g.GET("/snapshots/:date", h.snapshot)
	g.GET("/reports/summary", h.summary)
}

func (h *PortfolioHandler) positions(c *gin.Context) {
	userID, portfolio, ok := ownerParams(c)
	if !ok {
		return
	}
	items, err := h.Service.ActivePositions(c.Request.Context(), userID, portfolio)
	if err != nil {
		replyError(c, err)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func (h *PortfolioHandler) closedTrades(c *gin.Context) {
	userID, portfolio, ok := ownerParams(c)
	if !ok {
		return
	}
	items, err := h.Service.ClosedTrades(c.Request.Context(), userID, portfolio)
	if err != nil {
		replyError(c, err)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func (h *PortfolioHandler) history(c *gin.Context) {
	userID, portfolio, ok := ownerParams(c)
	if !ok {
		return
	}
	days := intQuery(c, "days", 30)
	points, err := h.Service.GetHistory(c.Request.Context(), userID, portfolio, days)
	if err != nil {
		replyError(c, err)
		return
	}
	// An empty series is a normal response, not an error.
	Ok(c, points, map[string]any{"days": days, "count": len(points)})
}

func (h *PortfolioHandler) snapshot(c *gin.Context) {
	userID, portfolio, ok := ownerParams(c)
	if !ok {
		return
	}
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid date, want YYYY-MM-DD", nil)
		return
	}
	stats, positions, err := h.Service.Snapshot(c.Request.Context(), userID, portfolio, date)
	if err != nil {
		replyError(c, err)
		return
	}
	if stats == nil {
		Ok(c, nil, map[string]any{"available": false})
		return
	}
	Ok(c, gin.H{"stats": stats, "positions": positions}, map[string]any{"available": true})
}

func (h *PortfolioHandler) summary(c *gin.Context) {
	userID, portfolio, ok := ownerParams(c)
	if !ok {
		return
	}
	days := intQuery(c, "days", 365)
	out, err := h.Service.Summary(c.Request.Context(), userID, portfolio, days)
	if err != nil {
		replyError(c, err)
		return
	}
	Ok(c, out, nil)
}

func ownerParams(c *gin.Context) (string, string, bool) {
	userID := strings.TrimSpace(c.Param("user"))
	portfolio := strings.TrimSpace(c.Param("portfolio"))
	if userID == "" || portfolio == "" {
		Error(c, http.StatusBadRequest, "user and portfolio are required", nil)
		return "", "", false
	}
	return userID, portfolio, true
}

func replyError(c *gin.Context, err error) {
	var ie *valuation.IntegrityError
	if errors.As(err, &ie) {
		// Corrupt ledgers are reported, not served as half-right data.
		Error(c, http.StatusConflict, ie.Error(), map[string]any{
			"ticker": ie.Ticker,
		})
		return
	}
	Error(c, http.StatusBadGateway, err.Error(), nil)
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
