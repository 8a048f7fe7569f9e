package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"valuation/internal/repository"
	"valuation/internal/snapshot"
)

// JobHandler exposes manual snapshot triggering and job status. Re-running
// for an already-snapshotted date is harmless: every write is
// create-if-absent.
type JobHandler struct {
	Repo repository.Repository
	Job  *snapshot.Job
}

func (h *JobHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/jobs/snapshot")
	g.POST("/run", h.run)
	g.GET("/status", h.status)
}

func (h *JobHandler) run(c *gin.Context) {
	res := h.Job.RunOnce(c.Request.Context())
	switch res.State {
	case snapshot.StateSkipped:
		Ok(c, gin.H{"state": res.State}, map[string]any{"reason": "already running"})
	case snapshot.StateFailed:
		Error(c, http.StatusInternalServerError, res.Err.Error(), map[string]any{"state": res.State})
	default:
		Ok(c, gin.H{
			"state":      res.State,
			"date":       res.Date.Format("2006-01-02"),
			"portfolios": res.Portfolios,
			"positions":  res.Positions,
			"failures":   res.Failures,
		}, nil)
	}
}

func (h *JobHandler) status(c *gin.Context) {
	run, err := h.Repo.GetJobRun(c.Request.Context(), "daily_snapshot")
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if run == nil {
		Ok(c, nil, map[string]any{"available": false})
		return
	}
	Ok(c, run, map[string]any{"available": true})
}
