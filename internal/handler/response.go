package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// envelope is the uniform reply shape of the read API. Meta carries
// endpoint-level facts ("count", "available", "days") beside the payload so
// clients never have to infer them from the data itself.
type envelope struct {
	Status string         `json:"status"`
	Data   any            `json:"data,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, envelope{Status: "ok", Data: data, Meta: meta})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, envelope{Status: "error", Error: message, Meta: meta})
}
