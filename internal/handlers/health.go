package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) HealthCheck(ctx *gin.Context) {
	status, code, message := "ok", http.StatusOK, "iLinks is running"

	if err := h.store.Ping(ctx.Request.Context()); err != nil {
		status, code, message = "degraded", http.StatusServiceUnavailable, "Database unavailable"
	}

	ctx.JSON(code, gin.H{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
