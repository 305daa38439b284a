// internal/api/handler.go
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"commerce-chat/internal/chat/pipeline"
	commonerrors "commerce-chat/internal/common/errors"
	"commerce-chat/internal/common/logger"
	"commerce-chat/internal/common/observability"
	"commerce-chat/internal/models"
)

// ChatService is the pipeline surface the HTTP layer consumes.
type ChatService interface {
	Handle(ctx context.Context, req models.ChatRequest) (*pipeline.Output, error)
}

// envelope is the uniform response wrapper for all JSON endpoints.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ChatHandler exposes the chat pipeline over HTTP.
type ChatHandler struct {
	pipeline ChatService
	obs      *observability.Observability
	logger   logger.Logger
}

func NewChatHandler(p ChatService, obs *observability.Observability, log logger.Logger) *ChatHandler {
	return &ChatHandler{pipeline: p, obs: obs, logger: log}
}

// HandleChat runs one chat turn. Tenant and message are required; the
// conversation id is minted when absent so the client can thread follow-ups.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, envelope{Error: &apiError{
			Code:    "INVALID_REQUEST",
			Message: "request body must be valid JSON",
		}})
		return
	}
	if strings.TrimSpace(req.TenantID) == "" {
		c.JSON(http.StatusBadRequest, envelope{Error: &apiError{
			Code:    "INVALID_REQUEST",
			Message: "tenantId is required",
		}})
		return
	}

	start := time.Now()
	out, err := h.pipeline.Handle(c.Request.Context(), req)
	if err != nil {
		h.obs.RecordRequest(c.Request.Context(), "unknown", "error")
		h.obs.RecordRequestDuration(c.Request.Context(), time.Since(start), "error")
		h.logger.Error("chat turn failed", map[string]interface{}{
			"tenantId": req.TenantID,
			"error":    err.Error(),
		})

		var stdErr *commonerrors.StandardError
		if errors.As(err, &stdErr) {
			status := http.StatusInternalServerError
			if stdErr.Retryable {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, envelope{Error: &apiError{
				Code:    string(stdErr.Code),
				Message: stdErr.Message,
			}})
			return
		}
		c.JSON(http.StatusInternalServerError, envelope{Error: &apiError{
			Code:    "INTERNAL_ERROR",
			Message: "failed to process message",
		}})
		return
	}

	h.obs.RecordRequest(c.Request.Context(), out.Intent, "ok")
	h.obs.RecordRequestDuration(c.Request.Context(), time.Since(start), "ok")
	c.JSON(http.StatusOK, envelope{Success: true, Data: out})
}
