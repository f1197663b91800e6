package handler

import (
	"io"

	"campaign-escrow/internal/adapter/http/dto"
	"campaign-escrow/internal/adapter/http/middleware"
	"campaign-escrow/internal/core/ports"
	"campaign-escrow/pkg/apperror"
	"campaign-escrow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// WebhookHandler receives gateway webhooks. Signature verification happens
// in middleware before the handler runs.
type WebhookHandler struct {
	processor ports.WebhookProcessor
	log       zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(processor ports.WebhookProcessor, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{processor: processor, log: log}
}

// Razorpay handles POST /api/v1/webhooks/razorpay.
// Handled, duplicate, ignored and lookup-miss deliveries all get 200 so the
// gateway stops retrying; storage failures get 500 so it retries.
func (h *WebhookHandler) Razorpay(c *gin.Context) {
	raw, ok := middleware.RawBody(c)
	if !ok {
		var err error
		raw, err = io.ReadAll(c.Request.Body)
		if err != nil {
			response.Error(c, apperror.ErrUnreadableBody(err))
			return
		}
	}

	eventID := c.GetHeader(middleware.HeaderEventID)
	result, err := h.processor.Process(c.Request.Context(), raw, eventID)
	if err != nil {
		response.Error(c, err)
		return
	}

	outcome := dto.WebhookOutcome{EventID: eventID, Outcome: string(result.Outcome)}
	if result.EscrowID != nil {
		outcome.EscrowID = result.EscrowID.String()
	}
	h.log.Debug().
		Str("request_id", c.GetString(middleware.CtxRequestID)).
		Interface("outcome", outcome).
		Msg("webhook acknowledged")

	response.Received(c)
}
