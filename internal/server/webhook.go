package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	escrowdomain "github.com/rushr-app/rushr/internal/escrow/domain"
	"github.com/rushr-app/rushr/internal/stripe"
	"go.uber.org/zap"
)

type webhookIntentObject struct {
	ID string `json:"id"`
}

// HandleStripeWebhook applies processor lifecycle events. Unknown event
// types are acknowledged so Stripe stops retrying them.
func (s *Server) HandleStripeWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	event, err := stripe.ConstructEvent(
		payload,
		c.GetHeader("Stripe-Signature"),
		s.cfg.Stripe.WebhookSecret,
		s.clock.Now(),
		stripe.DefaultSignatureTolerance,
	)
	if err != nil {
		AbortWithError(c, newValidationError("signature", "invalid_signature", "webhook signature verification failed"))
		return
	}

	switch event.Type {
	case "payment_intent.amount_capturable_updated":
		var intent webhookIntentObject
		if err := json.Unmarshal(event.Data.Object, &intent); err != nil || intent.ID == "" {
			AbortWithError(c, invalidRequestError())
			return
		}
		if err := s.escrowSvc.MarkAuthorized(c.Request.Context(), intent.ID); err != nil {
			// A hold we do not know about is not a retryable failure.
			if errors.Is(err, escrowdomain.ErrNotFound) {
				s.log.Warn("webhook for unknown payment intent", zap.String("payment_intent_id", intent.ID))
				break
			}
			AbortWithError(c, err)
			return
		}
	default:
		s.log.Debug("ignoring webhook event", zap.String("type", event.Type))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
