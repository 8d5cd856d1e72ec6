package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StripeWebhook receives gateway event deliveries. The gateway retries on
// anything but 2xx, so this endpoint answers 200 no matter what happened
// internally.
func (s *Server) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusOK, "OK")
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if err := s.webhookSvc.HandleEvent(c.Request.Context(), payload, signature); err != nil {
		s.log.Error("webhook processing failed", zap.Error(err))
	}

	c.String(http.StatusOK, "OK")
}
