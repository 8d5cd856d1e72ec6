package server

import (
	"errors"
	"net/http"

	gatewaydomain "github.com/billingworks/subsync/internal/gateway/domain"
	subscriptiondomain "github.com/billingworks/subsync/internal/subscription/domain"
	"github.com/gin-gonic/gin"
)

// fieldErrors is the field-keyed validation error map returned for
// malformed input, mirroring the shape clients already consume.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, message string) {
	f[field] = append(f[field], message)
}

func respondValidationErrors(c *gin.Context, errs fieldErrors) {
	c.JSON(http.StatusBadRequest, errs)
}

func respondNonFieldError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"non_field_errors": []string{message}})
}

// abortWithSubscribeError translates orchestrator failures into the
// boundary contract: card and gateway faults are 400 with the gateway's
// message, the subscription conflict is 409 with a fixed message.
func abortWithSubscribeError(c *gin.Context, err error) {
	var cardErr *gatewaydomain.CardError
	if errors.As(err, &cardErr) {
		respondNonFieldError(c, http.StatusBadRequest, cardErr.Message)
		return
	}

	var gatewayErr *gatewaydomain.GatewayError
	if errors.As(err, &gatewayErr) {
		respondNonFieldError(c, http.StatusBadRequest, gatewayErr.Message)
		return
	}

	if errors.Is(err, subscriptiondomain.ErrAlreadySubscribed) {
		respondNonFieldError(c, http.StatusConflict, "Already subscribed!")
		return
	}

	if errors.Is(err, subscriptiondomain.ErrAccountBusy) {
		respondNonFieldError(c, http.StatusConflict, "A subscribe request is already in progress.")
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error."})
}
