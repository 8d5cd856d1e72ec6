package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/billingworks/subsync/internal/accountcontext"
	subscriptiondomain "github.com/billingworks/subsync/internal/subscription/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type subscribeRequest struct {
	SubscriptionProduct *string `json:"subscription_product"`
	CardNumber          *string `json:"card_number"`
	CardExpirationMonth *int    `json:"card_expiration_month"`
	CardExpirationYear  *int    `json:"card_expiration_year"`
	CardCVC             *int    `json:"card_cvc"`
}

// Subscribe runs the subscription workflow for the authenticated account.
func (s *Server) Subscribe(c *gin.Context) {
	user, ok := accountcontext.UserFromContext(c.Request.Context())
	if !ok {
		abortUnauthorized(c)
		return
	}

	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondNonFieldError(c, http.StatusBadRequest, "Invalid request body.")
		return
	}

	priceReference, errs := s.validateSubscribe(req)
	if len(errs) > 0 {
		respondValidationErrors(c, errs)
		return
	}

	err := s.subscriptionSvc.Subscribe(c.Request.Context(), subscriptiondomain.SubscribeRequest{
		AccountID: user.AccountID,
		UserID:    user.ID,
		UserName:  user.Name(),
		UserEmail: user.Email,

		PriceReference:      priceReference,
		CardNumber:          *req.CardNumber,
		CardExpirationMonth: *req.CardExpirationMonth,
		CardExpirationYear:  *req.CardExpirationYear,
		CardCVC:             strconv.Itoa(*req.CardCVC),
	})
	if err != nil {
		s.log.Warn("subscribe failed",
			zap.String("account_id", user.AccountID.String()),
			zap.Error(err))
		abortWithSubscribeError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// validateSubscribe applies the field policy and resolves the plan name to
// its price reference. Expiration is rejected only when both the month and
// the year are strictly in the past.
func (s *Server) validateSubscribe(req subscribeRequest) (string, fieldErrors) {
	errs := fieldErrors{}

	if req.SubscriptionProduct == nil {
		errs.add("subscription_product", "This field is required.")
	}
	if req.CardNumber == nil {
		errs.add("card_number", "This field is required.")
	}
	if req.CardExpirationMonth == nil {
		errs.add("card_expiration_month", "This field is required.")
	}
	if req.CardExpirationYear == nil {
		errs.add("card_expiration_year", "This field is required.")
	}
	if req.CardCVC == nil {
		errs.add("card_cvc", "This field is required.")
	}
	if len(errs) > 0 {
		return "", errs
	}

	priceReference, known := s.catalog.PriceByProduct(*req.SubscriptionProduct)
	if !known {
		errs.add("subscription_product", "Subscription product does not exist.")
	}

	switch {
	case len(*req.CardNumber) < 16:
		errs.add("card_number", "Ensure this field has at least 16 characters.")
	case len(*req.CardNumber) > 16:
		errs.add("card_number", "Ensure this field has no more than 16 characters.")
	case !isNumeric(*req.CardNumber):
		errs.add("card_number", "Card number must be numeric.")
	}

	if *req.CardExpirationMonth < 1 || *req.CardExpirationMonth > 12 {
		errs.add("card_expiration_month", "Ensure this value is between 1 and 12.")
	}
	if *req.CardExpirationYear < 2000 || *req.CardExpirationYear > 3000 {
		errs.add("card_expiration_year", "Ensure this value is between 2000 and 3000.")
	}
	if *req.CardCVC < 100 || *req.CardCVC > 999 {
		errs.add("card_cvc", "Ensure this value is a three digit number.")
	}

	now := time.Now().UTC()
	if *req.CardExpirationMonth < int(now.Month()) && *req.CardExpirationYear < now.Year() {
		errs.add("card_expiration_month", "Card expiration is past due.")
		errs.add("card_expiration_year", "Card expiration is past due.")
	}

	if len(errs) > 0 {
		return "", errs
	}
	return priceReference, nil
}

func isNumeric(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(value) > 0
}

type statusResponse struct {
	Status               string     `json:"status"`
	PaymentGatewayStatus string     `json:"payment_gateway_status"`
	CurrentPeriodStart   *time.Time `json:"current_period_start"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end"`
	IDReference          string     `json:"id_reference"`
	PriceReference       string     `json:"price_reference"`
	PurchaseDate         string     `json:"purchase_date"`
}

// Status returns the caller's subscription, 404 when none exists.
func (s *Server) Status(c *gin.Context) {
	user, ok := accountcontext.UserFromContext(c.Request.Context())
	if !ok {
		abortUnauthorized(c)
		return
	}

	subscription, err := s.subscriptionSvc.Status(c.Request.Context(), user.AccountID)
	if err != nil {
		if errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error."})
		return
	}

	c.JSON(http.StatusOK, statusResponse{
		Status:               string(subscription.Status),
		PaymentGatewayStatus: subscription.PaymentGatewayStatus,
		CurrentPeriodStart:   subscription.CurrentPeriodStart,
		CurrentPeriodEnd:     subscription.CurrentPeriodEnd,
		IDReference:          subscription.IDReference,
		PriceReference:       subscription.PriceReference,
		PurchaseDate:         subscription.CreatedAt.UTC().Format("2006-01-02"),
	})
}
