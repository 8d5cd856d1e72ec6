package webhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/billingworks/subsync/internal/config"
	customerdomain "github.com/billingworks/subsync/internal/customer/domain"
	subscriptiondomain "github.com/billingworks/subsync/internal/subscription/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stripe/stripe-go/v72/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	eventSubscriptionCreated = "customer.subscription.created"
	eventSubscriptionUpdated = "customer.subscription.updated"
)

// Service reconciles gateway webhook events into local subscription state.
// Faults never propagate to the gateway: a bad signature, an unparseable
// payload or a missing local record all end the call quietly, and the HTTP
// boundary answers 200 regardless.
type Service interface {
	HandleEvent(ctx context.Context, payload []byte, signatureHeader string) error
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	Registry *prometheus.Registry

	CustomerRepo     customerdomain.Repository
	SubscriptionRepo subscriptiondomain.Repository
}

type service struct {
	db            *gorm.DB
	log           *zap.Logger
	webhookSecret string

	customerRepo     customerdomain.Repository
	subscriptionRepo subscriptiondomain.Repository

	events *prometheus.CounterVec
}

var Module = fx.Module("webhook",
	fx.Provide(NewService),
)

func NewService(p Params) Service {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "subsync_webhook_events_total",
		Help: "Gateway webhook events by type and outcome.",
	}, []string{"type", "outcome"})
	p.Registry.MustRegister(events)

	return &service{
		db:            p.DB,
		log:           p.Log.Named("webhook.service"),
		webhookSecret: p.Cfg.Stripe.WebhookSecret,

		customerRepo:     p.CustomerRepo,
		subscriptionRepo: p.SubscriptionRepo,

		events: events,
	}
}

type eventEnvelope struct {
	Type string    `json:"type"`
	Data eventData `json:"data"`
}

type eventData struct {
	Object eventObject `json:"object"`
}

type eventObject struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
}

func (s *service) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	envelope, ok := s.parse(payload, signatureHeader)
	if !ok {
		return nil
	}

	switch envelope.Type {
	case eventSubscriptionCreated, eventSubscriptionUpdated:
		return s.reconcile(ctx, envelope)
	default:
		s.events.WithLabelValues(envelope.Type, "ignored").Inc()
		s.log.Debug("webhook event ignored", zap.String("type", envelope.Type))
		return nil
	}
}

// parse verifies and decodes the event. With a configured signing secret
// the signature must check out; without one (development and tests) the
// payload is trusted as-is.
func (s *service) parse(payload []byte, signatureHeader string) (eventEnvelope, bool) {
	var envelope eventEnvelope

	if s.webhookSecret != "" {
		event, err := webhook.ConstructEvent(payload, signatureHeader, s.webhookSecret)
		if err != nil {
			s.events.WithLabelValues("unknown", "rejected").Inc()
			s.log.Warn("webhook signature verification failed", zap.Error(err))
			return eventEnvelope{}, false
		}
		envelope.Type = string(event.Type)
		if err := json.Unmarshal(event.Data.Raw, &envelope.Data.Object); err != nil {
			s.events.WithLabelValues(envelope.Type, "rejected").Inc()
			s.log.Warn("webhook payload unparseable", zap.Error(err))
			return eventEnvelope{}, false
		}
		return envelope, true
	}

	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.events.WithLabelValues("unknown", "rejected").Inc()
		s.log.Warn("webhook payload unparseable", zap.Error(err))
		return eventEnvelope{}, false
	}
	return envelope, true
}

// reconcile overwrites the local subscription with the gateway's view. The
// row is read under a write lock so a racing subscribe call cannot
// interleave with the update.
func (s *service) reconcile(ctx context.Context, envelope eventEnvelope) error {
	customer, err := s.customerRepo.FindByReference(ctx, s.db, envelope.Data.Object.Customer)
	if err != nil {
		return err
	}
	if customer == nil {
		s.events.WithLabelValues(envelope.Type, "unmatched").Inc()
		s.log.Info("webhook customer reference unknown",
			zap.String("customer_reference", envelope.Data.Object.Customer))
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subscription, err := s.subscriptionRepo.FindByAccountForUpdate(ctx, tx, customer.AccountID)
		if err != nil {
			return err
		}
		if subscription == nil {
			s.events.WithLabelValues(envelope.Type, "unmatched").Inc()
			s.log.Info("webhook for account without subscription",
				zap.String("account_id", customer.AccountID.String()))
			return nil
		}

		status := subscriptiondomain.SubscriptionStatusFailed
		if envelope.Data.Object.Status == "active" {
			status = subscriptiondomain.SubscriptionStatusSuccessful
		}

		periodStart := time.Unix(envelope.Data.Object.CurrentPeriodStart, 0).UTC()
		periodEnd := time.Unix(envelope.Data.Object.CurrentPeriodEnd, 0).UTC()

		subscription.Status = status
		subscription.PaymentGatewayStatus = envelope.Data.Object.Status
		subscription.IDReference = envelope.Data.Object.ID
		subscription.CurrentPeriodStart = &periodStart
		subscription.CurrentPeriodEnd = &periodEnd
		subscription.UpdatedAt = time.Now().UTC()

		if err := s.subscriptionRepo.Update(ctx, tx, subscription); err != nil {
			return err
		}

		s.events.WithLabelValues(envelope.Type, "applied").Inc()
		s.log.Info("subscription reconciled",
			zap.String("account_id", customer.AccountID.String()),
			zap.String("subscription_reference", envelope.Data.Object.ID),
			zap.String("status", string(status)))
		return nil
	})
}
