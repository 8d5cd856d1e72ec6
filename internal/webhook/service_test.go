package webhook_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	stripewebhook "github.com/stripe/stripe-go/v72/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/billingworks/subsync/internal/config"
	customerdomain "github.com/billingworks/subsync/internal/customer/domain"
	customerrepo "github.com/billingworks/subsync/internal/customer/repository"
	subscriptiondomain "github.com/billingworks/subsync/internal/subscription/domain"
	subscriptionrepo "github.com/billingworks/subsync/internal/subscription/repository"
	"github.com/billingworks/subsync/internal/webhook"
)

type testEnv struct {
	db    *gorm.DB
	svc   webhook.Service
	genID *snowflake.Node
}

func newTestEnv(t *testing.T, webhookSecret string) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&customerdomain.Customer{},
		&subscriptiondomain.Subscription{},
	)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := webhook.NewService(webhook.Params{
		DB:  db,
		Log: zap.NewNop(),
		Cfg: config.Config{
			Stripe: config.StripeConfig{WebhookSecret: webhookSecret},
		},
		Registry: prometheus.NewRegistry(),

		CustomerRepo:     customerrepo.Provide(),
		SubscriptionRepo: subscriptionrepo.Provide(),
	})

	return &testEnv{db: db, svc: svc, genID: node}
}

// seedAccount creates a customer plus a pending subscription and returns
// the account id.
func (e *testEnv) seedAccount(t *testing.T, customerReference string) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	accountID := e.genID.Generate()

	require.NoError(t, e.db.Create(&customerdomain.Customer{
		ID:          e.genID.Generate(),
		AccountID:   accountID,
		IsActive:    true,
		IDReference: customerReference,
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)

	require.NoError(t, e.db.Create(&subscriptiondomain.Subscription{
		ID:             e.genID.Generate(),
		AccountID:      accountID,
		Status:         subscriptiondomain.SubscriptionStatusPending,
		PriceReference: "price_basic",
		CreatedAt:      now,
		UpdatedAt:      now,
	}).Error)

	return accountID
}

func (e *testEnv) subscription(t *testing.T, accountID snowflake.ID) subscriptiondomain.Subscription {
	t.Helper()
	var subscription subscriptiondomain.Subscription
	require.NoError(t, e.db.Where("account_id = ?", accountID).First(&subscription).Error)
	return subscription
}

func eventPayload(eventType, subscriptionID, customerReference, status string, periodStart, periodEnd int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_test",
		"type": %q,
		"data": {
			"object": {
				"id": %q,
				"customer": %q,
				"status": %q,
				"current_period_start": %d,
				"current_period_end": %d
			}
		}
	}`, eventType, subscriptionID, customerReference, status, periodStart, periodEnd))
}

func TestHandleEventActivatesSubscription(t *testing.T) {
	env := newTestEnv(t, "")
	accountID := env.seedAccount(t, "cus_1")

	payload := eventPayload("customer.subscription.created", "sub_1", "cus_1", "active", 1633318983, 1635997383)
	require.NoError(t, env.svc.HandleEvent(context.Background(), payload, ""))

	subscription := env.subscription(t, accountID)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusSuccessful, subscription.Status)
	assert.Equal(t, "active", subscription.PaymentGatewayStatus)
	assert.Equal(t, "sub_1", subscription.IDReference)

	require.NotNil(t, subscription.CurrentPeriodStart)
	require.NotNil(t, subscription.CurrentPeriodEnd)
	assert.Equal(t, time.Unix(1633318983, 0).UTC(), subscription.CurrentPeriodStart.UTC())
	assert.Equal(t, time.Unix(1635997383, 0).UTC(), subscription.CurrentPeriodEnd.UTC())
}

func TestHandleEventNonActiveStatusMarksFailed(t *testing.T) {
	env := newTestEnv(t, "")
	accountID := env.seedAccount(t, "cus_1")

	payload := eventPayload("customer.subscription.created", "sub_1", "cus_1", "incomplete", 1633318983, 1635997383)
	require.NoError(t, env.svc.HandleEvent(context.Background(), payload, ""))

	subscription := env.subscription(t, accountID)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusFailed, subscription.Status)
	assert.Equal(t, "incomplete", subscription.PaymentGatewayStatus)
}

func TestHandleEventUpdateOverwritesPreviousState(t *testing.T) {
	env := newTestEnv(t, "")
	accountID := env.seedAccount(t, "cus_1")
	ctx := context.Background()

	created := eventPayload("customer.subscription.created", "sub_1", "cus_1", "active", 1633318983, 1635997383)
	require.NoError(t, env.svc.HandleEvent(ctx, created, ""))

	updated := eventPayload("customer.subscription.updated", "sub_1", "cus_1", "past_due", 1635997383, 1638675783)
	require.NoError(t, env.svc.HandleEvent(ctx, updated, ""))

	subscription := env.subscription(t, accountID)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusFailed, subscription.Status)
	assert.Equal(t, "past_due", subscription.PaymentGatewayStatus)
	assert.Equal(t, time.Unix(1635997383, 0).UTC(), subscription.CurrentPeriodStart.UTC())
}

func TestHandleEventRedeliveryIsIdempotent(t *testing.T) {
	env := newTestEnv(t, "")
	accountID := env.seedAccount(t, "cus_1")
	ctx := context.Background()

	payload := eventPayload("customer.subscription.created", "sub_1", "cus_1", "active", 1633318983, 1635997383)
	require.NoError(t, env.svc.HandleEvent(ctx, payload, ""))
	first := env.subscription(t, accountID)

	require.NoError(t, env.svc.HandleEvent(ctx, payload, ""))
	second := env.subscription(t, accountID)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.IDReference, second.IDReference)
	assert.Equal(t, first.CurrentPeriodStart.UTC(), second.CurrentPeriodStart.UTC())
	assert.Equal(t, first.CurrentPeriodEnd.UTC(), second.CurrentPeriodEnd.UTC())
}

func TestHandleEventIgnoresUnrelatedTypes(t *testing.T) {
	env := newTestEnv(t, "")
	accountID := env.seedAccount(t, "cus_1")

	payload := eventPayload("invoice.paid", "sub_1", "cus_1", "active", 1633318983, 1635997383)
	require.NoError(t, env.svc.HandleEvent(context.Background(), payload, ""))

	subscription := env.subscription(t, accountID)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusPending, subscription.Status)
}

func TestHandleEventUnknownCustomerIsNoop(t *testing.T) {
	env := newTestEnv(t, "")
	accountID := env.seedAccount(t, "cus_1")

	payload := eventPayload("customer.subscription.created", "sub_1", "cus_other", "active", 1633318983, 1635997383)
	require.NoError(t, env.svc.HandleEvent(context.Background(), payload, ""))

	subscription := env.subscription(t, accountID)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusPending, subscription.Status)
}

func TestHandleEventUnparseablePayloadIsDropped(t *testing.T) {
	env := newTestEnv(t, "")
	accountID := env.seedAccount(t, "cus_1")

	require.NoError(t, env.svc.HandleEvent(context.Background(), []byte("not json"), ""))

	subscription := env.subscription(t, accountID)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusPending, subscription.Status)
}

func TestHandleEventVerifiesSignature(t *testing.T) {
	const secret = "whsec_test"

	env := newTestEnv(t, secret)
	accountID := env.seedAccount(t, "cus_1")
	ctx := context.Background()

	payload := eventPayload("customer.subscription.created", "sub_1", "cus_1", "active", 1633318983, 1635997383)

	// Wrong signature: dropped without touching the row.
	require.NoError(t, env.svc.HandleEvent(ctx, payload, "t=1,v1=deadbeef"))
	assert.Equal(t, subscriptiondomain.SubscriptionStatusPending, env.subscription(t, accountID).Status)

	// Correct signature: applied.
	now := time.Now()
	signature := stripewebhook.ComputeSignature(now, payload, secret)
	header := fmt.Sprintf("t=%d,v1=%x", now.Unix(), signature)
	require.NoError(t, env.svc.HandleEvent(ctx, payload, header))
	assert.Equal(t, subscriptiondomain.SubscriptionStatusSuccessful, env.subscription(t, accountID).Status)
}
