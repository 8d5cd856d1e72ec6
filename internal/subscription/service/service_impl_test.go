package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/billingworks/subsync/internal/account/domain"
	"github.com/billingworks/subsync/internal/clock"
	customerdomain "github.com/billingworks/subsync/internal/customer/domain"
	customerrepo "github.com/billingworks/subsync/internal/customer/repository"
	gatewaydomain "github.com/billingworks/subsync/internal/gateway/domain"
	"github.com/billingworks/subsync/internal/locker"
	paymentdomain "github.com/billingworks/subsync/internal/payment/domain"
	paymentrepo "github.com/billingworks/subsync/internal/payment/repository"
	subscriptiondomain "github.com/billingworks/subsync/internal/subscription/domain"
	subscriptionrepo "github.com/billingworks/subsync/internal/subscription/repository"
	"github.com/billingworks/subsync/internal/subscription/service"
)

// --- Mocks ---

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCustomer(ctx context.Context, in gatewaydomain.CreateCustomerInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreateAndAttachPaymentMethod(ctx context.Context, in gatewaydomain.CreatePaymentMethodInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreateSubscription(ctx context.Context, customerReference, priceReference string) (string, error) {
	args := m.Called(ctx, customerReference, priceReference)
	return args.String(0), args.Error(1)
}

// --- Setup ---

type testEnv struct {
	db      *gorm.DB
	gateway *MockGateway
	locker  locker.Locker
	svc     subscriptiondomain.Service
	genID   *snowflake.Node
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&accountdomain.Account{},
		&accountdomain.User{},
		&customerdomain.Customer{},
		&paymentdomain.PaymentMethod{},
		&subscriptiondomain.Subscription{},
	)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	gw := new(MockGateway)
	lckr := locker.NewLocal()

	svc := service.NewService(service.ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.New(),

		Repo:              subscriptionrepo.Provide(),
		CustomerRepo:      customerrepo.Provide(),
		PaymentMethodRepo: paymentrepo.Provide(),
		Gateway:           gw,
		Locker:            lckr,
	})

	return &testEnv{db: db, gateway: gw, locker: lckr, svc: svc, genID: node}
}

func (e *testEnv) seedCustomer(t *testing.T, accountID snowflake.ID, reference string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, e.db.Create(&customerdomain.Customer{
		ID:          e.genID.Generate(),
		AccountID:   accountID,
		IsActive:    true,
		IDReference: reference,
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)
}

func (e *testEnv) seedPaymentMethod(t *testing.T, accountID snowflake.ID, reference string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, e.db.Create(&paymentdomain.PaymentMethod{
		ID:          e.genID.Generate(),
		AccountID:   accountID,
		IsActive:    true,
		Type:        paymentdomain.PaymentMethodTypeCard,
		IDReference: reference,
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)
}

func (e *testEnv) seedSubscription(t *testing.T, accountID snowflake.ID, status subscriptiondomain.SubscriptionStatus) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, e.db.Create(&subscriptiondomain.Subscription{
		ID:             e.genID.Generate(),
		AccountID:      accountID,
		Status:         status,
		PriceReference: "price_basic",
		CreatedAt:      now,
		UpdatedAt:      now,
	}).Error)
}

func subscribeRequest(accountID, userID snowflake.ID) subscriptiondomain.SubscribeRequest {
	return subscriptiondomain.SubscribeRequest{
		AccountID: accountID,
		UserID:    userID,
		UserName:  "Jane Doe",
		UserEmail: "jane@example.com",

		PriceReference:      "price_basic",
		CardNumber:          "4242424242424242",
		CardExpirationMonth: 12,
		CardExpirationYear:  2030,
		CardCVC:             "314",
	}
}

// --- Tests ---

func TestSubscribeCreatesCustomerPaymentMethodAndPendingRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	accountID := env.genID.Generate()
	userID := env.genID.Generate()
	req := subscribeRequest(accountID, userID)

	env.gateway.On("CreateCustomer", mock.Anything, gatewaydomain.CreateCustomerInput{
		Name:   "Jane Doe",
		Email:  "jane@example.com",
		UserID: userID.String(),
	}).Return("cus_123", nil).Once()
	env.gateway.On("CreateAndAttachPaymentMethod", mock.Anything, gatewaydomain.CreatePaymentMethodInput{
		CustomerReference: "cus_123",
		CardNumber:        "4242424242424242",
		ExpMonth:          12,
		ExpYear:           2030,
		CVC:               "314",
	}).Return("pm_123", nil).Once()
	env.gateway.On("CreateSubscription", mock.Anything, "cus_123", "price_basic").
		Return("sub_123", nil).Once()

	err := env.svc.Subscribe(ctx, req)
	require.NoError(t, err)
	env.gateway.AssertExpectations(t)

	var customer customerdomain.Customer
	require.NoError(t, env.db.Where("account_id = ?", accountID).First(&customer).Error)
	assert.Equal(t, "cus_123", customer.IDReference)
	assert.True(t, customer.IsActive)

	var paymentMethod paymentdomain.PaymentMethod
	require.NoError(t, env.db.Where("account_id = ?", accountID).First(&paymentMethod).Error)
	assert.Equal(t, "pm_123", paymentMethod.IDReference)
	assert.Equal(t, paymentdomain.PaymentMethodTypeCard, paymentMethod.Type)

	// The local row stays pending until the webhook confirms; the gateway
	// subscription id is not recorded at this point.
	var subscription subscriptiondomain.Subscription
	require.NoError(t, env.db.Where("account_id = ?", accountID).First(&subscription).Error)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusPending, subscription.Status)
	assert.Equal(t, "price_basic", subscription.PriceReference)
	assert.Empty(t, subscription.IDReference)
}

func TestSubscribeReusesExistingCustomerAndPaymentMethod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	accountID := env.genID.Generate()
	env.seedCustomer(t, accountID, "cus_existing")
	env.seedPaymentMethod(t, accountID, "pm_existing")

	env.gateway.On("CreateSubscription", mock.Anything, "cus_existing", "price_basic").
		Return("sub_456", nil).Once()

	err := env.svc.Subscribe(ctx, subscribeRequest(accountID, env.genID.Generate()))
	require.NoError(t, err)

	env.gateway.AssertExpectations(t)
	env.gateway.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
	env.gateway.AssertNotCalled(t, "CreateAndAttachPaymentMethod", mock.Anything, mock.Anything)

	var customerCount, paymentMethodCount int64
	require.NoError(t, env.db.Model(&customerdomain.Customer{}).Where("account_id = ?", accountID).Count(&customerCount).Error)
	require.NoError(t, env.db.Model(&paymentdomain.PaymentMethod{}).Where("account_id = ?", accountID).Count(&paymentMethodCount).Error)
	assert.Equal(t, int64(1), customerCount)
	assert.Equal(t, int64(1), paymentMethodCount)
}

func TestSubscribeRejectsSecondSubscription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	accountID := env.genID.Generate()
	env.seedCustomer(t, accountID, "cus_existing")
	env.seedPaymentMethod(t, accountID, "pm_existing")
	env.seedSubscription(t, accountID, subscriptiondomain.SubscriptionStatusSuccessful)

	err := env.svc.Subscribe(ctx, subscribeRequest(accountID, env.genID.Generate()))
	assert.ErrorIs(t, err, subscriptiondomain.ErrAlreadySubscribed)

	env.gateway.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubscribeRejectsWhilePendingExists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	accountID := env.genID.Generate()
	env.seedCustomer(t, accountID, "cus_existing")
	env.seedPaymentMethod(t, accountID, "pm_existing")
	env.seedSubscription(t, accountID, subscriptiondomain.SubscriptionStatusPending)

	err := env.svc.Subscribe(ctx, subscribeRequest(accountID, env.genID.Generate()))
	assert.ErrorIs(t, err, subscriptiondomain.ErrAlreadySubscribed)
}

func TestSubscribeGatewayFaultRollsBackPendingRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	accountID := env.genID.Generate()
	env.seedCustomer(t, accountID, "cus_existing")
	env.seedPaymentMethod(t, accountID, "pm_existing")

	env.gateway.On("CreateSubscription", mock.Anything, "cus_existing", "price_basic").
		Return("", &gatewaydomain.GatewayError{Message: "rate limited"}).Once()

	err := env.svc.Subscribe(ctx, subscribeRequest(accountID, env.genID.Generate()))

	var gatewayErr *gatewaydomain.GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, "rate limited", gatewayErr.Message)

	// The placeholder must be gone so the account can retry.
	var count int64
	require.NoError(t, env.db.Model(&subscriptiondomain.Subscription{}).Where("account_id = ?", accountID).Count(&count).Error)
	assert.Zero(t, count)

	// Customer and payment method are durable resources and survive the
	// failed attempt.
	var customerCount int64
	require.NoError(t, env.db.Model(&customerdomain.Customer{}).Where("account_id = ?", accountID).Count(&customerCount).Error)
	assert.Equal(t, int64(1), customerCount)
}

func TestSubscribeCardDeclineKeepsPendingRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	accountID := env.genID.Generate()
	env.seedCustomer(t, accountID, "cus_existing")
	env.seedPaymentMethod(t, accountID, "pm_existing")

	env.gateway.On("CreateSubscription", mock.Anything, "cus_existing", "price_basic").
		Return("", &gatewaydomain.CardError{Message: "Your card was declined."}).Once()

	err := env.svc.Subscribe(ctx, subscribeRequest(accountID, env.genID.Generate()))

	var cardErr *gatewaydomain.CardError
	require.ErrorAs(t, err, &cardErr)

	var subscription subscriptiondomain.Subscription
	require.NoError(t, env.db.Where("account_id = ?", accountID).First(&subscription).Error)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusPending, subscription.Status)
}

func TestSubscribeCardDeclineDuringAttachLeavesNoPaymentMethod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	accountID := env.genID.Generate()
	env.seedCustomer(t, accountID, "cus_existing")

	env.gateway.On("CreateAndAttachPaymentMethod", mock.Anything, mock.Anything).
		Return("", &gatewaydomain.CardError{Message: "Your card number is incorrect."}).Once()

	err := env.svc.Subscribe(ctx, subscribeRequest(accountID, env.genID.Generate()))

	var cardErr *gatewaydomain.CardError
	require.ErrorAs(t, err, &cardErr)
	assert.Equal(t, "Your card number is incorrect.", cardErr.Message)

	var paymentMethodCount, subscriptionCount int64
	require.NoError(t, env.db.Model(&paymentdomain.PaymentMethod{}).Where("account_id = ?", accountID).Count(&paymentMethodCount).Error)
	require.NoError(t, env.db.Model(&subscriptiondomain.Subscription{}).Where("account_id = ?", accountID).Count(&subscriptionCount).Error)
	assert.Zero(t, paymentMethodCount)
	assert.Zero(t, subscriptionCount)

	env.gateway.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubscribeGatewayFaultDuringCustomerCreationLeavesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	accountID := env.genID.Generate()

	env.gateway.On("CreateCustomer", mock.Anything, mock.Anything).
		Return("", &gatewaydomain.GatewayError{Message: "connection reset"}).Once()

	err := env.svc.Subscribe(ctx, subscribeRequest(accountID, env.genID.Generate()))

	var gatewayErr *gatewaydomain.GatewayError
	require.ErrorAs(t, err, &gatewayErr)

	var customerCount int64
	require.NoError(t, env.db.Model(&customerdomain.Customer{}).Where("account_id = ?", accountID).Count(&customerCount).Error)
	assert.Zero(t, customerCount)
}

func TestSubscribeBusyWhenAccountLockHeld(t *testing.T) {
	env := newTestEnv(t)

	accountID := env.genID.Generate()
	lock, err := env.locker.Acquire(context.Background(), "subscribe:"+accountID.String(), time.Minute)
	require.NoError(t, err)
	defer lock.Release(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = env.svc.Subscribe(ctx, subscribeRequest(accountID, env.genID.Generate()))
	assert.ErrorIs(t, err, subscriptiondomain.ErrAccountBusy)
}

func TestStatusReturnsSubscription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	accountID := env.genID.Generate()
	env.seedSubscription(t, accountID, subscriptiondomain.SubscriptionStatusSuccessful)

	subscription, err := env.svc.Status(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusSuccessful, subscription.Status)
	assert.Equal(t, "price_basic", subscription.PriceReference)
}

func TestStatusNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Status(context.Background(), env.genID.Generate())
	assert.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionNotFound)
}
