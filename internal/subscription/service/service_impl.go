package service

import (
	"context"
	"errors"
	"time"

	"github.com/billingworks/subsync/internal/clock"
	customerdomain "github.com/billingworks/subsync/internal/customer/domain"
	gatewaydomain "github.com/billingworks/subsync/internal/gateway/domain"
	"github.com/billingworks/subsync/internal/locker"
	paymentdomain "github.com/billingworks/subsync/internal/payment/domain"
	subscriptiondomain "github.com/billingworks/subsync/internal/subscription/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// lockWait bounds how long a subscribe call waits for a competing call
	// on the same account before giving up.
	lockWait = 5 * time.Second
	// lockTTL caps how long a crashed holder can keep an account locked.
	lockTTL = 30 * time.Second
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock

	Repo              subscriptiondomain.Repository
	CustomerRepo      customerdomain.Repository
	PaymentMethodRepo paymentdomain.Repository
	Gateway           gatewaydomain.PaymentsGateway
	Locker            locker.Locker
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	repo              subscriptiondomain.Repository
	customerRepo      customerdomain.Repository
	paymentMethodRepo paymentdomain.Repository
	gateway           gatewaydomain.PaymentsGateway
	locker            locker.Locker
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscription.service"),
		genID: p.GenID,
		clock: p.Clock,

		repo:              p.Repo,
		customerRepo:      p.CustomerRepo,
		paymentMethodRepo: p.PaymentMethodRepo,
		gateway:           p.Gateway,
		locker:            p.Locker,
	}
}

// Subscribe runs the full subscription workflow for one account: resolve or
// create the gateway customer, resolve or create the payment method, then
// create the subscription. The whole call holds a per-account lease so two
// concurrent subscribes cannot both pass the existence check; the unique
// index on subscriptions.account_id is the backstop for anything that
// slips through.
func (s *Service) Subscribe(ctx context.Context, req subscriptiondomain.SubscribeRequest) error {
	lockCtx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()

	lock, err := s.locker.Acquire(lockCtx, "subscribe:"+req.AccountID.String(), lockTTL)
	if err != nil {
		if errors.Is(err, locker.ErrNotAcquired) {
			return subscriptiondomain.ErrAccountBusy
		}
		return err
	}
	defer func() {
		if releaseErr := lock.Release(context.Background()); releaseErr != nil {
			s.log.Warn("failed to release account lock",
				zap.String("account_id", req.AccountID.String()),
				zap.Error(releaseErr))
		}
	}()

	customerReference, err := s.resolveCustomer(ctx, req)
	if err != nil {
		return err
	}

	if err := s.resolvePaymentMethod(ctx, req, customerReference); err != nil {
		return err
	}

	return s.createSubscription(ctx, req, customerReference)
}

// Status returns the account's subscription row.
func (s *Service) Status(ctx context.Context, accountID snowflake.ID) (subscriptiondomain.Subscription, error) {
	subscription, err := s.repo.FindByAccount(ctx, s.db, accountID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if subscription == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotFound
	}
	return *subscription, nil
}

// resolveCustomer returns the gateway reference of the account's active
// customer, creating one at the gateway (and locally) when absent.
func (s *Service) resolveCustomer(ctx context.Context, req subscriptiondomain.SubscribeRequest) (string, error) {
	existing, err := s.customerRepo.FindActiveByAccount(ctx, s.db, req.AccountID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.IDReference, nil
	}

	reference, err := s.gateway.CreateCustomer(ctx, gatewaydomain.CreateCustomerInput{
		Name:   req.UserName,
		Email:  req.UserEmail,
		UserID: req.UserID.String(),
	})
	if err != nil {
		return "", err
	}

	now := s.clock.Now(ctx)
	customer := &customerdomain.Customer{
		ID:          s.genID.Generate(),
		AccountID:   req.AccountID,
		IsActive:    true,
		IDReference: reference,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.customerRepo.Insert(ctx, s.db, customer); err != nil {
		return "", err
	}

	s.log.Info("customer created",
		zap.String("account_id", req.AccountID.String()),
		zap.String("customer_reference", reference))
	return reference, nil
}

// resolvePaymentMethod creates and attaches a card when the account has no
// active payment method. When one exists the submitted card data is
// ignored: there is no card-update path.
func (s *Service) resolvePaymentMethod(ctx context.Context, req subscriptiondomain.SubscribeRequest, customerReference string) error {
	existing, err := s.paymentMethodRepo.FindActiveByAccount(ctx, s.db, req.AccountID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	reference, err := s.gateway.CreateAndAttachPaymentMethod(ctx, gatewaydomain.CreatePaymentMethodInput{
		CustomerReference: customerReference,
		CardNumber:        req.CardNumber,
		ExpMonth:          req.CardExpirationMonth,
		ExpYear:           req.CardExpirationYear,
		CVC:               req.CardCVC,
	})
	if err != nil {
		return err
	}

	now := s.clock.Now(ctx)
	paymentMethod := &paymentdomain.PaymentMethod{
		ID:          s.genID.Generate(),
		AccountID:   req.AccountID,
		IsActive:    true,
		Type:        paymentdomain.PaymentMethodTypeCard,
		IDReference: reference,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.paymentMethodRepo.Insert(ctx, s.db, paymentMethod); err != nil {
		return err
	}

	s.log.Info("payment method created",
		zap.String("account_id", req.AccountID.String()),
		zap.String("payment_method_reference", reference))
	return nil
}

// createSubscription persists the pending placeholder row first, then asks
// the gateway to start the subscription. Gateway confirmation arrives later
// through the webhook reconciler; on a gateway fault the placeholder is
// deleted before the error surfaces.
func (s *Service) createSubscription(ctx context.Context, req subscriptiondomain.SubscribeRequest, customerReference string) error {
	existing, err := s.repo.FindByAccount(ctx, s.db, req.AccountID)
	if err != nil {
		return err
	}
	if existing != nil {
		return subscriptiondomain.ErrAlreadySubscribed
	}

	now := s.clock.Now(ctx)
	subscription := &subscriptiondomain.Subscription{
		ID:             s.genID.Generate(),
		AccountID:      req.AccountID,
		Status:         subscriptiondomain.SubscriptionStatusPending,
		PriceReference: req.PriceReference,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, s.db, subscription); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return subscriptiondomain.ErrAlreadySubscribed
		}
		return err
	}

	if _, err := s.gateway.CreateSubscription(ctx, customerReference, req.PriceReference); err != nil {
		var cardErr *gatewaydomain.CardError
		if errors.As(err, &cardErr) {
			// Card rejection at this stage is not expected in practice
			// (card faults surface during payment-method attachment) and
			// is surfaced without touching the pending row.
			return err
		}

		if delErr := s.repo.DeletePending(ctx, s.db, req.AccountID); delErr != nil {
			s.log.Error("failed to roll back pending subscription",
				zap.String("account_id", req.AccountID.String()),
				zap.Error(delErr))
		}
		return err
	}

	s.log.Info("subscription pending gateway confirmation",
		zap.String("account_id", req.AccountID.String()),
		zap.String("price_reference", req.PriceReference))
	return nil
}
