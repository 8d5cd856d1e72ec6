package stripe

import (
	"context"
	"errors"
	"strconv"

	"github.com/billingworks/subsync/internal/config"
	"github.com/billingworks/subsync/internal/gateway/domain"
	"github.com/prometheus/client_golang/prometheus"
	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg      config.Config
	Log      *zap.Logger
	Registry *prometheus.Registry
}

// Gateway is the Stripe-backed PaymentsGateway. The API key is scoped to
// this instance via client.API; the SDK's package-level key is never set.
type Gateway struct {
	api      *client.API
	log      *zap.Logger
	requests *prometheus.CounterVec
}

func New(p Params) domain.PaymentsGateway {
	api := &client.API{}
	api.Init(p.Cfg.Stripe.APIKey, nil)

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "subsync_gateway_requests_total",
		Help: "Payment gateway calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	p.Registry.MustRegister(requests)

	return &Gateway{
		api:      api,
		log:      p.Log.Named("gateway.stripe"),
		requests: requests,
	}
}

func (g *Gateway) CreateCustomer(ctx context.Context, in domain.CreateCustomerInput) (string, error) {
	params := &stripe.CustomerParams{
		Name:  stripe.String(in.Name),
		Email: stripe.String(in.Email),
	}
	params.Context = ctx
	params.AddMetadata("user_id", in.UserID)

	customer, err := g.api.Customers.New(params)
	if err != nil {
		g.requests.WithLabelValues("create_customer", "error").Inc()
		return "", classify(err)
	}

	g.requests.WithLabelValues("create_customer", "ok").Inc()
	g.log.Info("gateway customer created", zap.String("customer_reference", customer.ID))
	return customer.ID, nil
}

func (g *Gateway) CreateAndAttachPaymentMethod(ctx context.Context, in domain.CreatePaymentMethodInput) (string, error) {
	createParams := &stripe.PaymentMethodParams{
		Type: stripe.String("card"),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(in.CardNumber),
			ExpMonth: stripe.String(strconv.Itoa(in.ExpMonth)),
			ExpYear:  stripe.String(strconv.Itoa(in.ExpYear)),
			CVC:      stripe.String(in.CVC),
		},
	}
	createParams.Context = ctx

	paymentMethod, err := g.api.PaymentMethods.New(createParams)
	if err != nil {
		g.requests.WithLabelValues("create_payment_method", "error").Inc()
		return "", classify(err)
	}

	attachParams := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(in.CustomerReference),
	}
	attachParams.Context = ctx
	if _, err := g.api.PaymentMethods.Attach(paymentMethod.ID, attachParams); err != nil {
		g.requests.WithLabelValues("create_payment_method", "error").Inc()
		return "", classify(err)
	}

	updateParams := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethod.ID),
		},
	}
	updateParams.Context = ctx
	if _, err := g.api.Customers.Update(in.CustomerReference, updateParams); err != nil {
		g.requests.WithLabelValues("create_payment_method", "error").Inc()
		return "", classify(err)
	}

	g.requests.WithLabelValues("create_payment_method", "ok").Inc()
	g.log.Info("gateway payment method attached",
		zap.String("customer_reference", in.CustomerReference),
		zap.String("payment_method_reference", paymentMethod.ID))
	return paymentMethod.ID, nil
}

func (g *Gateway) CreateSubscription(ctx context.Context, customerReference, priceReference string) (string, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerReference),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceReference)},
		},
	}
	params.Context = ctx

	subscription, err := g.api.Subscriptions.New(params)
	if err != nil {
		g.requests.WithLabelValues("create_subscription", "error").Inc()
		return "", classify(err)
	}

	g.requests.WithLabelValues("create_subscription", "ok").Inc()
	g.log.Info("gateway subscription created",
		zap.String("customer_reference", customerReference),
		zap.String("subscription_reference", subscription.ID))
	return subscription.ID, nil
}

// classify maps a Stripe SDK failure onto the two local error kinds. Card
// rejections keep the gateway's user-facing message; everything else
// (rate limit, invalid request, auth, connectivity, unclassified) becomes
// a GatewayError with the raw error text.
func classify(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Type == stripe.ErrorTypeCard {
			msg := stripeErr.Msg
			if msg == "" {
				msg = stripeErr.Error()
			}
			return &domain.CardError{Message: msg}
		}
		return &domain.GatewayError{Message: stripeErr.Error()}
	}
	return &domain.GatewayError{Message: err.Error()}
}
