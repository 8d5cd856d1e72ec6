package domain

import "context"

// PaymentsGateway isolates every remote call to the payment gateway. Remote
// failures are classified into exactly two kinds before they leave an
// implementation: *CardError when the submitted instrument was rejected
// (user-correctable), *GatewayError for everything else. Callers branch
// user-facing behavior strictly on that split.
type PaymentsGateway interface {
	// CreateCustomer creates a gateway customer tagged with a metadata link
	// back to the local user and returns the gateway-assigned id. No local
	// persistence happens here.
	CreateCustomer(ctx context.Context, in CreateCustomerInput) (string, error)

	// CreateAndAttachPaymentMethod tokenizes the card, attaches it to the
	// given gateway customer and sets it as that customer's default payment
	// method. The three remote calls are one logical step: if any sub-call
	// fails the whole step fails.
	CreateAndAttachPaymentMethod(ctx context.Context, in CreatePaymentMethodInput) (string, error)

	// CreateSubscription starts a recurring subscription for the customer
	// at the given price and returns the gateway subscription id.
	CreateSubscription(ctx context.Context, customerReference, priceReference string) (string, error)
}

type CreateCustomerInput struct {
	Name   string
	Email  string
	UserID string
}

type CreatePaymentMethodInput struct {
	CustomerReference string
	CardNumber        string
	ExpMonth          int
	ExpYear           int
	CVC               string
}
