package plan

import (
	"github.com/billingworks/subsync/internal/config"
	"go.uber.org/fx"
)

const (
	BasicProductName = "basic_subscription"
	ProProductName   = "pro_subscription"
)

// Catalog resolves the fixed plan-name set to the gateway price references
// configured for this deployment.
type Catalog struct {
	basicPriceID string
	proPriceID   string
}

var Module = fx.Module("plan",
	fx.Provide(NewCatalog),
)

func NewCatalog(cfg config.Config) *Catalog {
	return &Catalog{
		basicPriceID: cfg.Stripe.BasicPriceID,
		proPriceID:   cfg.Stripe.ProPriceID,
	}
}

func (c *Catalog) Products() []string {
	return []string{BasicProductName, ProProductName}
}

// PriceByProduct returns the price reference for a product name. The
// boolean is false for unknown products.
func (c *Catalog) PriceByProduct(product string) (string, bool) {
	switch product {
	case BasicProductName:
		return c.basicPriceID, true
	case ProProductName:
		return c.proPriceID, true
	default:
		return "", false
	}
}
