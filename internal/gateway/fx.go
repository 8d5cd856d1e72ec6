package gateway

import (
	stripegateway "github.com/billingworks/subsync/internal/gateway/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("gateway",
	fx.Provide(stripegateway.New),
)
