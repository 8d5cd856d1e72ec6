package subscription

import (
	"github.com/billingworks/subsync/internal/subscription/repository"
	"github.com/billingworks/subsync/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
