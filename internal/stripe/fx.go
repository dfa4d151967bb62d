package stripe

import (
	"github.com/rushr-app/rushr/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("stripe",
	fx.Provide(func(cfg config.Config) Client {
		return NewClient(cfg.Stripe.SecretKey)
	}),
)
