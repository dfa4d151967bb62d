package sms

import (
	"github.com/rushr-app/rushr/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.sms",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	if cfg.SMS.AccountSID == "" || cfg.SMS.AuthToken == "" {
		return &NoOpProvider{}
	}
	return NewTwilio(Config{
		AccountSID: cfg.SMS.AccountSID,
		AuthToken:  cfg.SMS.AuthToken,
		From:       cfg.SMS.From,
	})
}
