package connect

import (
	"github.com/rushr-app/rushr/internal/connect/repository"
	"github.com/rushr-app/rushr/internal/connect/service"
	"go.uber.org/fx"
)

var Module = fx.Module("connect",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
