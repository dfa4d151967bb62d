package escrow

import (
	"github.com/rushr-app/rushr/internal/escrow/repository"
	"github.com/rushr-app/rushr/internal/escrow/service"
	"go.uber.org/fx"
)

var Module = fx.Module("escrow",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
