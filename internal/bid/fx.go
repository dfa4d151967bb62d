package bid

import (
	"github.com/rushr-app/rushr/internal/bid/repository"
	"github.com/rushr-app/rushr/internal/bid/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bid",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
