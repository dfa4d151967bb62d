package customer

import (
	"github.com/rushr-app/rushr/internal/customer/repository"
	"github.com/rushr-app/rushr/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
