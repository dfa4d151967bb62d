package notification

import (
	"github.com/rushr-app/rushr/internal/notification/dispatch"
	"github.com/rushr-app/rushr/internal/notification/repository"
	"github.com/rushr-app/rushr/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(
		repository.Provide,
		service.New,
		dispatch.New,
	),
	fx.Invoke(dispatch.Register),
)
