package job

import (
	"github.com/rushr-app/rushr/internal/job/repository"
	"github.com/rushr-app/rushr/internal/job/service"
	"go.uber.org/fx"
)

var Module = fx.Module("job",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
