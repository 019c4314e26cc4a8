package dentist

import (
	"go.uber.org/fx"

	"github.com/crownlab/crownlab/internal/dentist/repository"
	"github.com/crownlab/crownlab/internal/dentist/service"
)

var Module = fx.Module("dentist.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
