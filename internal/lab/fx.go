package lab

import (
	"go.uber.org/fx"

	"github.com/crownlab/crownlab/internal/lab/repository"
	"github.com/crownlab/crownlab/internal/lab/service"
)

var Module = fx.Module("lab.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
