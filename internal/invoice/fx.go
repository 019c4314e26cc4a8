package invoice

import (
	"go.uber.org/fx"

	"github.com/crownlab/crownlab/internal/invoice/repository"
	"github.com/crownlab/crownlab/internal/invoice/service"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
