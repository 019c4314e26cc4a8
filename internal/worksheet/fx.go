package worksheet

import (
	"go.uber.org/fx"

	"github.com/crownlab/crownlab/internal/worksheet/repository"
	"github.com/crownlab/crownlab/internal/worksheet/service"
)

var Module = fx.Module("worksheet.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
