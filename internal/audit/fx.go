package audit

import (
	"github.com/crownlab/crownlab/internal/audit/repository"
	"github.com/crownlab/crownlab/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
