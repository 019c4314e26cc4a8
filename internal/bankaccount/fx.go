package bankaccount

import (
	"go.uber.org/fx"

	"github.com/crownlab/crownlab/internal/bankaccount/repository"
	"github.com/crownlab/crownlab/internal/bankaccount/service"
)

var Module = fx.Module("bankaccount.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
