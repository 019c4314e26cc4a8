package product

import (
	"go.uber.org/fx"

	"github.com/crownlab/crownlab/internal/product/repository"
	"github.com/crownlab/crownlab/internal/product/service"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
