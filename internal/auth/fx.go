package auth

import (
	"go.uber.org/fx"

	"github.com/crownlab/crownlab/internal/auth/repository"
	"github.com/crownlab/crownlab/internal/auth/service"
	"github.com/crownlab/crownlab/internal/auth/session"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(session.NewManager),
)
