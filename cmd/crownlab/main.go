package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/crownlab/crownlab/internal/config"
	"github.com/crownlab/crownlab/internal/logger"
	"github.com/crownlab/crownlab/internal/migration"
	"github.com/crownlab/crownlab/internal/server"
	"github.com/crownlab/crownlab/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
