package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/campustix/campustix/internal/clock"
	"github.com/campustix/campustix/internal/config"
	"github.com/campustix/campustix/internal/migration"
	"github.com/campustix/campustix/internal/observability"
	"github.com/campustix/campustix/internal/server"
	"github.com/campustix/campustix/pkg/db"
	"github.com/campustix/campustix/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
