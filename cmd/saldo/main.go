package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/saldotech/saldo/internal/clock"
	"github.com/saldotech/saldo/internal/config"
	"github.com/saldotech/saldo/internal/migration"
	"github.com/saldotech/saldo/internal/observability"
	"github.com/saldotech/saldo/internal/server"
	"github.com/saldotech/saldo/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema and seed data are in place before the server starts
		// accepting uploads.
		migration.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
