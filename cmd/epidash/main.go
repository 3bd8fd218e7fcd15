package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/opendpho/epidash/internal/config"
	"github.com/opendpho/epidash/internal/disease"
	"github.com/opendpho/epidash/internal/facttable"
	"github.com/opendpho/epidash/internal/importrun"
	"github.com/opendpho/epidash/internal/ingest"
	"github.com/opendpho/epidash/internal/migration"
	"github.com/opendpho/epidash/internal/observability"
	"github.com/opendpho/epidash/internal/server"
	"github.com/opendpho/epidash/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		disease.Module,
		facttable.Module,
		importrun.Module,
		ingest.Module,
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
