package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/mocky70025/suiren/internal/clock"
	"github.com/mocky70025/suiren/internal/config"
	"github.com/mocky70025/suiren/internal/logger"
	"github.com/mocky70025/suiren/internal/migration"
	"github.com/mocky70025/suiren/internal/observability/metrics"
	"github.com/mocky70025/suiren/internal/server"
	"github.com/mocky70025/suiren/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		metrics.Module,
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
