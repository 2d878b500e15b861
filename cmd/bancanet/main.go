package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/bancanet/bancanet/internal/activeops"
	"github.com/bancanet/bancanet/internal/clock"
	"github.com/bancanet/bancanet/internal/closing"
	closingdomain "github.com/bancanet/bancanet/internal/closing/domain"
	"github.com/bancanet/bancanet/internal/commission"
	"github.com/bancanet/bancanet/internal/config"
	"github.com/bancanet/bancanet/internal/directory"
	"github.com/bancanet/bancanet/internal/observability"
	"github.com/bancanet/bancanet/internal/scheduler"
	"github.com/bancanet/bancanet/internal/settlement"
	settlementdomain "github.com/bancanet/bancanet/internal/settlement/domain"
	"github.com/bancanet/bancanet/internal/statement"
	"github.com/bancanet/bancanet/pkg/db"
	"github.com/bancanet/bancanet/pkg/log"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// The monolith wires every module, including the commission resolver the
// upstream sale path consumes in-process.
func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		activeops.Module,
		observability.Module,

		statement.Module,
		directory.Module,
		commission.Module,
		settlement.Module,
		closing.Module,
		scheduler.Module,

		fx.Invoke(migrateOwnedTables),
		fx.Invoke(scheduler.Start),
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

func migrateOwnedTables(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&settlementdomain.Config{},
		&closingdomain.MonthlyClosingBalance{},
	)
}
