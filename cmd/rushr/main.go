package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/rushr-app/rushr/internal/bid"
	"github.com/rushr-app/rushr/internal/clock"
	"github.com/rushr-app/rushr/internal/config"
	"github.com/rushr-app/rushr/internal/connect"
	"github.com/rushr-app/rushr/internal/customer"
	"github.com/rushr-app/rushr/internal/escrow"
	"github.com/rushr-app/rushr/internal/job"
	"github.com/rushr-app/rushr/internal/migration"
	"github.com/rushr-app/rushr/internal/notification"
	"github.com/rushr-app/rushr/internal/observability"
	"github.com/rushr-app/rushr/internal/providers/email"
	"github.com/rushr-app/rushr/internal/providers/sms"
	"github.com/rushr-app/rushr/internal/ratelimit"
	"github.com/rushr-app/rushr/internal/scheduler"
	"github.com/rushr-app/rushr/internal/server"
	"github.com/rushr-app/rushr/internal/stripe"
	"github.com/rushr-app/rushr/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		stripe.Module,
		email.Module,
		sms.Module,
		ratelimit.Module,

		customer.Module,
		notification.Module,
		job.Module,
		bid.Module,
		connect.Module,
		escrow.Module,

		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
