package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/billingworks/subsync/internal/clock"
	"github.com/billingworks/subsync/internal/config"
	"github.com/billingworks/subsync/internal/customer"
	"github.com/billingworks/subsync/internal/db"
	"github.com/billingworks/subsync/internal/gateway"
	"github.com/billingworks/subsync/internal/locker"
	"github.com/billingworks/subsync/internal/migration"
	"github.com/billingworks/subsync/internal/observability"
	"github.com/billingworks/subsync/internal/payment"
	"github.com/billingworks/subsync/internal/plan"
	"github.com/billingworks/subsync/internal/seed"
	"github.com/billingworks/subsync/internal/server"
	"github.com/billingworks/subsync/internal/subscription"
	"github.com/billingworks/subsync/internal/webhook"
	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "subsync",
		Short: "Subscription billing service",
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newSeedCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create development account data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed()
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Apply the schema, then run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runServe()
			return nil
		},
	}
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func coreModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
	)
}

func runMigrate() error {
	app := fx.New(
		coreModules(),
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	return app.Stop(context.Background())
}

func runServe() {
	app := fx.New(
		coreModules(),
		locker.Module,
		plan.Module,
		customer.Module,
		payment.Module,
		gateway.Module,
		subscription.Module,
		webhook.Module,
		server.Module,
	)
	app.Run()
}

func runSeed() error {
	app := fx.New(
		coreModules(),
		fx.Invoke(func(conn *gorm.DB, genID *snowflake.Node, log *zap.Logger) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return seed.Run(ctx, conn, genID, log)
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	return app.Stop(context.Background())
}
