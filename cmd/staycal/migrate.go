package main

import (
	"github.com/spf13/cobra"

	"staycal/internal/infra/config"
	"staycal/internal/infra/db/mongo"
	"staycal/internal/infra/db/postgres"
	"staycal/internal/infra/db/scylla"
	"staycal/internal/infra/inbox"
	infraoutbox "staycal/internal/infra/outbox"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and indexes for the configured store driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			switch cfg.StoreDriver {
			case config.DriverMongo:
				client, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
				if err != nil {
					return err
				}
				defer client.Close(ctx)
				if err := client.EnsureIndexes(ctx); err != nil {
					return err
				}
				if err := infraoutbox.NewStore(client.DB).EnsureIndexes(ctx); err != nil {
					return err
				}
				if err := inbox.NewStore(client.DB, cfg.KafkaGroupID).EnsureIndexes(ctx); err != nil {
					return err
				}
			case config.DriverPostgres:
				pool, err := postgres.NewPool(ctx, cfg.PostgresDSN, logger)
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := postgres.Migrate(ctx, pool); err != nil {
					return err
				}
			case config.DriverScylla:
				session, err := scylla.NewSession(ctx, cfg, logger)
				if err != nil {
					return err
				}
				session.Close()
			default:
				logger.Info("memory driver needs no migration")
				return nil
			}
			logger.Info("migration complete", "driver", cfg.StoreDriver)
			return nil
		},
	}
}
