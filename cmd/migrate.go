package cmd

import (
	"context"
	"taskreminder/internal/infra/sqlstore"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply task store migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			cfg.Database.AutoMigrate = false

			ctx := context.Background()
			store, err := sqlstore.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			return store.Migrate(ctx)
		},
	}
}
