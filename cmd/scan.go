package cmd

import (
	"context"
	"taskreminder/internal/infra/redisq"
	"taskreminder/internal/infra/sqlstore"
	"taskreminder/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one deadline scan and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			ctx := context.Background()

			store, err := sqlstore.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			cli := redisq.New(cfg.Redis)
			defer cli.Close()
			if err := cli.Init(ctx); err != nil {
				return err
			}

			res, err := worker.NewScanner(store, cli, cfg).Tick(ctx)
			if err != nil {
				return err
			}
			log.Info().
				Int("found", res.Found).
				Int("marked", res.Marked).
				Int("enqueued", res.Enqueued).
				Msg("scan finished")
			return nil
		},
	}
}
