package cmd

import (
	"context"
	"taskreminder/internal/api"
	"taskreminder/internal/infra/sqlstore"
	"taskreminder/internal/usecase"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func apiCmd() *cobra.Command {
	var port int
	var command = &cobra.Command{
		Use:   "api",
		Short: "Start task API server",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if port == 0 {
				port = cfg.HTTP.Port
			}

			store, err := sqlstore.Open(context.Background(), cfg.Database)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to open task store")
			}
			defer store.Close()

			log.Info().Msgf("API server using %s database, display zone %s", cfg.Database.Driver, cfg.Time.Display())
			server := api.NewServer(usecase.TaskService{
				Store:     store,
				Display:   cfg.Time.Display(),
				Lookahead: cfg.Scanner.Lookahead,
			})
			server.Run(port)
		},
	}

	command.Flags().IntVarP(&port, "port", "p", 0, "Port to run the server on (default HTTP_PORT)")
	return command
}
