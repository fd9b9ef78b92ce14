package cmd

import (
	"taskreminder/internal/worker"

	"github.com/spf13/cobra"
)

func workerCmd() *cobra.Command {
	var (
		consumerName string
		workers      int
		noScan       bool
	)

	var command = &cobra.Command{
		Use:   "worker",
		Short: "Start scanner, retry scheduler and reminder dispatchers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return worker.Run(worker.Config{
				ConsumerName: consumerName,
				Workers:      workers,
				NoScan:       noScan,
			}, loadConfig())
		},
	}

	command.Flags().StringVar(&consumerName, "consumer", "worker-1", "Worker consumer name prefix")
	command.Flags().IntVarP(&workers, "workers", "w", 0, "Number of dispatch consumers (default DISPATCH_WORKERS)")
	command.Flags().BoolVar(&noScan, "no-scan", false, "Do not run the deadline scanner in this process")

	return command
}
