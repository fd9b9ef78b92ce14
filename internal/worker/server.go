// internal/worker/server.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"taskreminder/internal/config"
	"taskreminder/internal/domain"
	"taskreminder/internal/infra/redisq"
	"taskreminder/internal/infra/sqlstore"
	"taskreminder/internal/infra/telegram"
	"taskreminder/internal/usecase"
	"taskreminder/pkg/backoff"

	"github.com/rs/zerolog/log"
)

type Config struct {
	ConsumerName string
	Workers      int
	// NoScan runs only the dispatch side, for deployments with a
	// dedicated scanner process.
	NoScan bool
}

// Run starts the deadline scanner, the delayed-job scheduler and a pool of
// dispatch consumers, and blocks until SIGINT or SIGTERM.
func Run(cfg Config, appCfg *config.Config) error {
	if appCfg.Telegram.Token == "" {
		return errors.New("TELEGRAM_TOKEN is required to run the worker")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = appCfg.Dispatcher.Workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := redisq.New(appCfg.Redis)
	defer cli.Close()
	if err := cli.Init(ctx); err != nil {
		return err
	}

	// open every dependency before the first goroutine starts
	var store *sqlstore.Store
	if !cfg.NoScan {
		var err error
		store, err = sqlstore.Open(ctx, appCfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	var wg sync.WaitGroup

	// Run scheduler
	sched := redisq.NewScheduler(cli, appCfg.Dispatcher.SchedulerInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Ctx(ctx).Error().Err(err).Msg("scheduler stopped with error")
		}
	}()

	if store != nil {
		scanner := NewScanner(store, cli, appCfg)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := scanner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Ctx(ctx).Error().Err(err).Msg("scanner stopped with error")
			}
		}()
	}

	dispatcher := usecase.Dispatcher{
		Channel:   telegram.New(appCfg.Telegram, appCfg.Dispatcher.Timeout),
		Display:   appCfg.Time.Display(),
		Lookahead: appCfg.Scanner.Lookahead,
		Timeout:   appCfg.Dispatcher.Timeout,
	}
	router := usecase.Router{domain.JobTypeReminder: dispatcher.Handle}
	policy := backoff.ByName(appCfg.Dispatcher.Backoff, appCfg.Dispatcher.RetryDelay, appCfg.Dispatcher.MaxBackoff)

	log.Ctx(ctx).Info().
		Str("consumer", cfg.ConsumerName).
		Int("workers", cfg.Workers).
		Int("max_attempts", appCfg.Dispatcher.MaxAttempts).
		Str("backoff", appCfg.Dispatcher.Backoff).
		Msg("worker started")

	for i := 0; i < cfg.Workers; i++ {
		consumer := usecase.Consumer{
			Q:            cli,
			ConsumerName: fmt.Sprintf("%s-%d", cfg.ConsumerName, i),
			Block:        appCfg.Dispatcher.ClaimBlock,
			Backoff:      policy,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx, router.Handle); err != nil && !errors.Is(err, context.Canceled) {
				log.Ctx(ctx).Error().Err(err).Str("consumer", consumer.ConsumerName).Msg("consumer stopped with error")
			}
		}()
	}

	wg.Wait()
	log.Info().Msg("worker stopped")
	return nil
}

// NewScanner wires a deadline scanner to the task store and the dispatch queue.
func NewScanner(store *sqlstore.Store, cli *redisq.Client, appCfg *config.Config) usecase.Scanner {
	return usecase.Scanner{
		Store:     store,
		Enqueuer:  usecase.Enqueuer{Q: cli, MaxAttempts: appCfg.Dispatcher.MaxAttempts},
		Interval:  appCfg.Scanner.Interval,
		Lookahead: appCfg.Scanner.Lookahead,
		Location:  appCfg.Time.Canonical(),
	}
}
