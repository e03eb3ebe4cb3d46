package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/metinatakli/seat-reservation-engine/internal/booking"
	"github.com/metinatakli/seat-reservation-engine/internal/config"
	"github.com/metinatakli/seat-reservation-engine/internal/events"
	"github.com/metinatakli/seat-reservation-engine/internal/repository"
	"golang.org/x/sync/errgroup"
)

// RunWorker runs the expiry sweeper and, when Kafka brokers are configured,
// the payment outcome consumer until SIGINT or SIGTERM.
func RunWorker() error {
	f := parseFlags()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}

	logger, logFile := newLogger(cfg, workerServiceName)
	defer logFile.Close()

	shutdownTelemetry, err := initTelemetry(cfg, workerServiceName)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	infra, err := newInfrastructure(cfg, logger, f.migrate)
	if err != nil {
		return err
	}
	defer infra.Close()

	var leader booking.LeaderLock
	if infra.redis != nil {
		leader = repository.NewRedisLeaderLock(infra.redis, instanceID(cfg.Worker.InstanceID))
	}

	sweeper := booking.NewSweeper(infra.engine, leader, cfg.Worker.SweepInterval, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sweeper.Run(ctx)
	})

	if len(cfg.Events.Brokers) > 0 && cfg.PaymentOutcomes.Topic != "" {
		consumer := events.NewPaymentOutcomeConsumer(
			cfg.Events.Brokers,
			cfg.PaymentOutcomes.GroupID,
			cfg.PaymentOutcomes.Topic,
			infra.engine,
			logger,
		)
		defer consumer.Close()

		g.Go(func() error {
			return consumer.Run(ctx)
		})
	}

	logger.Info("starting worker",
		"env", cfg.Env,
		"version", version,
		"sweep_interval", cfg.Worker.SweepInterval,
		"leader_election", leader != nil,
	)

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("stopped worker")

	return nil
}

func instanceID(configured string) string {
	if configured != "" {
		return configured
	}

	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}

	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
