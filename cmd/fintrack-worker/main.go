package main

import (
	"context"
	"os"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cfg, logger, err := cli.Bootstrap(applog.ComponentWorker, (*config.Config).ValidateWorker)
	if err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	dial := func(ctx context.Context) (worker.EventSource, error) {
		client, err := amqp.DialWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	logger.Info("Starting audit worker", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	if err := worker.NewAuditWorker(logger, dial).Run(ctx); err != nil {
		logger.Error("Audit worker failed", applog.FieldError, err.Error())
		os.Exit(1)
	}
}
