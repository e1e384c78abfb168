package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"saldo/internal/amqp"
	"saldo/internal/config"
	"saldo/internal/log"
	"saldo/internal/services"
	"saldo/internal/storage"
)

// load reads the .env file and environment, applies flag overrides,
// validates the result and installs the process logger.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	a.logger = log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentCLI,
		Output:    cmd.ErrOrStderr(),
	})
	log.SetDefault(a.logger)
	a.cfg = cfg
	return nil
}

// openService opens the store and, when AMQP is configured, the event
// publisher. The returned cleanup closes both.
func (a *app) openService(ctx context.Context) (*services.ExpenseService, func(), error) {
	repo, err := storage.Open(ctx, a.cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database %s: %w", a.cfg.DBPath, err)
	}
	a.logger.Debug("Opened database", "db_path", repo.Path())

	var (
		publisher services.Publisher
		client    *amqp.Client
	)
	if a.cfg.AMQPEnabled() {
		client, err = amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPRoutingKey)
		if err != nil {
			// Events are optional; the tracker keeps working without a broker.
			a.logger.Warn("AMQP unavailable, expense events disabled",
				log.NewFields().WithError(err).ToSlice()...)
		} else {
			publisher = client
			a.logger.Info("Publishing expense events",
				"exchange", a.cfg.AMQPExchange,
				"routing_key", a.cfg.AMQPRoutingKey)
		}
	}

	cleanup := func() {
		if client != nil {
			if err := client.Close(); err != nil {
				a.logger.Warn("Failed to close AMQP client", log.FieldError, err)
			}
		}
		if err := repo.Close(); err != nil {
			a.logger.Warn("Failed to close database", log.FieldError, err)
		}
	}
	return services.NewExpenseService(repo, publisher), cleanup, nil
}
