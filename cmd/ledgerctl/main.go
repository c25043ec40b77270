package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/retail-ledger/cmd/ledgerctl/cli"
	"github.com/odyssey-erp/retail-ledger/internal/app"
	"github.com/odyssey-erp/retail-ledger/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(cli.Env{
		Out: os.Stdout,
		Jobs: func(redisAddr string) (cli.JobsClient, error) {
			return jobs.NewClient(asynq.RedisClientOpt{Addr: redisAddr}), nil
		},
		Services: inlineServices,
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ledgerctl:", err)
		os.Exit(1)
	}
}

// inlineServices connects to the ledger stores using the service configuration.
func inlineServices(ctx context.Context) (*cli.Services, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	infra, err := app.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	services := app.NewServices(infra, cfg, nil, logger)
	return &cli.Services{
		Tenants:   services.Tenants,
		Reports:   services.Reports,
		Integrity: jobs.NewPostgresIntegrityStore(infra.Pool),
		Close:     func() { infra.Close(logger) },
	}, nil
}
