// Package cli implements the ledgerctl operator commands.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/retail-ledger/jobs"
)

// JobsClient enqueues background jobs.
type JobsClient interface {
	EnqueueIntegrity(ctx context.Context, payload jobs.IntegrityPayload) (*asynq.TaskInfo, error)
	EnqueueWarmup(ctx context.Context, payload jobs.WarmupPayload) (*asynq.TaskInfo, error)
	Close() error
}

// Services are the in-process dependencies used by commands that run inline.
type Services struct {
	Tenants   jobs.TenantResolver
	Reports   jobs.AgeingBuilder
	Integrity jobs.IntegrityStore
	Close     func()
}

// Env supplies command dependencies. Tests replace the constructors.
type Env struct {
	Out      io.Writer
	Jobs     func(redisAddr string) (JobsClient, error)
	Services func(ctx context.Context) (*Services, error)
}

type rootFlags struct {
	redisAddr string
	json      bool
}

// NewRootCommand assembles the ledgerctl command tree.
func NewRootCommand(env Env) *cobra.Command {
	if env.Out == nil {
		env.Out = os.Stdout
	}
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate the retail ledger",
		Long:          "Trigger ledger background jobs and run ageing and integrity checks against the ledger database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(env.Out)
	root.PersistentFlags().StringVar(&flags.redisAddr, "redis", envOr("REDIS_ADDR", "127.0.0.1:6379"), "Redis address for the job queue")
	root.PersistentFlags().BoolVar(&flags.json, "json", false, "Print JSON instead of a table")

	root.AddCommand(newJobsCommand(env, flags))
	root.AddCommand(newAgeingCommand(env, flags))
	root.AddCommand(newIntegrityCommand(env, flags))
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
