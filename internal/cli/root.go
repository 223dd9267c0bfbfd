package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/semmidev/bqvault/internal/app"
	"github.com/semmidev/bqvault/internal/config"
	"github.com/semmidev/bqvault/internal/domain"
)

// Service is what the commands need from the application.
type Service interface {
	Backup(ctx context.Context, datasets []string, instant *time.Time, retentionDays *int) ([]domain.BatchResult, error)
	ListBackups(ctx context.Context) ([]domain.BackupSetView, error)
	Restore(ctx context.Context, instant time.Time, overwrite bool) ([]domain.RestoreOutcome, error)
	Delete(ctx context.Context, instant time.Time) (domain.DeleteResult, error)
	ExpiredSets(ctx context.Context, days int) ([]domain.BackupSetView, error)
	Prune(ctx context.Context, sets []domain.BackupSetView) domain.DeleteResult
	Run(ctx context.Context) error
	Shutdown()
}

// ErrPartialFailure makes the process exit non-zero when some members failed.
var ErrPartialFailure = errors.New("operation finished with failures")

type Opener func(ctx context.Context, cfg *config.Config) (Service, error)

type options struct {
	configPath string
	open       Opener
	prompt     Prompter
}

type Option func(*options)

// WithOpener replaces how the Service is built from the loaded config.
func WithOpener(open Opener) Option {
	return func(o *options) { o.open = open }
}

func WithPrompter(p Prompter) Option {
	return func(o *options) { o.prompt = p }
}

func NewRootCommand(opts ...Option) *cobra.Command {
	o := &options{
		open: func(ctx context.Context, cfg *config.Config) (Service, error) {
			return app.New(ctx, cfg)
		},
		prompt: huhPrompter{},
	}
	for _, opt := range opts {
		opt(o)
	}

	root := &cobra.Command{
		Use:   "bqvault",
		Short: "Point-in-time backups of BigQuery datasets",
		Long: `bqvault snapshots every table of a set of BigQuery datasets at one instant,
lists the resulting backup sets, restores them in place and deletes them.

Examples:
  # Back up the configured datasets now
  bqvault backup

  # Back up one dataset as it was two hours ago, keeping snapshots 30 days
  bqvault backup --dataset analytics --at 2024-12-15T12:30:22Z --retention-days 30

  # Pick a backup interactively and restore it over the live tables
  bqvault restore --overwrite

  # Run scheduled backups and pruning with Prometheus metrics
  bqvault serve`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&o.configPath, "config", "configs/config.yaml", "path to config file")

	root.AddCommand(
		newBackupCommand(o),
		newListCommand(o),
		newRestoreCommand(o),
		newDeleteCommand(o),
		newPruneCommand(o),
		newServeCommand(o),
		newAuthCommand(o),
	)

	return root
}

func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// withService loads the config, opens the Service and always shuts it down.
func (o *options) withService(ctx context.Context, fn func(Service) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	svc, err := o.open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer svc.Shutdown()

	return fn(svc)
}

// parseInstant accepts RFC3339, the container timestamp form and the
// "2006-01-02 15:04:05" form, all read as UTC.
func parseInstant(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "20060102_150405", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, domain.NewValidationError("cannot parse instant %q, use RFC3339 like 2024-12-15T14:30:22Z", s)
}
