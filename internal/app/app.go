package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/semmidev/bqvault/internal/adapter/compressor"
	"github.com/semmidev/bqvault/internal/adapter/storage"
	"github.com/semmidev/bqvault/internal/adapter/warehouse"
	"github.com/semmidev/bqvault/internal/config"
	"github.com/semmidev/bqvault/internal/domain"
	"github.com/semmidev/bqvault/internal/infrastructure/logger"
	"github.com/semmidev/bqvault/internal/infrastructure/metrics"
	"github.com/semmidev/bqvault/internal/infrastructure/scheduler"
	"github.com/semmidev/bqvault/internal/naming"
	"github.com/semmidev/bqvault/internal/retention"
	"github.com/semmidev/bqvault/internal/usecase"
)

type App struct {
	config        *config.Config
	logger        *logger.Logger
	warehouse     domain.Warehouse
	enumerator    *usecase.Enumerator
	backupUC      *usecase.Backup
	restoreUC     *usecase.Restore
	deleteUC      *usecase.Delete
	cleanupUC     *usecase.Cleanup
	reporter      *usecase.Reporter
	localStorage  *storage.LocalStorage
	reportTargets []usecase.ReportTarget
	metrics       *metrics.Recorder
	scheduler     *scheduler.Scheduler
}

type Option func(*App)

// WithWarehouse replaces the BigQuery client, mostly for tests.
func WithWarehouse(wh domain.Warehouse) Option {
	return func(a *App) { a.warehouse = wh }
}

func WithLogger(log *logger.Logger) Option {
	return func(a *App) { a.logger = log }
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{config: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		log, err := logger.New(cfg.App.Name, cfg.App.LogLevel, cfg.App.LogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.logger = log
	}
	log := a.logger

	log.Infof("Starting %s for project %s", cfg.App.Name, cfg.Warehouse.ProjectID)

	if a.warehouse == nil {
		bq, err := warehouse.NewBigQuery(ctx, &cfg.Warehouse)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize warehouse: %w", err)
		}
		a.warehouse = bq
	}

	localStorage, err := storage.NewLocal(cfg.Report.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local storage: %w", err)
	}
	a.localStorage = localStorage

	var comp domain.Compressor
	if cfg.Report.Compress {
		comp = compressor.NewGzip()
	}

	a.reportTargets = initializeReportTargets(ctx, cfg, log)

	codec := naming.NewCodec(cfg.Backup.Prefix)
	concurrency := cfg.Backup.MaxConcurrency

	a.enumerator = usecase.NewEnumerator(a.warehouse, codec, log.Named("enumerate"))
	a.backupUC = usecase.NewBackup(a.warehouse, a.enumerator, codec, retention.NewWindow(), log.Named("backup"), concurrency)
	a.restoreUC = usecase.NewRestore(a.warehouse, a.enumerator, log.Named("restore"), concurrency)
	a.deleteUC = usecase.NewDelete(a.warehouse, log.Named("delete"), concurrency)
	a.reporter = usecase.NewReporter(localStorage, a.reportTargets, comp, log.Named("report"))

	cleanupTargets := append([]usecase.ReportTarget{{Name: "local", Store: localStorage}}, a.reportTargets...)
	a.cleanupUC = usecase.NewCleanup(
		a.enumerator,
		a.deleteUC,
		cleanupTargets,
		log.Named("cleanup"),
		cfg.Backup.PruneAfterDays,
		cfg.Report.RetentionDays,
	)
	a.cleanupUC.SetPruner(a.Prune)

	a.metrics = metrics.NewRecorder()
	a.scheduler = scheduler.New(log.Named("scheduler"))

	return a, nil
}

func initializeReportTargets(ctx context.Context, cfg *config.Config, log *logger.Logger) []usecase.ReportTarget {
	var targets []usecase.ReportTarget

	for _, targetCfg := range cfg.GetEnabledReportTargets() {
		var store domain.ReportStore
		var err error

		switch targetCfg.Type {
		case "local":
			store, err = storage.NewLocal(targetCfg.Path)
			if err != nil {
				log.Errorf("Failed to initialize local target %s: %v", targetCfg.Path, err)
				continue
			}
			log.Infof("✓ Local report copy enabled (%s)", targetCfg.Path)

		case "gdrive":
			store, err = storage.NewGDrive(ctx, &targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Google Drive: %v", err)
				continue
			}
			log.Infof("✓ Google Drive reports enabled")

		case "s3":
			store, err = storage.NewS3(ctx, &targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize S3: %v", err)
				continue
			}
			log.Infof("✓ AWS S3 reports enabled (bucket: %s)", targetCfg.Bucket)

		case "telegram":
			store, err = storage.NewTelegram(&targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Telegram: %v", err)
				continue
			}
			log.Infof("✓ Telegram notifications enabled")

		default:
			log.Warnf("Unknown report target type: %s", targetCfg.Type)
			continue
		}

		targets = append(targets, usecase.ReportTarget{
			Name:  targetCfg.Type,
			Store: store,
		})
	}

	return targets
}

// Backup snapshots datasets at instant. Empty datasets fall back to the
// configured list, then to every non-backup dataset in the project. A nil
// retentionDays uses the configured retention.
func (a *App) Backup(ctx context.Context, datasets []string, instant *time.Time, retentionDays *int) ([]domain.BatchResult, error) {
	start := time.Now()
	report := usecase.NewReport(domain.OperationBackup, start, start)

	if len(datasets) == 0 {
		datasets = a.config.Backup.Datasets
	}
	days := a.config.Backup.RetentionDays
	if retentionDays != nil {
		days = *retentionDays
	}

	resources, err := a.enumerator.ListSourceResources(ctx, datasets)
	if err != nil {
		a.finish(ctx, report, start, 0, 0, err)
		return nil, err
	}
	a.logger.Infof("Backing up %d dataset(s)", len(resources))

	results, err := a.backupUC.Execute(ctx, resources, instant, days)
	if err != nil {
		a.finish(ctx, report, start, 0, 0, err)
		return nil, err
	}

	ok, failed := 0, 0
	for _, r := range results {
		ok += r.SuccessCount
		failed += r.FailureCount
	}
	if len(results) > 0 {
		report.Instant = results[0].Instant
	}
	report.Backups = results
	a.finish(ctx, report, start, ok, failed, nil)

	return results, nil
}

// ListBackups returns every backup set, newest first.
func (a *App) ListBackups(ctx context.Context) ([]domain.BackupSetView, error) {
	containers, err := a.enumerator.ListBackupContainers(ctx)
	if err != nil {
		return nil, err
	}
	return usecase.GroupByInstant(containers), nil
}

func (a *App) Restore(ctx context.Context, instant time.Time, overwrite bool) ([]domain.RestoreOutcome, error) {
	start := time.Now()
	report := usecase.NewReport(domain.OperationRestore, instant, start)

	outcomes, err := a.restoreUC.Execute(ctx, instant, overwrite)
	if err != nil {
		a.finish(ctx, report, start, 0, 0, err)
		return nil, err
	}

	ok, failed := 0, 0
	for _, o := range outcomes {
		ok += o.MembersRestored + o.ViewsRecreated
		failed += o.MembersFailed + o.ViewsFailed
	}
	report.Restores = outcomes
	a.finish(ctx, report, start, ok, failed, nil)

	return outcomes, nil
}

// Delete removes every container of the backup set taken at instant.
func (a *App) Delete(ctx context.Context, instant time.Time) (domain.DeleteResult, error) {
	start := time.Now()
	report := usecase.NewReport(domain.OperationDelete, instant, start)

	containers, err := a.enumerator.ListBackupContainers(ctx)
	if err != nil {
		a.finish(ctx, report, start, 0, 0, err)
		return domain.DeleteResult{}, err
	}

	set := usecase.ResolveBackupSet(containers, instant)
	if len(set) == 0 {
		err := domain.NewNotFoundError("delete backup", naming.Key(instant))
		a.finish(ctx, report, start, 0, 0, err)
		return domain.DeleteResult{}, err
	}

	result := a.deleteUC.Execute(ctx, set)
	report.Deletion = &result
	a.finish(ctx, report, start, result.SuccessCount, result.FailureCount, nil)

	return result, nil
}

// ExpiredSets lists backup sets older than days. Zero means the configured
// prune age.
func (a *App) ExpiredSets(ctx context.Context, days int) ([]domain.BackupSetView, error) {
	if days == 0 {
		days = a.config.Backup.PruneAfterDays
	}
	return a.cleanupUC.ExpiredSets(ctx, days)
}

func (a *App) Prune(ctx context.Context, sets []domain.BackupSetView) domain.DeleteResult {
	start := time.Now()
	report := usecase.NewReport(domain.OperationPrune, start, start)

	result := a.cleanupUC.PruneBackups(ctx, sets)
	report.Deletion = &result
	a.finish(ctx, report, start, result.SuccessCount, result.FailureCount, nil)

	return result
}

func (a *App) finish(ctx context.Context, report *domain.Report, start time.Time, ok, failed int, runErr error) {
	if runErr != nil {
		report.Error = runErr.Error()
	}
	report.FinishedAt = time.Now().UTC()
	usecase.Summarize(report)

	a.metrics.ObserveRun(string(report.Operation), report.Success, time.Since(start), ok, failed)

	log := a.logger.ForRun(string(report.Operation), report.ID)
	log.Infof("Run finished in %s: %d succeeded, %d failed", time.Since(start).Round(time.Millisecond), ok, failed)

	name, err := a.reporter.Publish(ctx, report)
	if err != nil {
		log.Errorf("Failed to publish %s report: %v", report.Operation, err)
		return
	}
	log.Infof("Report written to %s", a.localStorage.GetPath(name))
}

func (a *App) scheduledBackup(ctx context.Context) error {
	results, err := a.Backup(ctx, nil, nil, nil)
	if err != nil {
		return err
	}
	for _, r := range results {
		if !r.Success() {
			return fmt.Errorf("backup of %s finished with %d failure(s)", r.SourceResourceID, r.FailureCount)
		}
	}
	return nil
}

func (a *App) scheduledCleanup(ctx context.Context) error {
	return a.cleanupUC.Execute(ctx)
}

// Run registers the scheduled jobs, serves metrics and blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a.config.Backup.Schedule != "" {
		a.logger.Infof("Scheduling backup: %s", a.config.Backup.Schedule)
		if err := a.scheduler.AddJob("backup", a.config.Backup.Schedule, a.scheduledBackup); err != nil {
			return fmt.Errorf("failed to schedule backup: %w", err)
		}
	}

	cleanupSchedule := a.config.Backup.PruneSchedule
	if cleanupSchedule == "" {
		cleanupSchedule = "0 3 * * *"
	}
	a.logger.Infof("Scheduling cleanup: %s", cleanupSchedule)
	if err := a.scheduler.AddJob("cleanup", cleanupSchedule, a.scheduledCleanup); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	srv := metrics.NewServer(a.config.Metrics.ListenAddr, a.metrics)
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Infof("Metrics listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	a.scheduler.Start()
	a.logger.Infof("Scheduler started successfully")
	a.logger.Infof("Report destinations: local + %d remote target(s)", len(a.reportTargets))

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("metrics server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warnf("Metrics server shutdown: %v", err)
	}

	return runErr
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down application...")
	a.scheduler.Stop()
	a.logger.Close()
}
