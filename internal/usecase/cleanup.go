package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/semmidev/bqvault/internal/domain"
)

// Cleanup prunes backup sets and reports that fell out of retention.
type Cleanup struct {
	enumerator          *Enumerator
	deleter             *Delete
	reportTargets       []ReportTarget
	logger              Logger
	pruneAfterDays      int
	reportRetentionDays int
	prune               func(context.Context, []domain.BackupSetView) domain.DeleteResult
	now                 func() time.Time
}

func NewCleanup(
	enumerator *Enumerator,
	deleter *Delete,
	reportTargets []ReportTarget,
	logger Logger,
	pruneAfterDays int,
	reportRetentionDays int,
) *Cleanup {
	uc := &Cleanup{
		enumerator:          enumerator,
		deleter:             deleter,
		reportTargets:       reportTargets,
		logger:              logger,
		pruneAfterDays:      pruneAfterDays,
		reportRetentionDays: reportRetentionDays,
		now:                 time.Now,
	}
	uc.prune = uc.PruneBackups
	return uc
}

// SetPruner replaces the function Execute uses to delete expired sets, so a
// caller can wrap PruneBackups with reporting.
func (uc *Cleanup) SetPruner(fn func(context.Context, []domain.BackupSetView) domain.DeleteResult) {
	if fn != nil {
		uc.prune = fn
	}
}

// Execute is the scheduled entry point. Zero retention disables the matching
// half of the cleanup.
func (uc *Cleanup) Execute(ctx context.Context) error {
	uc.logger.Infof("Starting cleanup, backup retention: %d days, report retention: %d days",
		uc.pruneAfterDays, uc.reportRetentionDays)

	if uc.pruneAfterDays > 0 {
		sets, err := uc.ExpiredSets(ctx, uc.pruneAfterDays)
		if err != nil {
			return err
		}
		if len(sets) > 0 {
			result := uc.prune(ctx, sets)
			if !result.Success() {
				uc.logger.Errorf("Pruning left %d container(s) behind", result.FailureCount)
			}
		}
	}

	uc.PruneReports(ctx)

	uc.logger.Infof("Cleanup completed")
	return nil
}

// PruneReports deletes reports older than the report retention from every
// target. Failures are logged per target.
func (uc *Cleanup) PruneReports(ctx context.Context) {
	if uc.reportRetentionDays <= 0 || len(uc.reportTargets) == 0 {
		return
	}
	uc.cleanupTargets(ctx, uc.now().AddDate(0, 0, -uc.reportRetentionDays))
}

// ExpiredSets lists the backup sets taken more than days ago, newest first.
func (uc *Cleanup) ExpiredSets(ctx context.Context, days int) ([]domain.BackupSetView, error) {
	if days <= 0 {
		return nil, domain.NewValidationError("prune age must be positive, got %d", days)
	}

	containers, err := uc.enumerator.ListBackupContainers(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := uc.now().UTC().AddDate(0, 0, -days)
	var expired []domain.BackupSetView
	for _, set := range GroupByInstant(containers) {
		if set.Instant.Before(cutoff) {
			expired = append(expired, set)
		}
	}
	return expired, nil
}

func (uc *Cleanup) PruneBackups(ctx context.Context, sets []domain.BackupSetView) domain.DeleteResult {
	var containers []domain.BackupContainer
	for _, set := range sets {
		uc.logger.Infof("Pruning backup %s (%d dataset(s))", set.Key, len(set.Containers))
		containers = append(containers, set.Containers...)
	}
	return uc.deleter.Execute(ctx, containers)
}

func (uc *Cleanup) cleanupTargets(ctx context.Context, cutoff time.Time) {
	var wg sync.WaitGroup

	for _, target := range uc.reportTargets {
		wg.Add(1)
		go func(t ReportTarget) {
			defer wg.Done()

			if err := uc.cleanupTarget(ctx, t, cutoff); err != nil {
				uc.logger.Errorf("Report cleanup failed for %s: %v", t.Name, err)
			}
		}(target)
	}

	wg.Wait()
}

func (uc *Cleanup) cleanupTarget(ctx context.Context, target ReportTarget, cutoff time.Time) error {
	names, err := target.Store.ListOlderThan(ctx, cutoff)
	if err != nil {
		names, err = uc.fallbackListReports(ctx, target, cutoff)
		if err != nil {
			return err
		}
	}

	deleted := 0
	for _, name := range names {
		if err := target.Store.Delete(ctx, name); err != nil {
			uc.logger.Errorf("Failed to delete report %s from %s: %v", name, target.Name, err)
		} else {
			deleted++
		}
	}

	uc.logger.Infof("Deleted %d old report(s) from %s", deleted, target.Name)
	return nil
}

func (uc *Cleanup) fallbackListReports(ctx context.Context, target ReportTarget, cutoff time.Time) ([]string, error) {
	names, err := target.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	old := make([]string, 0)
	for _, name := range names {
		ts, err := extractTimestamp(name)
		if err != nil {
			uc.logger.Warnf("Could not parse timestamp from %s: %v", name, err)
			continue
		}
		if ts.Before(cutoff) {
			old = append(old, name)
		}
	}
	return old, nil
}
