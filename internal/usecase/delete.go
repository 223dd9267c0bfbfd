package usecase

import (
	"context"
	"errors"

	"github.com/semmidev/bqvault/internal/domain"
)

// Delete drops backup containers with everything inside them. It never asks
// for confirmation; callers are expected to have obtained it.
type Delete struct {
	warehouse   domain.Snapshotter
	logger      Logger
	concurrency int
}

func NewDelete(warehouse domain.Snapshotter, logger Logger, concurrency int) *Delete {
	return &Delete{
		warehouse:   warehouse,
		logger:      logger,
		concurrency: concurrency,
	}
}

func (uc *Delete) Execute(ctx context.Context, containers []domain.BackupContainer) domain.DeleteResult {
	uc.logger.Infof("Deleting %d backup container(s)", len(containers))

	outcomes := fanOut(ctx, uc.concurrency, containers,
		func(c domain.BackupContainer) string { return c.ID },
		func(ctx context.Context, c domain.BackupContainer) error {
			err := uc.warehouse.DeleteResource(ctx, c.ID)
			switch {
			case err == nil:
				uc.logger.Infof("Deleted %s", c.ID)
				return nil
			case errors.Is(err, domain.ErrNotFound):
				uc.logger.Warnf("%s is already gone", c.ID)
				return nil
			default:
				uc.logger.Errorf("Failed to delete %s: %v", c.ID, err)
				return err
			}
		},
	)

	var result domain.DeleteResult
	for _, o := range outcomes {
		if o.Success {
			result.SuccessCount++
			continue
		}
		result.FailureCount++
		result.Errors = append(result.Errors, o.TargetID+": "+o.Error)
	}

	uc.logger.Infof("Deleted %d container(s), %d failure(s)", result.SuccessCount, result.FailureCount)
	return result
}
