package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/semmidev/bqvault/internal/domain"
	"github.com/semmidev/bqvault/internal/naming"
	"github.com/semmidev/bqvault/internal/retention"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

type Backup struct {
	warehouse   domain.Warehouse
	enumerator  *Enumerator
	codec       *naming.Codec
	window      *retention.Window
	logger      Logger
	concurrency int
}

func NewBackup(
	warehouse domain.Warehouse,
	enumerator *Enumerator,
	codec *naming.Codec,
	window *retention.Window,
	logger Logger,
	concurrency int,
) *Backup {
	return &Backup{
		warehouse:   warehouse,
		enumerator:  enumerator,
		codec:       codec,
		window:      window,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Execute snapshots every PLAIN table of resources at one shared instant.
// A nil instant means "now", captured once for the whole call. Only
// validation problems are returned as errors; everything else lands in the
// per-resource results, which follow the input order.
func (uc *Backup) Execute(
	ctx context.Context,
	resources []domain.SourceResource,
	instant *time.Time,
	retentionDays int,
) ([]domain.BatchResult, error) {
	if retentionDays < 0 {
		return nil, domain.NewValidationError("retention days must not be negative, got %d", retentionDays)
	}

	at, err := uc.resolveInstant(instant)
	if err != nil {
		return nil, err
	}

	var expiration *time.Time
	if exp, ok := retention.ComputeExpiration(at, retentionDays); ok {
		expiration = &exp
	}

	start := time.Now()
	uc.logger.Infof("Starting backup of %d dataset(s) at %s", len(resources), at.Format(time.RFC3339))

	results := make([]domain.BatchResult, 0, len(resources))
	for _, res := range resources {
		result := uc.backupResource(ctx, res, at, expiration)
		if result.Success() {
			uc.logger.Infof("[%s] Backed up %d table(s) into %s",
				res.ID, result.SuccessCount, result.ProducedContainerID)
		} else {
			uc.logger.Errorf("[%s] Backup finished with %d failure(s), %d table(s) succeeded",
				res.ID, result.FailureCount, result.SuccessCount)
		}
		results = append(results, result)
	}

	uc.logger.Infof("Backup completed in %s", time.Since(start).Round(time.Millisecond))
	return results, nil
}

func (uc *Backup) resolveInstant(instant *time.Time) (time.Time, error) {
	if instant == nil {
		return uc.window.Now().UTC().Truncate(time.Second), nil
	}

	at := instant.UTC()
	if !at.Truncate(time.Second).Equal(at) {
		return time.Time{}, domain.NewValidationError("instant %s has sub-second precision", at.Format(time.RFC3339Nano))
	}
	if err := uc.window.Validate(at); err != nil {
		return time.Time{}, err
	}
	return at, nil
}

func (uc *Backup) backupResource(
	ctx context.Context,
	res domain.SourceResource,
	instant time.Time,
	expiration *time.Time,
) domain.BatchResult {
	result := domain.BatchResult{SourceResourceID: res.ID, Instant: instant}

	members := res.Members
	if members == nil {
		var err error
		members, err = uc.enumerator.ListMembers(ctx, res.ID)
		if err != nil {
			return failBatch(result, 1, err)
		}
	}

	eligible := plainMembers(members)
	if len(eligible) == 0 {
		uc.logger.Infof("[%s] No tables to back up", res.ID)
		return result
	}

	containerID := uc.codec.Encode(instant, res.ID)
	if err := uc.createContainer(ctx, containerID, res.Location); err != nil {
		return failBatch(result, len(eligible), err)
	}
	result.ProducedContainerID = containerID

	uc.logger.Infof("[%s] Snapshotting %d table(s) into %s", res.ID, len(eligible), containerID)

	outcomes := fanOut(ctx, uc.concurrency, eligible,
		func(m domain.Member) string { return m.ID },
		func(ctx context.Context, m domain.Member) error {
			source := domain.MemberRef{ResourceID: res.ID, MemberID: m.ID, Location: res.Location}
			if err := uc.warehouse.CreateSnapshot(ctx, source, containerID, instant, expiration); err != nil {
				uc.logger.Errorf("[%s] Snapshot of %s failed: %v", res.ID, m.ID, err)
				return err
			}
			return nil
		},
	)

	result.Absorb(outcomes)
	return result
}

func (uc *Backup) createContainer(ctx context.Context, containerID, location string) error {
	if location == "" {
		return domain.NewValidationError("dataset location is unknown, cannot create %s", containerID)
	}

	exists, err := uc.warehouse.ResourceExists(ctx, containerID)
	if err != nil {
		return domain.NewRemoteError("check container", containerID, err)
	}
	if exists {
		return domain.NewCollisionError(containerID)
	}

	if err := uc.warehouse.CreateResource(ctx, containerID, location); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return domain.NewCollisionError(containerID)
		}
		return domain.NewRemoteError("create container", containerID, err)
	}
	return nil
}

func plainMembers(members []domain.Member) []domain.Member {
	var plain []domain.Member
	for _, m := range members {
		if m.Kind == domain.KindPlain {
			plain = append(plain, m)
		}
	}
	return plain
}

func failBatch(result domain.BatchResult, failures int, err error) domain.BatchResult {
	result.SuccessCount = 0
	result.FailureCount = failures
	result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", result.SourceResourceID, err))
	return result
}
