package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/semmidev/bqvault/internal/domain"
	"github.com/semmidev/bqvault/internal/naming"
)

type Restore struct {
	warehouse   domain.Warehouse
	enumerator  *Enumerator
	logger      Logger
	concurrency int
}

func NewRestore(
	warehouse domain.Warehouse,
	enumerator *Enumerator,
	logger Logger,
	concurrency int,
) *Restore {
	return &Restore{
		warehouse:   warehouse,
		enumerator:  enumerator,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Execute clones every snapshot of the backup set taken at instant back into
// its source dataset, then rebuilds the materialized views living there.
func (uc *Restore) Execute(ctx context.Context, instant time.Time, overwrite bool) ([]domain.RestoreOutcome, error) {
	if instant.IsZero() {
		return nil, domain.NewValidationError("a backup instant must be selected before restoring")
	}
	if !instant.Truncate(time.Second).Equal(instant) {
		return nil, domain.NewValidationError("instant %s has sub-second precision", instant.UTC().Format(time.RFC3339Nano))
	}

	containers, err := uc.enumerator.ListBackupContainers(ctx)
	if err != nil {
		return nil, err
	}

	set := ResolveBackupSet(containers, instant)
	if len(set) == 0 {
		return nil, domain.NewNotFoundError("resolve backup set", naming.Key(instant))
	}

	start := time.Now()
	uc.logger.Infof("Restoring %d dataset(s) from backup %s (overwrite=%t)", len(set), naming.Key(instant), overwrite)

	outcomes := make([]domain.RestoreOutcome, 0, len(set))
	for _, c := range set {
		outcome := uc.restoreContainer(ctx, c, overwrite)
		if outcome.Success {
			uc.logger.Infof("[%s] Restored %d table(s), recreated %d view(s)",
				outcome.TargetResourceID, outcome.MembersRestored, outcome.ViewsRecreated)
		} else {
			uc.logger.Errorf("[%s] Restore finished with %d failure(s), %d table(s) restored",
				outcome.TargetResourceID, outcome.MembersFailed, outcome.MembersRestored)
		}
		outcomes = append(outcomes, outcome)
	}

	uc.logger.Infof("Restore completed in %s", time.Since(start).Round(time.Millisecond))
	return outcomes, nil
}

func (uc *Restore) restoreContainer(ctx context.Context, c domain.BackupContainer, overwrite bool) domain.RestoreOutcome {
	target := c.SourceResourceID
	outcome := domain.RestoreOutcome{
		SourceBackupContainerID: c.ID,
		TargetResourceID:        target,
	}

	snapshots, err := uc.enumerator.ListSnapshots(ctx, c.ID)
	if err != nil {
		return failRestore(outcome, err)
	}
	if len(snapshots) == 0 {
		uc.logger.Infof("[%s] Backup %s holds no snapshots", target, c.ID)
		outcome.Success = true
		return outcome
	}

	if err := uc.ensureTarget(ctx, target, c.Location); err != nil {
		return failRestore(outcome, err)
	}

	existing := make(map[string]bool)
	if !overwrite {
		members, err := uc.warehouse.ListMembers(ctx, target)
		if err != nil {
			return failRestore(outcome, domain.NewRemoteError("list target tables", target, err))
		}
		for _, m := range members {
			existing[m.ID] = true
		}
	}

	results := fanOut(ctx, uc.concurrency, snapshots,
		func(s domain.SnapshotRecord) string { return s.MemberID },
		func(ctx context.Context, s domain.SnapshotRecord) error {
			if existing[s.MemberID] {
				return domain.NewTargetExistsError(target, s.MemberID)
			}

			source := domain.MemberRef{ResourceID: c.ID, MemberID: s.MemberID, Location: c.Location}
			err := uc.warehouse.CloneBack(ctx, source, target, s.MemberID, overwrite)
			if err != nil && !overwrite && errors.Is(err, domain.ErrAlreadyExists) {
				return domain.NewTargetExistsError(target, s.MemberID)
			}
			if err != nil {
				uc.logger.Errorf("[%s] Clone of %s failed: %v", target, s.MemberID, err)
			}
			return err
		},
	)

	for _, r := range results {
		if r.Success {
			outcome.MembersRestored++
			continue
		}
		outcome.MembersFailed++
		outcome.Errors = append(outcome.Errors, r.TargetID+": "+r.Error)
	}
	outcome.Success = outcome.MembersFailed == 0

	uc.rebuildViews(ctx, target, &outcome)
	return outcome
}

func (uc *Restore) ensureTarget(ctx context.Context, target, location string) error {
	exists, err := uc.warehouse.ResourceExists(ctx, target)
	if err != nil {
		return domain.NewRemoteError("check target", target, err)
	}
	if exists {
		return nil
	}

	uc.logger.Infof("[%s] Creating missing dataset in %s", target, location)
	if err := uc.warehouse.CreateResource(ctx, target, location); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return domain.NewRemoteError("create target", target, err)
	}
	return nil
}

// rebuildViews recreates materialized views one at a time so that their
// queries see the freshly cloned tables. View failures are tallied apart from
// table failures.
func (uc *Restore) rebuildViews(ctx context.Context, target string, outcome *domain.RestoreOutcome) {
	members, err := uc.enumerator.ListMembers(ctx, target)
	if err != nil {
		outcome.ViewsFailed++
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("views: %v", err))
		return
	}

	for _, m := range members {
		if m.Kind != domain.KindDerivedView {
			continue
		}
		if err := uc.rebuildView(ctx, target, m.ID); err != nil {
			uc.logger.Errorf("[%s] Failed to recreate view %s: %v", target, m.ID, err)
			outcome.ViewsFailed++
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("view %s: %v", m.ID, err))
			continue
		}
		outcome.ViewsRecreated++
	}
}

func (uc *Restore) rebuildView(ctx context.Context, target, viewID string) error {
	meta, err := uc.warehouse.GetMemberMetadata(ctx, target, viewID)
	if err != nil {
		return fmt.Errorf("read definition: %w", err)
	}
	if meta.View == nil || meta.View.Query == "" {
		return fmt.Errorf("no view definition available")
	}

	def := *meta.View
	def.ViewID = viewID

	if err := uc.warehouse.DeleteMember(ctx, target, viewID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("drop: %w", err)
	}
	if err := uc.warehouse.CreateDerivedView(ctx, target, def); err != nil {
		uc.logger.Errorf("[%s] View %s was dropped and could not be recreated, definition: %s", target, viewID, def.Query)
		return fmt.Errorf("create: %w", err)
	}
	return nil
}

func failRestore(outcome domain.RestoreOutcome, err error) domain.RestoreOutcome {
	outcome.Success = false
	outcome.MembersFailed++
	outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", outcome.TargetResourceID, err))
	return outcome
}
