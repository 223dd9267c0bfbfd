package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/semmidev/bqvault/internal/domain"
	"github.com/semmidev/bqvault/internal/naming"
)

type Enumerator struct {
	catalog domain.Catalog
	codec   *naming.Codec
	logger  Logger
}

func NewEnumerator(catalog domain.Catalog, codec *naming.Codec, logger Logger) *Enumerator {
	return &Enumerator{
		catalog: catalog,
		codec:   codec,
		logger:  logger,
	}
}

// ListSourceResources resolves explicitIDs, or lists every dataset outside the
// backup namespace when none are given. A missing explicit dataset fails the
// whole call.
func (e *Enumerator) ListSourceResources(ctx context.Context, explicitIDs []string) ([]domain.SourceResource, error) {
	if len(explicitIDs) > 0 {
		resources := make([]domain.SourceResource, 0, len(explicitIDs))
		for _, id := range explicitIDs {
			info, err := e.catalog.GetResource(ctx, id)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil, domain.NewNotFoundError("resolve dataset", id)
				}
				return nil, fmt.Errorf("resolve dataset %s: %w", id, err)
			}
			resources = append(resources, domain.SourceResource{ID: info.ID, Location: info.Location})
		}
		return resources, nil
	}

	infos, err := e.catalog.ListResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	resources := make([]domain.SourceResource, 0, len(infos))
	for _, info := range infos {
		if e.codec.HasPrefix(info.ID) {
			continue
		}
		resources = append(resources, domain.SourceResource{ID: info.ID, Location: info.Location})
	}
	return resources, nil
}

func (e *Enumerator) ListMembers(ctx context.Context, resourceID string) ([]domain.Member, error) {
	infos, err := e.catalog.ListMembers(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("list tables of %s: %w", resourceID, err)
	}

	members := make([]domain.Member, 0, len(infos))
	for _, info := range infos {
		kind, ok := ClassifyKind(info.Type)
		if !ok {
			e.logger.Warnf("[%s] Skipping %s: unsupported table type %q", resourceID, info.ID, info.Type)
			continue
		}
		members = append(members, domain.Member{ID: info.ID, Kind: kind})
	}
	return members, nil
}

func (e *Enumerator) ListSnapshots(ctx context.Context, containerID string) ([]domain.SnapshotRecord, error) {
	infos, err := e.catalog.ListMembers(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots of %s: %w", containerID, err)
	}

	var records []domain.SnapshotRecord
	for _, info := range infos {
		if info.Type != domain.TypeSnapshot {
			continue
		}
		records = append(records, domain.SnapshotRecord{ContainerID: containerID, MemberID: info.ID})
	}
	return records, nil
}

// ListBackupContainers lists every dataset whose name decodes as a backup
// container. Anything else is skipped silently.
func (e *Enumerator) ListBackupContainers(ctx context.Context) ([]domain.BackupContainer, error) {
	infos, err := e.catalog.ListResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	var containers []domain.BackupContainer
	for _, info := range infos {
		decoded, ok := e.codec.Decode(info.ID)
		if !ok {
			continue
		}
		containers = append(containers, domain.BackupContainer{
			ID:               info.ID,
			SourceResourceID: decoded.SourceID,
			Instant:          decoded.Instant,
			Location:         info.Location,
		})
	}
	return containers, nil
}

func ClassifyKind(raw string) (domain.MemberKind, bool) {
	switch raw {
	case domain.TypeTable:
		return domain.KindPlain, true
	case domain.TypeMaterializedView:
		return domain.KindDerivedView, true
	case domain.TypeView, domain.TypeExternal, domain.TypeSnapshot:
		return domain.KindOther, true
	default:
		return domain.KindOther, false
	}
}
