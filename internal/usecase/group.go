package usecase

import (
	"sort"
	"time"

	"github.com/semmidev/bqvault/internal/domain"
	"github.com/semmidev/bqvault/internal/naming"
)

// GroupByInstant folds containers into backup sets, newest first. Sets are
// keyed by the canonical instant string, so containers decoded in separate
// listings still land in the same set.
func GroupByInstant(containers []domain.BackupContainer) []domain.BackupSetView {
	index := make(map[string]int)
	var sets []domain.BackupSetView

	for _, c := range containers {
		key := naming.Key(c.Instant)
		i, ok := index[key]
		if !ok {
			i = len(sets)
			index[key] = i
			sets = append(sets, domain.BackupSetView{Key: key, Instant: c.Instant.UTC()})
		}
		sets[i].Containers = append(sets[i].Containers, c)
	}

	for i := range sets {
		sortContainers(sets[i].Containers)
	}
	sort.SliceStable(sets, func(i, j int) bool {
		return sets[i].Instant.After(sets[j].Instant)
	})

	return sets
}

// ResolveBackupSet returns the containers taken exactly at instant.
func ResolveBackupSet(containers []domain.BackupContainer, instant time.Time) []domain.BackupContainer {
	var set []domain.BackupContainer
	for _, c := range containers {
		if c.Instant.Equal(instant) {
			set = append(set, c)
		}
	}
	sortContainers(set)
	return set
}

func sortContainers(containers []domain.BackupContainer) {
	sort.SliceStable(containers, func(i, j int) bool {
		return containers[i].SourceResourceID < containers[j].SourceResourceID
	})
}
