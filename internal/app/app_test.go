package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/semmidev/bqvault/internal/config"
	"github.com/semmidev/bqvault/internal/domain"
	"github.com/semmidev/bqvault/internal/infrastructure/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// memWarehouse is a minimal in-memory warehouse: datasets hold table types.
type memWarehouse struct {
	mu       sync.Mutex
	location map[string]string
	tables   map[string]map[string]string
}

func newMemWarehouse() *memWarehouse {
	return &memWarehouse{location: map[string]string{}, tables: map[string]map[string]string{}}
}

func (m *memWarehouse) add(id, loc string, tables map[string]string) {
	m.location[id] = loc
	m.tables[id] = tables
}

func (m *memWarehouse) ListResources(ctx context.Context) ([]domain.ResourceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ResourceInfo
	for id, loc := range m.location {
		out = append(out, domain.ResourceInfo{ID: id, Location: loc})
	}
	return out, nil
}

func (m *memWarehouse) GetResource(ctx context.Context, id string) (*domain.ResourceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loc, ok := m.location[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.ResourceInfo{ID: id, Location: loc}, nil
}

func (m *memWarehouse) CreateResource(ctx context.Context, id, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.location[id]; ok {
		return domain.ErrAlreadyExists
	}
	m.location[id] = location
	m.tables[id] = map[string]string{}
	return nil
}

func (m *memWarehouse) ResourceExists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.location[id]
	return ok, nil
}

func (m *memWarehouse) ListMembers(ctx context.Context, resourceID string) ([]domain.MemberInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MemberInfo
	for id, typ := range m.tables[resourceID] {
		out = append(out, domain.MemberInfo{ID: id, Type: typ})
	}
	return out, nil
}

func (m *memWarehouse) GetMemberMetadata(ctx context.Context, resourceID, memberID string) (*domain.MemberMetadata, error) {
	return nil, domain.ErrNotFound
}

func (m *memWarehouse) DeleteMember(ctx context.Context, resourceID, memberID string) error {
	return nil
}

func (m *memWarehouse) CreateDerivedView(ctx context.Context, resourceID string, def domain.DerivedViewDefinition) error {
	return nil
}

func (m *memWarehouse) CreateSnapshot(ctx context.Context, source domain.MemberRef, container string, instant time.Time, expiration *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[container][source.MemberID] = domain.TypeSnapshot
	return nil
}

func (m *memWarehouse) CloneBack(ctx context.Context, snapshot domain.MemberRef, target, member string, overwrite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[target][member]; ok && !overwrite {
		return domain.ErrAlreadyExists
	}
	m.tables[target][member] = domain.TypeTable
	return nil
}

func (m *memWarehouse) DeleteResource(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.location, id)
	delete(m.tables, id)
	return nil
}

func (m *memWarehouse) datasetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.location)
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		App:       config.AppConfig{Name: "bqvault"},
		Warehouse: config.WarehouseConfig{ProjectID: "acme-data"},
		Backup:    config.BackupConfig{Prefix: "zzz_backup_", MaxConcurrency: 2},
		Report:    config.ReportConfig{LocalPath: dir, Compress: true},
		Metrics:   config.MetricsConfig{ListenAddr: "127.0.0.1:0"},
	}
}

func TestApp(t *testing.T) {
	Convey("Given an App over an in-memory warehouse", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		wh := newMemWarehouse()
		wh.add("analytics", "EU", map[string]string{"events": domain.TypeTable, "users": domain.TypeTable})
		wh.add("billing", "US", map[string]string{"invoices": domain.TypeTable})

		a, err := New(ctx, testConfig(dir), WithWarehouse(wh), WithLogger(logger.Nop()))
		So(err, ShouldBeNil)

		Convey("When backing up every dataset", func() {
			results, err := a.Backup(ctx, nil, nil, nil)

			Convey("It should snapshot each dataset once", func() {
				So(err, ShouldBeNil)
				So(len(results), ShouldEqual, 2)
				So(wh.datasetCount(), ShouldEqual, 4)
			})

			Convey("It should publish a compressed report", func() {
				files, err := a.localStorage.List(ctx)
				So(err, ShouldBeNil)
				So(len(files), ShouldEqual, 1)
				So(strings.HasPrefix(files[0], "bqvault_backup_"), ShouldBeTrue)
				So(strings.HasSuffix(files[0], ".json.gz"), ShouldBeTrue)
			})

			Convey("It should record metrics", func() {
				n, err := testutil.GatherAndCount(a.metrics.Registry(), "bqvault_operations_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})

			Convey("Then listing, restoring and deleting the set", func() {
				sets, err := a.ListBackups(ctx)
				So(err, ShouldBeNil)
				So(len(sets), ShouldEqual, 1)
				So(sets[0].SourceIDs(), ShouldResemble, []string{"analytics", "billing"})

				outcomes, err := a.Restore(ctx, sets[0].Instant, true)
				So(err, ShouldBeNil)
				So(len(outcomes), ShouldEqual, 2)
				So(outcomes[0].MembersRestored, ShouldEqual, 2)

				result, err := a.Delete(ctx, sets[0].Instant)
				So(err, ShouldBeNil)
				So(result.SuccessCount, ShouldEqual, 2)
				So(wh.datasetCount(), ShouldEqual, 2)
			})
		})

		Convey("When an explicit dataset is missing", func() {
			_, err := a.Backup(ctx, []string{"nope"}, nil, nil)
			So(err, ShouldNotBeNil)
		})

		Convey("When deleting an instant without backups", func() {
			_, err := a.Delete(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
			So(err, ShouldNotBeNil)
		})

		Convey("When no backup set is old enough to prune", func() {
			_, _ = a.Backup(ctx, nil, nil, nil)
			sets, err := a.ExpiredSets(ctx, 1)
			So(err, ShouldBeNil)
			So(sets, ShouldBeEmpty)
		})
	})

	Convey("Given an App with backup pruning enabled", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		wh := newMemWarehouse()
		wh.add("analytics", "EU", map[string]string{"events": domain.TypeTable})
		wh.add("zzz_backup_20200101_000000_analytics", "EU", map[string]string{"events": domain.TypeSnapshot})

		cfg := testConfig(dir)
		cfg.Backup.PruneAfterDays = 7
		a, err := New(ctx, cfg, WithWarehouse(wh), WithLogger(logger.Nop()))
		So(err, ShouldBeNil)

		Convey("When the scheduled cleanup runs", func() {
			So(a.scheduledCleanup(ctx), ShouldBeNil)

			Convey("It should drop the expired set and keep the source", func() {
				So(wh.datasetCount(), ShouldEqual, 1)
				exists, _ := wh.ResourceExists(ctx, "analytics")
				So(exists, ShouldBeTrue)
			})

			Convey("It should publish a prune report", func() {
				files, err := a.localStorage.List(ctx)
				So(err, ShouldBeNil)
				So(len(files), ShouldEqual, 1)
				So(strings.HasPrefix(files[0], "bqvault_prune_"), ShouldBeTrue)
			})

			Convey("It should record the prune run", func() {
				n, err := testutil.GatherAndCount(a.metrics.Registry(), "bqvault_operations_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})
	})
}
