package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/semmidev/bqvault/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

type fakeTable struct {
	Type     string
	View     *domain.DerivedViewDefinition
	Instant  time.Time
	Expires  *time.Time
	ClonedOf string
}

type fakeDataset struct {
	Location string
	Tables   map[string]*fakeTable
}

type snapshotCall struct {
	Source     domain.MemberRef
	Container  string
	Instant    time.Time
	Expiration *time.Time
}

// fakeWarehouse is an in-memory stand-in for BigQuery. It is safe for the
// concurrent fan-out the orchestrators perform.
type fakeWarehouse struct {
	mu       sync.Mutex
	datasets map[string]*fakeDataset

	snapshotErr   map[string]error
	cloneErr      map[string]error
	createViewErr map[string]error
	deleteErr     map[string]error
	listErr       map[string]error

	snapshots []snapshotCall
	created   []string
	deleted   []string
}

func newFakeWarehouse() *fakeWarehouse {
	return &fakeWarehouse{
		datasets:      make(map[string]*fakeDataset),
		snapshotErr:   make(map[string]error),
		cloneErr:      make(map[string]error),
		createViewErr: make(map[string]error),
		deleteErr:     make(map[string]error),
		listErr:       make(map[string]error),
	}
}

func (f *fakeWarehouse) addDataset(id, location string, tables map[string]string) {
	ds := &fakeDataset{Location: location, Tables: make(map[string]*fakeTable)}
	for name, typ := range tables {
		ds.Tables[name] = &fakeTable{Type: typ}
	}
	f.datasets[id] = ds
}

func (f *fakeWarehouse) addView(datasetID, viewID, query string) {
	enabled := true
	interval := int64(1800000)
	f.datasets[datasetID].Tables[viewID] = &fakeTable{
		Type: domain.TypeMaterializedView,
		View: &domain.DerivedViewDefinition{Query: query, RefreshEnabled: &enabled, RefreshIntervalMs: &interval},
	}
}

func (f *fakeWarehouse) table(datasetID, tableID string) *fakeTable {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.datasets[datasetID]
	if !ok {
		return nil
	}
	return ds.Tables[tableID]
}

func (f *fakeWarehouse) hasDataset(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.datasets[id]
	return ok
}

func (f *fakeWarehouse) ListResources(ctx context.Context) ([]domain.ResourceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[""]; err != nil {
		return nil, err
	}
	var out []domain.ResourceInfo
	for id, ds := range f.datasets {
		out = append(out, domain.ResourceInfo{ID: id, Location: ds.Location})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeWarehouse) GetResource(ctx context.Context, id string) (*domain.ResourceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.datasets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.ResourceInfo{ID: id, Location: ds.Location}, nil
}

func (f *fakeWarehouse) CreateResource(ctx context.Context, id, location string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.datasets[id]; ok {
		return domain.ErrAlreadyExists
	}
	f.datasets[id] = &fakeDataset{Location: location, Tables: make(map[string]*fakeTable)}
	f.created = append(f.created, id)
	return nil
}

func (f *fakeWarehouse) ResourceExists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.datasets[id]
	return ok, nil
}

func (f *fakeWarehouse) ListMembers(ctx context.Context, resourceID string) ([]domain.MemberInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[resourceID]; err != nil {
		return nil, err
	}
	ds, ok := f.datasets[resourceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	var out []domain.MemberInfo
	for id, t := range ds.Tables {
		out = append(out, domain.MemberInfo{ID: id, Type: t.Type})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeWarehouse) GetMemberMetadata(ctx context.Context, resourceID, memberID string) (*domain.MemberMetadata, error) {
	t := f.table(resourceID, memberID)
	if t == nil {
		return nil, domain.ErrNotFound
	}
	meta := &domain.MemberMetadata{ID: memberID, Type: t.Type}
	if t.View != nil {
		v := *t.View
		meta.View = &v
	}
	return meta, nil
}

func (f *fakeWarehouse) DeleteMember(ctx context.Context, resourceID, memberID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.datasets[resourceID]
	if !ok {
		return domain.ErrNotFound
	}
	if _, ok := ds.Tables[memberID]; !ok {
		return domain.ErrNotFound
	}
	delete(ds.Tables, memberID)
	return nil
}

func (f *fakeWarehouse) CreateDerivedView(ctx context.Context, resourceID string, def domain.DerivedViewDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createViewErr[resourceID+"."+def.ViewID]; err != nil {
		return err
	}
	ds := f.datasets[resourceID]
	d := def
	ds.Tables[def.ViewID] = &fakeTable{Type: domain.TypeMaterializedView, View: &d}
	return nil
}

func (f *fakeWarehouse) CreateSnapshot(ctx context.Context, source domain.MemberRef, container string, instant time.Time, expiration *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, snapshotCall{Source: source, Container: container, Instant: instant, Expiration: expiration})
	if err := f.snapshotErr[source.ResourceID+"."+source.MemberID]; err != nil {
		return err
	}
	ds, ok := f.datasets[container]
	if !ok {
		return domain.ErrNotFound
	}
	if _, ok := ds.Tables[source.MemberID]; ok {
		return domain.ErrAlreadyExists
	}
	ds.Tables[source.MemberID] = &fakeTable{Type: domain.TypeSnapshot, Instant: instant, Expires: expiration}
	return nil
}

func (f *fakeWarehouse) CloneBack(ctx context.Context, snapshot domain.MemberRef, targetResource, targetMemberID string, overwrite bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.cloneErr[targetResource+"."+targetMemberID]; err != nil {
		return err
	}
	ds, ok := f.datasets[targetResource]
	if !ok {
		return domain.ErrNotFound
	}
	if _, exists := ds.Tables[targetMemberID]; exists && !overwrite {
		return domain.ErrAlreadyExists
	}
	ds.Tables[targetMemberID] = &fakeTable{Type: domain.TypeTable, ClonedOf: snapshot.ResourceID + "." + snapshot.MemberID}
	return nil
}

func (f *fakeWarehouse) DeleteResource(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	if _, ok := f.datasets[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.datasets, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	listErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Put(ctx context.Context, name string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[name] = append([]byte(nil), body...)
	return nil
}

func (m *memoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for name := range m.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *memoryStore) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}

func (m *memoryStore) ListOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return nil, nil
}
