package domain

import (
	"context"
	"time"
)

// Raw table types reported by the warehouse.
const (
	TypeTable            = "TABLE"
	TypeMaterializedView = "MATERIALIZED_VIEW"
	TypeView             = "VIEW"
	TypeExternal         = "EXTERNAL"
	TypeSnapshot         = "SNAPSHOT"
)

type ResourceInfo struct {
	ID       string
	Location string
}

type MemberInfo struct {
	ID   string
	Type string
}

type MemberMetadata struct {
	ID   string
	Type string
	View *DerivedViewDefinition
}

type Catalog interface {
	ListResources(ctx context.Context) ([]ResourceInfo, error)
	GetResource(ctx context.Context, id string) (*ResourceInfo, error)
	CreateResource(ctx context.Context, id, location string) error
	ResourceExists(ctx context.Context, id string) (bool, error)
	ListMembers(ctx context.Context, resourceID string) ([]MemberInfo, error)
	GetMemberMetadata(ctx context.Context, resourceID, memberID string) (*MemberMetadata, error)
	DeleteMember(ctx context.Context, resourceID, memberID string) error
	CreateDerivedView(ctx context.Context, resourceID string, def DerivedViewDefinition) error
}

// MemberRef addresses one table inside a dataset.
type MemberRef struct {
	ResourceID string
	MemberID   string
	Location   string
}

type Snapshotter interface {
	CreateSnapshot(ctx context.Context, source MemberRef, targetContainer string, instant time.Time, expiration *time.Time) error
	CloneBack(ctx context.Context, snapshot MemberRef, targetResource, targetMemberID string, overwrite bool) error
	DeleteResource(ctx context.Context, id string) error
}

// Warehouse is everything the orchestrators need from the remote side.
type Warehouse interface {
	Catalog
	Snapshotter
}
