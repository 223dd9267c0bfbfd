package domain

import (
	"context"
	"time"
)

// ReportStore is a destination for run reports.
type ReportStore interface {
	Put(ctx context.Context, name string, body []byte) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}
