// Package store defines the keyed persistence interfaces the registration
// pipeline writes through, plus in-memory implementations used in development
// and tests. Every operation is atomic for a single record; the pipeline
// never needs multi-record transactions because its own serialization gate
// orders the two writes.
package store

import (
	"context"
	"errors"

	"conbadge/internal/model"
)

// ErrNotFound is exported so callers elsewhere can compare errors using
// errors.Is; the Postgres and MinIO implementations map their own absence
// signals onto it.
var ErrNotFound = errors.New("record not found")

// BadgeStore persists badge metadata records. FindByBadgeNo is the
// predicate lookup on the upstream natural key; everything else is keyed by
// the generated id.
type BadgeStore interface {
	FindByID(ctx context.Context, id string) (*model.BadgeRecord, error)
	FindByBadgeNo(ctx context.Context, badgeNo int) (*model.BadgeRecord, error)
	Insert(ctx context.Context, rec *model.BadgeRecord) error
	Replace(ctx context.Context, rec *model.BadgeRecord) error
	List(ctx context.Context) ([]model.BadgeRecord, error)
}

// ImageStore persists the derived image records, keyed by the owning badge
// record's id.
type ImageStore interface {
	FindByID(ctx context.Context, id string) (*model.BadgeImageRecord, error)
	Insert(ctx context.Context, rec *model.BadgeImageRecord) error
	Replace(ctx context.Context, rec *model.BadgeImageRecord) error
}
