// Package postgres implements the store interfaces on top of a pgx
// connection pool. Each method is a single statement, which matches the
// per-record atomicity the pipeline assumes from its stores.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"conbadge/internal/model"
	"conbadge/internal/store"
)

// Compile-time assertions that both stores satisfy the pipeline interfaces.
var (
	_ store.BadgeStore = (*BadgeStore)(nil)
	_ store.ImageStore = (*ImageStore)(nil)
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, cfg)
}

// EnsureSchema creates the badge tables if needed. Having the migration in
// code keeps the service self-contained so docker-compose can bootstrap
// everything.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS badges (
	id TEXT PRIMARY KEY,
	badge_no INTEGER NOT NULL UNIQUE,
	reg_no INTEGER NOT NULL,
	name TEXT NOT NULL,
	species TEXT NOT NULL,
	gender TEXT NOT NULL,
	worn_by TEXT NOT NULL,
	public BOOLEAN NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
-- no foreign key: the pipeline persists the image row before the badge row
CREATE TABLE IF NOT EXISTS badge_images (
	id TEXT PRIMARY KEY,
	width INTEGER NOT NULL,
	height INTEGER NOT NULL,
	mime_type TEXT NOT NULL,
	source_fingerprint TEXT NOT NULL,
	size INTEGER NOT NULL,
	bytes BYTEA
);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// BadgeStore persists badge metadata rows.
type BadgeStore struct {
	pool *pgxpool.Pool
}

// NewBadgeStore constructs a BadgeStore.
func NewBadgeStore(pool *pgxpool.Pool) *BadgeStore {
	return &BadgeStore{pool: pool}
}

const badgeColumns = "id, badge_no, reg_no, name, species, gender, worn_by, public, updated_at"

func scanBadge(row pgx.Row) (*model.BadgeRecord, error) {
	var rec model.BadgeRecord
	err := row.Scan(&rec.ID, &rec.BadgeNo, &rec.RegNo, &rec.Name, &rec.Species,
		&rec.Gender, &rec.WornBy, &rec.Public, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("select badge: %w", err)
	}
	return &rec, nil
}

// FindByID returns the badge row with the given id.
func (s *BadgeStore) FindByID(ctx context.Context, id string) (*model.BadgeRecord, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+badgeColumns+" FROM badges WHERE id=$1", id)
	return scanBadge(row)
}

// FindByBadgeNo returns the badge row carrying the external badge number.
func (s *BadgeStore) FindByBadgeNo(ctx context.Context, badgeNo int) (*model.BadgeRecord, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+badgeColumns+" FROM badges WHERE badge_no=$1", badgeNo)
	return scanBadge(row)
}

// Insert stores a new badge row.
func (s *BadgeStore) Insert(ctx context.Context, rec *model.BadgeRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO badges (id, badge_no, reg_no, name, species, gender, worn_by, public, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, rec.ID, rec.BadgeNo, rec.RegNo, rec.Name, rec.Species, rec.Gender, rec.WornBy, rec.Public, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert badge: %w", err)
	}
	return nil
}

// Replace overwrites every mutable column of an existing badge row.
func (s *BadgeStore) Replace(ctx context.Context, rec *model.BadgeRecord) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE badges
		SET badge_no=$1, reg_no=$2, name=$3, species=$4, gender=$5, worn_by=$6, public=$7, updated_at=$8
		WHERE id=$9
	`, rec.BadgeNo, rec.RegNo, rec.Name, rec.Species, rec.Gender, rec.WornBy, rec.Public, rec.UpdatedAt, rec.ID)
	if err != nil {
		return fmt.Errorf("update badge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// List returns every badge row ordered by badge number.
func (s *BadgeStore) List(ctx context.Context) ([]model.BadgeRecord, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+badgeColumns+" FROM badges ORDER BY badge_no")
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()
	var out []model.BadgeRecord
	for rows.Next() {
		var rec model.BadgeRecord
		if err := rows.Scan(&rec.ID, &rec.BadgeNo, &rec.RegNo, &rec.Name, &rec.Species,
			&rec.Gender, &rec.WornBy, &rec.Public, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	return out, nil
}

// ImageStore persists derived image rows, payload included.
type ImageStore struct {
	pool *pgxpool.Pool
}

// NewImageStore constructs an ImageStore.
func NewImageStore(pool *pgxpool.Pool) *ImageStore {
	return &ImageStore{pool: pool}
}

// FindByID returns the image row sharing the badge record's id.
func (s *ImageStore) FindByID(ctx context.Context, id string) (*model.BadgeImageRecord, error) {
	var rec model.BadgeImageRecord
	row := s.pool.QueryRow(ctx, `
		SELECT id, width, height, mime_type, source_fingerprint, size, COALESCE(bytes, '')
		FROM badge_images WHERE id=$1
	`, id)
	err := row.Scan(&rec.ID, &rec.Width, &rec.Height, &rec.MimeType,
		&rec.SourceFingerprint, &rec.Size, &rec.Bytes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("select badge image: %w", err)
	}
	return &rec, nil
}

// Insert stores a new image row.
func (s *ImageStore) Insert(ctx context.Context, rec *model.BadgeImageRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO badge_images (id, width, height, mime_type, source_fingerprint, size, bytes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, rec.ID, rec.Width, rec.Height, rec.MimeType, rec.SourceFingerprint, rec.Size, rec.Bytes)
	if err != nil {
		return fmt.Errorf("insert badge image: %w", err)
	}
	return nil
}

// Replace overwrites an existing image row.
func (s *ImageStore) Replace(ctx context.Context, rec *model.BadgeImageRecord) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE badge_images
		SET width=$1, height=$2, mime_type=$3, source_fingerprint=$4, size=$5, bytes=$6
		WHERE id=$7
	`, rec.Width, rec.Height, rec.MimeType, rec.SourceFingerprint, rec.Size, rec.Bytes, rec.ID)
	if err != nil {
		return fmt.Errorf("update badge image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
