// Package registration implements the badge upsert pipeline: fingerprint the
// submitted photo, locate-or-create the metadata record, re-derive the
// thumbnail only when the photo actually changed, and persist both records.
package registration

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"conbadge/internal/fingerprint"
	"conbadge/internal/metrics"
	"conbadge/internal/model"
	"conbadge/internal/notify"
	"conbadge/internal/store"
	"conbadge/internal/thumbnail"
)

// Service coordinates the two stores. The mutex is a single coordinator-wide
// serialization gate: only one Upsert body runs at a time, across all badge
// numbers. That closes the lookup-then-insert race where two concurrent
// registrations for an unseen badge number both observe "not found" and both
// insert. Sharding the gate by badge number would restore cross-badge
// concurrency, but registration traffic is human-driven and never warrants
// it.
type Service struct {
	mu       sync.Mutex
	badges   store.BadgeStore
	images   store.ImageStore
	metrics  *metrics.Metrics
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewService constructs the coordinator.
func NewService(badges store.BadgeStore, images store.ImageStore, m *metrics.Metrics, notifier notify.Notifier, logger *slog.Logger) *Service {
	return &Service{
		badges:   badges,
		images:   images,
		metrics:  m,
		notifier: notifier,
		logger:   logger,
	}
}

// Upsert processes one registration and returns the badge's persisted id.
//
// All lookups and both persists happen inside the gate; everything between
// them operates on in-memory copies, so no partial write is ever visible.
// The image record is persisted first and the metadata record second. The
// two writes are not transactional: if the metadata persist fails after a
// successful image write, the error is returned and the image record is one
// registration ahead of its metadata until the next successful Upsert for
// that badge closes the window (the fingerprint match turns the redundant
// image write into a skip).
func (s *Service) Upsert(ctx context.Context, reg model.Registration) (string, error) {
	timer := prometheus.NewTimer(s.metrics.UpsertLatency)
	defer timer.ObserveDuration()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.Registrations.Inc()

	photo, err := base64.StdEncoding.DecodeString(reg.ImageContent)
	if err != nil {
		s.metrics.UpsertFailures.WithLabelValues("decode").Inc()
		return "", fmt.Errorf("%w: image content is not valid base64: %v", thumbnail.ErrDecode, err)
	}
	photoFingerprint := fingerprint.Sum(photo)

	badge, badgeExists, err := s.locateBadge(ctx, reg.BadgeNo)
	if err != nil {
		s.metrics.UpsertFailures.WithLabelValues("badge_lookup").Inc()
		return "", err
	}
	// Last-write-wins: every metadata field is overwritten by the latest
	// registration, regardless of what it held before.
	badge.RegNo = reg.RegNo
	badge.Name = reg.Name
	badge.Species = reg.Species
	badge.Gender = reg.Gender
	badge.WornBy = reg.WornBy
	badge.Public = reg.DontPublish == 0
	badge.UpdatedAt = time.Now().UTC()

	img, imgExists, err := s.locateImage(ctx, badge.ID)
	if err != nil {
		s.metrics.UpsertFailures.WithLabelValues("image_lookup").Inc()
		return "", err
	}

	imageUpdated := false
	if img.SourceFingerprint != photoFingerprint {
		// The photo changed (or was never stored); this is the only path
		// that pays for decoding and resampling.
		thumb, err := thumbnail.Normalize(photo)
		if err != nil {
			s.metrics.UpsertFailures.WithLabelValues("normalize").Inc()
			return "", err
		}
		img.Bytes = thumb
		img.Size = len(thumb)
		img.SourceFingerprint = photoFingerprint
		imageUpdated = true
		s.metrics.ImagesUpdated.Inc()
	} else {
		s.metrics.ImagesSkipped.Inc()
	}

	if err := s.persistImage(ctx, img, imgExists); err != nil {
		s.metrics.UpsertFailures.WithLabelValues("image_persist").Inc()
		return "", err
	}
	if err := s.persistBadge(ctx, badge, badgeExists); err != nil {
		s.metrics.UpsertFailures.WithLabelValues("badge_persist").Inc()
		return "", err
	}
	if !badgeExists {
		s.metrics.BadgesCreated.Inc()
	}

	s.logger.Info("badge registered",
		slog.Int("badge_no", badge.BadgeNo),
		slog.String("badge_id", badge.ID),
		slog.Bool("created", !badgeExists),
		slog.Bool("image_updated", imageUpdated),
	)
	s.notifier.BadgeRegistered(ctx, *badge)
	return badge.ID, nil
}

// locateBadge finds the metadata record for badgeNo or prepares a bare one
// with a freshly allocated id. Nothing is persisted here; the upsert's final
// persist step writes it out.
func (s *Service) locateBadge(ctx context.Context, badgeNo int) (*model.BadgeRecord, bool, error) {
	badge, err := s.badges.FindByBadgeNo(ctx, badgeNo)
	switch {
	case err == nil:
		return badge, true, nil
	case errors.Is(err, store.ErrNotFound):
		return &model.BadgeRecord{ID: uuid.NewString(), BadgeNo: badgeNo}, false, nil
	default:
		return nil, false, fmt.Errorf("find badge %d: %w", badgeNo, err)
	}
}

// locateImage finds the image record sharing the badge's id or prepares a
// payload-less one carrying the fixed thumbnail policy.
func (s *Service) locateImage(ctx context.Context, id string) (*model.BadgeImageRecord, bool, error) {
	img, err := s.images.FindByID(ctx, id)
	switch {
	case err == nil:
		return img, true, nil
	case errors.Is(err, store.ErrNotFound):
		return &model.BadgeImageRecord{
			ID:       id,
			Width:    model.ThumbWidth,
			Height:   model.ThumbHeight,
			MimeType: model.ThumbMime,
		}, false, nil
	default:
		return nil, false, fmt.Errorf("find badge image %s: %w", id, err)
	}
}

func (s *Service) persistImage(ctx context.Context, img *model.BadgeImageRecord, exists bool) error {
	var err error
	if exists {
		err = s.images.Replace(ctx, img)
	} else {
		err = s.images.Insert(ctx, img)
	}
	if err != nil {
		return fmt.Errorf("persist badge image %s: %w", img.ID, err)
	}
	return nil
}

func (s *Service) persistBadge(ctx context.Context, badge *model.BadgeRecord, exists bool) error {
	var err error
	if exists {
		err = s.badges.Replace(ctx, badge)
	} else {
		err = s.badges.Insert(ctx, badge)
	}
	if err != nil {
		return fmt.Errorf("persist badge %d: %w", badge.BadgeNo, err)
	}
	return nil
}

// ImageBytes returns the stored thumbnail for a badge id. Reads bypass the
// serialization gate; the store's own per-record atomicity is enough for a
// consistent snapshot. A record that exists but has never received a payload
// reports not found, the same as an unknown id.
func (s *Service) ImageBytes(ctx context.Context, id string) ([]byte, error) {
	img, err := s.images.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(img.Bytes) == 0 {
		return nil, store.ErrNotFound
	}
	return img.Bytes, nil
}

// List returns all badge metadata records, also outside the gate.
func (s *Service) List(ctx context.Context) ([]model.BadgeRecord, error) {
	return s.badges.List(ctx)
}
