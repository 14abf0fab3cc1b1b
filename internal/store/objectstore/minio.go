// Package objectstore implements the image store on top of MinIO/S3 for
// deployments that keep thumbnail payloads out of the relational database.
// The record's scalar fields travel as object user metadata so a single
// object holds the whole BadgeImageRecord.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"conbadge/internal/model"
	"conbadge/internal/store"
)

var _ store.ImageStore = (*ImageStore)(nil)

// Metadata keys attached to every thumbnail object.
const (
	metaFingerprint = "Source-Fingerprint"
	metaWidth       = "Thumb-Width"
	metaHeight      = "Thumb-Height"
)

// Config carries the MinIO connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
}

// ImageStore wraps MinIO interactions for derived badge thumbnails.
type ImageStore struct {
	client *minio.Client
	bucket string
	region string
}

// New creates a MinIO-backed image store from the Config.
func New(cfg Config) (*ImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &ImageStore{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// EnsureBucket makes sure the thumbnail bucket exists before use.
func (s *ImageStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

func objectKey(id string) string {
	return fmt.Sprintf("badges/%s.jpg", id)
}

// FindByID fetches the thumbnail object and rebuilds the record from its
// payload and metadata.
func (s *ImageStore) FindByID(ctx context.Context, id string) (*model.BadgeImageRecord, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(id), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get thumbnail object: %w", err)
	}
	defer obj.Close()
	// GetObject is lazy; the first Stat/Read surfaces a missing key.
	info, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("stat thumbnail object: %w", err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read thumbnail object: %w", err)
	}
	rec := &model.BadgeImageRecord{
		ID:                id,
		Width:             atoiOr(info.UserMetadata[metaWidth], model.ThumbWidth),
		Height:            atoiOr(info.UserMetadata[metaHeight], model.ThumbHeight),
		MimeType:          model.ThumbMime,
		SourceFingerprint: info.UserMetadata[metaFingerprint],
		Size:              len(data),
		Bytes:             data,
	}
	return rec, nil
}

// Insert stores a new thumbnail object. PutObject overwrites by nature, so
// Insert and Replace share one implementation; the coordinator's gate is
// what guarantees an Insert never races another writer.
func (s *ImageStore) Insert(ctx context.Context, rec *model.BadgeImageRecord) error {
	return s.put(ctx, rec)
}

// Replace overwrites the thumbnail object for an existing record.
func (s *ImageStore) Replace(ctx context.Context, rec *model.BadgeImageRecord) error {
	return s.put(ctx, rec)
}

func (s *ImageStore) put(ctx context.Context, rec *model.BadgeImageRecord) error {
	opts := minio.PutObjectOptions{
		ContentType: rec.MimeType,
		UserMetadata: map[string]string{
			metaFingerprint: rec.SourceFingerprint,
			metaWidth:       strconv.Itoa(rec.Width),
			metaHeight:      strconv.Itoa(rec.Height),
		},
	}
	reader := bytes.NewReader(rec.Bytes)
	if _, err := s.client.PutObject(ctx, s.bucket, objectKey(rec.ID), reader, int64(len(rec.Bytes)), opts); err != nil {
		return fmt.Errorf("put thumbnail object: %w", err)
	}
	return nil
}

func atoiOr(v string, def int) int {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}
