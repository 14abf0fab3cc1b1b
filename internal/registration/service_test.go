package registration

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"conbadge/internal/metrics"
	"conbadge/internal/model"
	"conbadge/internal/notify"
	"conbadge/internal/store"
	"conbadge/internal/thumbnail"
)

// testPhoto renders a small PNG whose pixel content is derived from seed, so
// different seeds produce byte-distinct photos.
func testPhoto(t *testing.T, seed uint8, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: seed, G: uint8(x % 256), B: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func registrationFor(badgeNo int, photo []byte) model.Registration {
	return model.Registration{
		BadgeNo:      badgeNo,
		RegNo:        7,
		Gender:       "male",
		Name:         "Keiro",
		Species:      "red panda",
		DontPublish:  0,
		WornBy:       "owner",
		ImageContent: base64.StdEncoding.EncodeToString(photo),
	}
}

type ServiceSuite struct {
	suite.Suite
	badges  *store.MemoryBadgeStore
	images  *store.MemoryImageStore
	metrics *metrics.Metrics
	service *Service
}

func (s *ServiceSuite) SetupTest() {
	s.badges = store.NewMemoryBadgeStore()
	s.images = store.NewMemoryImageStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(s.badges, s.images, s.metrics, notify.New("", logger), logger)
}

func (s *ServiceSuite) TestFirstRegistrationCreatesBothRecords() {
	photo := testPhoto(s.T(), 1, 600, 800)

	id, err := s.service.Upsert(context.Background(), registrationFor(100, photo))
	require.NoError(s.T(), err)
	require.NotEmpty(s.T(), id)

	badge, err := s.badges.FindByBadgeNo(context.Background(), 100)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id, badge.ID)
	assert.Equal(s.T(), "Keiro", badge.Name)
	assert.True(s.T(), badge.Public)
	assert.False(s.T(), badge.UpdatedAt.IsZero())

	img, err := s.images.FindByID(context.Background(), id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ThumbMime, img.MimeType)
	assert.NotEmpty(s.T(), img.SourceFingerprint)
	assert.Equal(s.T(), len(img.Bytes), img.Size)
	assert.NotEmpty(s.T(), img.Bytes)
}

func (s *ServiceSuite) TestIdempotentPhotoSkipsNormalization() {
	photo := testPhoto(s.T(), 2, 600, 800)
	ctx := context.Background()

	id1, err := s.service.Upsert(ctx, registrationFor(100, photo))
	require.NoError(s.T(), err)

	first, err := s.images.FindByID(ctx, id1)
	require.NoError(s.T(), err)

	reg := registrationFor(100, photo)
	reg.Name = "Keiro Renamed"
	id2, err := s.service.Upsert(ctx, reg)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id1, id2)

	// Normalization ran exactly once across both calls.
	assert.Equal(s.T(), 1.0, testutil.ToFloat64(s.metrics.ImagesUpdated))
	assert.Equal(s.T(), 1.0, testutil.ToFloat64(s.metrics.ImagesSkipped))

	second, err := s.images.FindByID(ctx, id1)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), first.Bytes, second.Bytes)

	// Metadata still follows last-write-wins.
	badge, err := s.badges.FindByBadgeNo(ctx, 100)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Keiro Renamed", badge.Name)
}

func (s *ServiceSuite) TestChangedPhotoReplacesThumbnail() {
	ctx := context.Background()
	photoA := testPhoto(s.T(), 3, 600, 800)
	photoB := testPhoto(s.T(), 4, 600, 800)

	id, err := s.service.Upsert(ctx, registrationFor(100, photoA))
	require.NoError(s.T(), err)
	imgA, err := s.images.FindByID(ctx, id)
	require.NoError(s.T(), err)

	_, err = s.service.Upsert(ctx, registrationFor(100, photoB))
	require.NoError(s.T(), err)
	imgB, err := s.images.FindByID(ctx, id)
	require.NoError(s.T(), err)

	assert.NotEqual(s.T(), imgA.SourceFingerprint, imgB.SourceFingerprint)
	assert.NotEqual(s.T(), imgA.Bytes, imgB.Bytes)

	// Resubmitting photo B leaves the stored bytes bit-for-bit unchanged.
	_, err = s.service.Upsert(ctx, registrationFor(100, photoB))
	require.NoError(s.T(), err)
	imgB2, err := s.images.FindByID(ctx, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), imgB.Bytes, imgB2.Bytes)
}

func (s *ServiceSuite) TestConcurrentUpsertsOneRecordPerBadgeNo() {
	ctx := context.Background()
	photo := testPhoto(s.T(), 5, 400, 400)

	var wg sync.WaitGroup
	ids := make([]string, 20)
	errs := make([]error, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = s.service.Upsert(ctx, registrationFor(100, photo))
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(s.T(), errs[i])
		assert.Equal(s.T(), ids[0], ids[i])
	}

	all, err := s.service.List(ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), all, 1)
	assert.Equal(s.T(), 100, all[0].BadgeNo)
	assert.Equal(s.T(), 1.0, testutil.ToFloat64(s.metrics.BadgesCreated))
}

func (s *ServiceSuite) TestInvalidBase64IsDecodeError() {
	reg := registrationFor(100, nil)
	reg.ImageContent = "!!! not base64 !!!"

	_, err := s.service.Upsert(context.Background(), reg)
	assert.ErrorIs(s.T(), err, thumbnail.ErrDecode)

	_, err = s.badges.FindByBadgeNo(context.Background(), 100)
	assert.ErrorIs(s.T(), err, store.ErrNotFound)
}

func (s *ServiceSuite) TestUndecodablePhotoLeavesRecordsUntouched() {
	ctx := context.Background()
	photo := testPhoto(s.T(), 6, 600, 800)

	id, err := s.service.Upsert(ctx, registrationFor(100, photo))
	require.NoError(s.T(), err)
	before, err := s.badges.FindByID(ctx, id)
	require.NoError(s.T(), err)
	imgBefore, err := s.images.FindByID(ctx, id)
	require.NoError(s.T(), err)

	bad := registrationFor(100, []byte("junk that is valid base64 input but no image"))
	bad.Name = "should not stick"
	_, err = s.service.Upsert(ctx, bad)
	assert.ErrorIs(s.T(), err, thumbnail.ErrDecode)

	after, err := s.badges.FindByID(ctx, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), before, after)
	imgAfter, err := s.images.FindByID(ctx, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), imgBefore, imgAfter)
}

func (s *ServiceSuite) TestEndToEndVisibilityFlip() {
	ctx := context.Background()
	photo := testPhoto(s.T(), 7, 4000, 2000)

	id, err := s.service.Upsert(ctx, registrationFor(100, photo))
	require.NoError(s.T(), err)

	data, err := s.service.ImageBytes(ctx, id)
	require.NoError(s.T(), err)
	decoded, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 240, decoded.Bounds().Dx())
	assert.Equal(s.T(), 120, decoded.Bounds().Dy())

	reg := registrationFor(100, photo)
	reg.DontPublish = 1
	id2, err := s.service.Upsert(ctx, reg)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id, id2)

	badge, err := s.badges.FindByID(ctx, id)
	require.NoError(s.T(), err)
	assert.False(s.T(), badge.Public)

	data2, err := s.service.ImageBytes(ctx, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), data, data2)
}

func (s *ServiceSuite) TestImageBytesUnknownID() {
	_, err := s.service.ImageBytes(context.Background(), "no-such-id")
	assert.ErrorIs(s.T(), err, store.ErrNotFound)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

// failingBadgeStore propagates a store failure from the natural-key lookup.
type failingBadgeStore struct {
	store.BadgeStore
	err error
}

func (f *failingBadgeStore) FindByBadgeNo(context.Context, int) (*model.BadgeRecord, error) {
	return nil, f.err
}

func TestStoreErrorsPropagateVerbatim(t *testing.T) {
	storeErr := errors.New("connection reset")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(
		&failingBadgeStore{BadgeStore: store.NewMemoryBadgeStore(), err: storeErr},
		store.NewMemoryImageStore(),
		metrics.New(prometheus.NewRegistry()),
		notify.New("", logger),
		logger,
	)

	_, err := svc.Upsert(context.Background(), registrationFor(1, testPhoto(t, 8, 100, 100)))
	assert.ErrorIs(t, err, storeErr)
}
