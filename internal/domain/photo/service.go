package photo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tweestoelen/internal/logger"
	"tweestoelen/internal/storage"
)

// Views that show photo data.
const (
	PathHome    = "/"
	PathArchive = "/archief"
)

const (
	DefaultBucket        = "photos"
	DefaultMaxUploadSize = 50 * 1024 * 1024 // 50 MB
)

// ViewNotifier tells clients that rendered views are stale.
type ViewNotifier interface {
	Invalidate(paths ...string)
}

type Config struct {
	Bucket        string
	MaxUploadSize int64
}

// Service runs the photo workflows against an injected repository and blob
// store. A Service built by NewUnavailableService fails every call with
// ErrBackendUnavailable.
type Service struct {
	repo  *Repository
	blobs storage.BlobStore
	views ViewNotifier
	cfg   Config
	log   *slog.Logger
	now   func() time.Time
	nonce func() string

	unavailable error
}

func NewService(repo *Repository, blobs storage.BlobStore, views ViewNotifier, cfg Config, log *slog.Logger) *Service {
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:  repo,
		blobs: blobs,
		views: views,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
		nonce: newNonce,
	}
}

// NewUnavailableService keeps the reason the backend could not be set up.
func NewUnavailableService(cause error, log *slog.Logger) *Service {
	if cause == nil {
		cause = ErrBackendUnavailable
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{log: log, now: time.Now, nonce: newNonce, unavailable: cause}
}

// Available reports whether the service was built with a working backend.
func (s *Service) Available() bool { return s.unavailable == nil }

// MaxUploadSize is the largest accepted upload in bytes.
func (s *Service) MaxUploadSize() int64 {
	if s.cfg.MaxUploadSize <= 0 {
		return DefaultMaxUploadSize
	}
	return s.cfg.MaxUploadSize
}

func (s *Service) ready() error {
	if s.unavailable == nil {
		return nil
	}
	if errors.Is(s.unavailable, ErrBackendUnavailable) {
		return s.unavailable
	}
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, s.unavailable)
}

// Upload stores a new image and makes it the current photo.
func (s *Service) Upload(ctx context.Context, filename string, data []byte) (*Photo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrValidation)
	}
	if int64(len(data)) > s.MaxUploadSize() {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, s.MaxUploadSize())
	}
	contentType := strings.Split(http.DetectContentType(data), ";")[0]
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: %s is not an image", ErrValidation, contentType)
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	key := StorageKey(s.now(), s.nonce(), filename, contentType)

	if _, err := storage.EnsureContainer(ctx, s.blobs, s.cfg.Bucket, true); err != nil {
		s.partial("ensure bucket", err, "bucket", s.cfg.Bucket)
	}

	url, err := s.blobs.Put(ctx, s.cfg.Bucket, key, data, contentType)
	if err != nil {
		if errors.Is(err, ErrBackendUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}

	// The old current photo is cleared before the new one is inserted, so
	// two flagged rows never coexist. A zero-current gap is tolerated.
	if err := s.repo.ClearCurrent(ctx); err != nil {
		return nil, err
	}
	p, err := s.repo.InsertCurrent(ctx, url)
	if err != nil {
		return nil, err
	}

	s.log.Info("photo uploaded", "photo_id", p.ID, "key", key, "size", len(data))
	s.invalidate()
	return p, nil
}

// Delete removes a photo record and then, best effort, its blob. When the
// current photo is deleted the newest remaining photo takes over.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if p.IsCurrent {
		s.reelect(ctx)
	}

	if key := BlobKeyFromURL(p.ImageURL); key != "" {
		if err := s.blobs.Delete(ctx, s.cfg.Bucket, []string{key}); err != nil {
			s.partial("delete blob", err, "photo_id", id, "key", key)
		}
	}

	s.log.Info("photo deleted", "photo_id", id, "was_current", p.IsCurrent)
	s.invalidate()
	return nil
}

func (s *Service) reelect(ctx context.Context) {
	latest, err := s.repo.Latest(ctx)
	if err != nil {
		s.partial("re-elect current photo", err)
		return
	}
	if latest == nil {
		return
	}
	if err := s.repo.MarkCurrent(ctx, latest.ID); err != nil {
		s.partial("re-elect current photo", err, "photo_id", latest.ID)
	}
}

// UpdateDescription sets the free-text description. An empty description
// clears it.
func (s *Service) UpdateDescription(ctx context.Context, id int64, description string) (*Photo, error) {
	return s.update(ctx, id, Fields{Description: TextOrNull(strings.TrimSpace(description))})
}

// UpdateLocationDate sets the location label and the date the photo depicts.
// Legacy coordinates are cleared.
func (s *Service) UpdateLocationDate(ctx context.Context, id int64, locationName string, photoDate *time.Time) (*Photo, error) {
	f := Fields{
		LocationName: TextOrNull(strings.TrimSpace(locationName)),
		PhotoDate:    Null[time.Time](),
		LocationLat:  Null[float64](),
		LocationLng:  Null[float64](),
	}
	if photoDate != nil {
		f.PhotoDate = Set(*photoDate)
	}
	return s.update(ctx, id, f)
}

// UpdateLocation is the coordinate-based path older clients still use.
func (s *Service) UpdateLocation(ctx context.Context, id int64, lat, lng float64, name string) (*Photo, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrValidation)
	}
	f := Fields{
		LocationLat: Set(lat),
		LocationLng: Set(lng),
	}
	if name = strings.TrimSpace(name); name != "" {
		f.LocationName = Set(name)
	}
	return s.update(ctx, id, f)
}

func (s *Service) update(ctx context.Context, id int64, f Fields) (*Photo, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid photo id %d", ErrValidation, id)
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	p, err := s.repo.UpdateFields(ctx, id, f)
	if err != nil {
		return nil, err
	}
	s.invalidate()
	return p, nil
}

func (s *Service) Current(ctx context.Context) (*Photo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.repo.GetCurrent(ctx)
}

func (s *Service) List(ctx context.Context) ([]Photo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.repo.GetAll(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*Photo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return p, nil
}

// Reset deletes every record, then every blob in the bucket. Only the record
// deletion decides the outcome.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.repo.DeleteAll(ctx); err != nil {
		return err
	}

	objects, err := s.blobs.List(ctx, s.cfg.Bucket)
	if err != nil {
		s.partial("list blobs", err, "bucket", s.cfg.Bucket)
	} else if len(objects) > 0 {
		keys := make([]string, 0, len(objects))
		for _, o := range objects {
			keys = append(keys, o.Name)
		}
		if err := s.blobs.Delete(ctx, s.cfg.Bucket, keys); err != nil {
			s.partial("delete blobs", err, "bucket", s.cfg.Bucket, "count", len(keys))
		}
	}

	s.log.Warn("all photos reset", "bucket", s.cfg.Bucket)
	s.invalidate()
	return nil
}

// EnsureBucket creates the public bucket when it is missing. For an existing
// bucket public read access is re-applied where the store supports it.
func (s *Service) EnsureBucket(ctx context.Context) (created bool, err error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	created, err = storage.EnsureContainer(ctx, s.blobs, s.cfg.Bucket, true)
	if err != nil {
		return false, err
	}
	if !created {
		if vs, ok := s.blobs.(storage.VisibilitySetter); ok {
			if err := vs.SetPublic(ctx, s.cfg.Bucket); err != nil {
				s.partial("bucket policy", err, "bucket", s.cfg.Bucket)
			}
		}
	}
	return created, nil
}

// Health performs a trivial read against the record store.
func (s *Service) Health(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.repo.Ping(ctx)
}

// Download opens the blob of a photo. The caller closes the reader.
func (s *Service) Download(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	key := BlobKeyFromURL(p.ImageURL)
	rc, err := s.blobs.Get(ctx, s.cfg.Bucket, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", fmt.Errorf("%w: image of photo %d", ErrNotFound, id)
		}
		return nil, "", err
	}
	return rc, key, nil
}

// partial logs a secondary step that failed, tagged with ErrPartialFailure.
func (s *Service) partial(step string, err error, args ...any) {
	logger.PartialFailure(s.log, step, fmt.Errorf("%w: %v", ErrPartialFailure, err), args...)
}

func (s *Service) invalidate() {
	if s.views != nil {
		s.views.Invalidate(PathHome, PathArchive)
	}
}
