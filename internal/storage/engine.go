package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/carphotos/carphotos/internal/diskstore"
)

// Store is the subset of the remote store adapter the engine depends
// on. Defined here, at the consumer, so the engine can be tested
// against a fake without importing diskstore's HTTP machinery.
type Store interface {
	EnsureDir(ctx context.Context, path string) error
	PutBytes(ctx context.Context, path string, data []byte, contentType string) error
	PutJSON(ctx context.Context, path string, v any) error
	GetJSON(ctx context.Context, path string, v any) error
	List(ctx context.Context, path string, offset, limit int) (diskstore.ListPage, error)
	ListAll(ctx context.Context, path string) ([]diskstore.Entry, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	Move(ctx context.Context, from, to string, overwrite bool) error
	Publish(ctx context.Context, path string) (string, error)
	GetDownloadURL(ctx context.Context, path string) (string, error)
}

// TTLConfig holds the per-index-class cache lifetimes described in the
// engine's concurrency model. Readers older than these TTLs re-validate
// against the store before being trusted.
type TTLConfig struct {
	RegionIndexTTL time.Duration
	PhotosIndexTTL time.Duration
	SlotStatsTTL   time.Duration
	LockTTL        time.Duration
}

// Engine is the Disk-as-Truth storage engine. One Engine value is
// constructed at process start with its store adapter and config
// injected; it holds no process-wide singleton state, and the only
// state it keeps across calls is the bounded TTL arithmetic performed
// against timestamps already recorded on the store.
type Engine struct {
	store   Store
	baseDir string
	ttl     TTLConfig
	logger  *slog.Logger

	// Per-slot caps, sourced from MAX_PHOTOS_PER_SLOT /
	// MAX_SLOT_SIZE_MB. Default to PhotoCap and MaxSlotSizeMB.
	photoCap      int
	maxSlotSizeMB int

	// now is the engine's clock. Defaults to time.Now; tests substitute
	// a fixed or advancing clock to exercise TTL boundaries.
	now func() time.Time
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithClock overrides the engine's time source, for deterministic TTL
// and lock-expiry tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger overrides the engine's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithLimits overrides the per-slot photo-count and total-size caps.
// Non-positive values leave the defaults in place.
func WithLimits(photoCap, maxSlotSizeMB int) Option {
	return func(e *Engine) {
		if photoCap > 0 {
			e.photoCap = photoCap
		}

		if maxSlotSizeMB > 0 {
			e.maxSlotSizeMB = maxSlotSizeMB
		}
	}
}

// NewEngine constructs a storage engine over store, rooted at baseDir
// (e.g. "/Фото"), with the given TTL configuration.
func NewEngine(store Store, baseDir string, ttl TTLConfig, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		baseDir:       baseDir,
		ttl:           ttl,
		logger:        slog.Default(),
		photoCap:      PhotoCap,
		maxSlotSizeMB: MaxSlotSizeMB,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Engine) clock() time.Time {
	return e.now()
}

const (
	carJSON       = "_CAR.json"
	photosJSON    = "_PHOTOS.json"
	slotJSON      = "_SLOT.json"
	lockJSON      = "_LOCK.json"
	dirtyJSON     = "_DIRTY.json"
	regionJSON    = "_REGION.json"
	linksJSON     = "_LINKS.json"
	publishedJSON = "_PUBLISHED.json"
	usedJSON      = "_USED.json"
)
