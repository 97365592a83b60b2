// Package bootstrap is the process-start wiring point (L0): it resolves
// configuration, builds the structured logger, constructs the OAuth2
// token source, the diskstore client, and the storage engine, and hands
// back an API Boundary ready for a command tree or HTTP server to call.
// This is the "explicit Engine value constructed at process start"
// design: every dependency is built once here and never reconstructed
// mid-process.
package bootstrap

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/carphotos/carphotos/internal/api"
	"github.com/carphotos/carphotos/internal/config"
	"github.com/carphotos/carphotos/internal/diskstore"
	"github.com/carphotos/carphotos/internal/storage"
)

// httpClientTimeout bounds every remote-store round trip. Large uploads
// on a slow connection are additionally bounded by request context
// cancellation, not by this fixed clock alone.
const httpClientTimeout = 30 * time.Second

// App bundles every process-start value a command or server handler
// needs. Built once by Build; never reconstructed mid-process.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *diskstore.Client
	Engine   *storage.Engine
	Boundary *api.Boundary
}

// Build resolves config (defaults -> optional TOML file at configPath
// -> environment), constructs the logger, token source, diskstore
// client, and storage engine, and returns the assembled App. An empty
// configPath falls back to CARPHOTOS_CONFIG, then the platform default
// location; a missing file at either is fine.
func Build(configPath string) (*App, error) {
	if configPath == "" {
		configPath = os.Getenv(config.EnvConfigPath)
	}

	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := buildLogger(cfg)

	tokenSource := diskstore.NewStaticTokenSource(cfg.DiskToken)

	client := diskstore.NewClient(diskstore.DefaultBaseURL, &http.Client{Timeout: httpClientTimeout}, tokenSource, logger, "carphotosctl/"+Version)
	client.SetDebug(cfg.DebugDiskCalls)

	ttl := storage.TTLConfig{
		RegionIndexTTL: cfg.RegionIndexTTL,
		PhotosIndexTTL: cfg.PhotosIndexTTL,
		SlotStatsTTL:   cfg.SlotStatsTTL,
		LockTTL:        cfg.LockTTL,
	}

	engine := storage.NewEngine(client, cfg.BaseDir, ttl,
		storage.WithLogger(logger),
		storage.WithLimits(cfg.MaxPhotosPerSlot, cfg.MaxSlotSizeMB),
	)

	boundary := api.New(engine, api.WithUploadLimits(api.UploadLimits{
		MaxFileSizeMB:        cfg.MaxFileSizeMB,
		MaxFilesPerUpload:    cfg.MaxFilesPerUpload,
		MaxTotalUploadSizeMB: cfg.MaxTotalUploadSizeMB,
	}))

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    client,
		Engine:   engine,
		Boundary: boundary,
	}, nil
}

// Version is set at build time via ldflags.
var Version = "dev"

// buildLogger constructs the process logger. Debug flags in cfg enable
// slog.LevelDebug; otherwise info — DEBUG_* env vars are the one dial
// for verbosity.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo

	if cfg.DebugDiskCalls || cfg.DebugWritePipeline || cfg.DebugRegionIndex || cfg.DebugCarLoading {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	return slog.New(handler)
}
