// Package config resolves carphotos configuration from compiled-in
// defaults, an optional TOML file, and the environment-variable table
// the storage engine and operator CLI are driven by. Environment
// variables are authoritative; the file exists only so an operator can
// commit a shared baseline instead of exporting a dozen shell variables.
package config

import "time"

// Config is the fully-merged, process-start configuration. It is built
// once by Load and handed to the engine and CLI as an immutable value —
// there is no reload path, matching the "explicit Engine value
// constructed at process start" design (no process-wide singletons, no
// background config watcher).
type Config struct {
	DiskToken string `toml:"-"` // never read from file; YANDEX_DISK_TOKEN only
	BaseDir   string `toml:"base_dir"`

	Regions     []string `toml:"regions"`
	AdminRegion string   `toml:"admin_region"`

	MaxPhotosPerSlot     int `toml:"max_photos_per_slot"`
	MaxSlotSizeMB        int `toml:"max_slot_size_mb"`
	MaxFileSizeMB        int `toml:"max_file_size_mb"`
	MaxFilesPerUpload    int `toml:"max_files_per_upload"`
	MaxTotalUploadSizeMB int `toml:"max_total_upload_size_mb"`

	RegionIndexTTL    time.Duration `toml:"-"`
	PhotosIndexTTL    time.Duration `toml:"-"`
	SlotStatsTTL      time.Duration `toml:"-"`
	LockTTL           time.Duration `toml:"-"`
	ArchiveRetryDelay time.Duration `toml:"-"`

	DebugDiskCalls     bool `toml:"-"`
	DebugWritePipeline bool `toml:"-"`
	DebugRegionIndex   bool `toml:"-"`
	DebugCarLoading    bool `toml:"-"`
}

// fileConfig is the subset of Config an operator may set in the optional
// TOML file. Durations and debug flags are deliberately excluded — they
// are operational knobs meant to be flipped per-process via environment,
// not baked into a committed file.
type fileConfig struct {
	BaseDir              string   `toml:"base_dir"`
	Regions              []string `toml:"regions"`
	AdminRegion          string   `toml:"admin_region"`
	MaxPhotosPerSlot     int      `toml:"max_photos_per_slot"`
	MaxSlotSizeMB        string   `toml:"max_slot_size_mb"`
	MaxFileSizeMB        string   `toml:"max_file_size_mb"`
	MaxFilesPerUpload    int      `toml:"max_files_per_upload"`
	MaxTotalUploadSizeMB string   `toml:"max_total_upload_size_mb"`
}
