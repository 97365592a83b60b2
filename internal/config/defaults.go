package config

import "time"

// Default values for configuration options. These are "layer 0" of the
// three-layer override chain (defaults -> optional TOML file ->
// environment), chosen to match production values.
const (
	defaultBaseDir     = "/Фото"
	defaultAdminRegion = "ALL"

	defaultMaxPhotosPerSlot     = 40
	defaultMaxSlotSizeMB        = 20
	defaultMaxFileSizeMB        = 20
	defaultMaxFilesPerUpload    = 40
	defaultMaxTotalUploadSizeMB = 20

	defaultRegionIndexTTL    = 10 * time.Minute
	defaultPhotosIndexTTL    = 2 * time.Minute
	defaultSlotStatsTTL      = 2 * time.Minute
	defaultLockTTL           = 5 * time.Minute
	defaultArchiveRetryDelay = 1 * time.Second
)

// TTL bounds. Validate enforces these.
const (
	minRegionIndexTTL = 10 * time.Minute
	maxRegionIndexTTL = 30 * time.Minute
	minPhotosIndexTTL = 1 * time.Minute
	maxPhotosIndexTTL = 2 * time.Minute
)

// DefaultConfig returns a Config populated with all default values. Used
// both as the base that the optional TOML file and environment overlay
// on top of, and as the result when no file exists and no env vars are set.
func DefaultConfig() *Config {
	return &Config{
		BaseDir:              defaultBaseDir,
		AdminRegion:          defaultAdminRegion,
		MaxPhotosPerSlot:     defaultMaxPhotosPerSlot,
		MaxSlotSizeMB:        defaultMaxSlotSizeMB,
		MaxFileSizeMB:        defaultMaxFileSizeMB,
		MaxFilesPerUpload:    defaultMaxFilesPerUpload,
		MaxTotalUploadSizeMB: defaultMaxTotalUploadSizeMB,
		RegionIndexTTL:       defaultRegionIndexTTL,
		PhotosIndexTTL:       defaultPhotosIndexTTL,
		SlotStatsTTL:         defaultSlotStatsTTL,
		LockTTL:              defaultLockTTL,
		ArchiveRetryDelay:    defaultArchiveRetryDelay,
	}
}
