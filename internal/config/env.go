package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable names for the configuration layer.
const (
	EnvDiskToken            = "YANDEX_DISK_TOKEN"
	EnvBaseDir              = "YANDEX_DISK_BASE_DIR"
	EnvRegions              = "REGIONS"
	EnvAdminRegion          = "ADMIN_REGION"
	EnvMaxPhotosPerSlot     = "MAX_PHOTOS_PER_SLOT"
	EnvMaxSlotSizeMB        = "MAX_SLOT_SIZE_MB"
	EnvMaxFileSizeMB        = "MAX_FILE_SIZE_MB"
	EnvMaxFilesPerUpload    = "MAX_FILES_PER_UPLOAD"
	EnvMaxTotalUploadSizeMB = "MAX_TOTAL_UPLOAD_SIZE_MB"
	EnvRegionIndexTTLMs     = "REGION_INDEX_TTL_MS"
	EnvPhotosIndexTTLMs     = "PHOTOS_INDEX_TTL_MS"
	EnvSlotStatsTTLMs       = "SLOT_STATS_TTL_MS"
	EnvLockTTLMs            = "LOCK_TTL_MS"
	EnvArchiveRetryDelayMs  = "ARCHIVE_RETRY_DELAY_MS"
	EnvDebugDiskCalls       = "DEBUG_DISK_CALLS"
	EnvDebugWritePipeline   = "DEBUG_WRITE_PIPELINE"
	EnvDebugRegionIndex     = "DEBUG_REGION_INDEX"
	EnvDebugCarLoading      = "DEBUG_CAR_LOADING"
	EnvConfigPath           = "CARPHOTOS_CONFIG"
)

// ApplyEnvOverrides mutates cfg in place with any environment variables
// that are set. Unset variables leave the existing value (default or
// file-sourced) untouched. Malformed numeric/duration values are
// reported as a single joined error so a typo in one variable doesn't
// silently disable the rest.
func ApplyEnvOverrides(cfg *Config) error {
	var errs []error

	cfg.DiskToken = os.Getenv(EnvDiskToken)

	if v := os.Getenv(EnvBaseDir); v != "" {
		cfg.BaseDir = v
	}

	if v := os.Getenv(EnvRegions); v != "" {
		cfg.Regions = normalizeRegionList(v)
	}

	if v := os.Getenv(EnvAdminRegion); v != "" {
		cfg.AdminRegion = strings.ToUpper(strings.TrimSpace(v))
	}

	applyIntEnv(EnvMaxPhotosPerSlot, &cfg.MaxPhotosPerSlot, &errs)
	applyIntEnv(EnvMaxSlotSizeMB, &cfg.MaxSlotSizeMB, &errs)
	applyIntEnv(EnvMaxFileSizeMB, &cfg.MaxFileSizeMB, &errs)
	applyIntEnv(EnvMaxFilesPerUpload, &cfg.MaxFilesPerUpload, &errs)
	applyIntEnv(EnvMaxTotalUploadSizeMB, &cfg.MaxTotalUploadSizeMB, &errs)

	applyMillisEnv(EnvRegionIndexTTLMs, &cfg.RegionIndexTTL, &errs)
	applyMillisEnv(EnvPhotosIndexTTLMs, &cfg.PhotosIndexTTL, &errs)
	applyMillisEnv(EnvSlotStatsTTLMs, &cfg.SlotStatsTTL, &errs)
	applyMillisEnv(EnvLockTTLMs, &cfg.LockTTL, &errs)
	applyMillisEnv(EnvArchiveRetryDelayMs, &cfg.ArchiveRetryDelay, &errs)

	cfg.DebugDiskCalls = boolEnv(EnvDebugDiskCalls)
	cfg.DebugWritePipeline = boolEnv(EnvDebugWritePipeline)
	cfg.DebugRegionIndex = boolEnv(EnvDebugRegionIndex)
	cfg.DebugCarLoading = boolEnv(EnvDebugCarLoading)

	return errors.Join(errs...)
}

func applyIntEnv(name string, dst *int, errs *[]error) {
	v := os.Getenv(name)
	if v == "" {
		return
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q: %w", name, v, err))
		return
	}

	*dst = n
}

func applyMillisEnv(name string, dst *time.Duration, errs *[]error) {
	v := os.Getenv(name)
	if v == "" {
		return
	}

	ms, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer milliseconds %q: %w", name, v, err))
		return
	}

	*dst = time.Duration(ms) * time.Millisecond
}

func boolEnv(name string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	return v == "1" || v == "true" || v == "yes"
}

// normalizeRegionList splits a comma-separated region list, trimming and
// uppercasing each entry to match the canonical region-code format.
func normalizeRegionList(v string) []string {
	parts := strings.Split(v, ",")
	regions := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			regions = append(regions, p)
		}
	}

	return regions
}
