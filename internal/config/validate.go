package config

import (
	"errors"
	"fmt"
	"time"
)

const minRegions = 1

// Validate checks all configuration values and returns every violation
// found, joined, rather than stopping at the first — so an operator sees
// a complete report in one pass.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.DiskToken == "" {
		errs = append(errs, fmt.Errorf("%s: must be set", EnvDiskToken))
	}

	if cfg.BaseDir == "" {
		errs = append(errs, errors.New("base_dir: must not be empty"))
	}

	if len(cfg.Regions) < minRegions {
		errs = append(errs, errors.New("regions: at least one region must be configured"))
	}

	if cfg.AdminRegion == "" {
		errs = append(errs, errors.New("admin_region: must not be empty"))
	}

	errs = append(errs, validatePositive("max_photos_per_slot", cfg.MaxPhotosPerSlot)...)
	errs = append(errs, validatePositive("max_slot_size_mb", cfg.MaxSlotSizeMB)...)
	errs = append(errs, validatePositive("max_file_size_mb", cfg.MaxFileSizeMB)...)
	errs = append(errs, validatePositive("max_files_per_upload", cfg.MaxFilesPerUpload)...)
	errs = append(errs, validatePositive("max_total_upload_size_mb", cfg.MaxTotalUploadSizeMB)...)

	errs = append(errs, validateTTLRange("region_index_ttl", cfg.RegionIndexTTL, minRegionIndexTTL, maxRegionIndexTTL)...)
	errs = append(errs, validateTTLRange("photos_index_ttl", cfg.PhotosIndexTTL, minPhotosIndexTTL, maxPhotosIndexTTL)...)

	if cfg.LockTTL <= 0 {
		errs = append(errs, errors.New("lock_ttl: must be positive"))
	}

	return errors.Join(errs...)
}

func validatePositive(field string, v int) []error {
	if v <= 0 {
		return []error{fmt.Errorf("%s: must be positive, got %d", field, v)}
	}

	return nil
}

func validateTTLRange(field string, v, minV, maxV time.Duration) []error {
	if v < minV || v > maxV {
		return []error{fmt.Errorf("%s: must be between %s and %s, got %s", field, minV, maxV, v)}
	}

	return nil
}
