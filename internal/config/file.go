package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// LoadFile overlays an optional TOML file onto cfg. A missing file is not
// an error — CI and most deployments configure purely through environment
// variables; the file exists only so an operator can check in a shared
// baseline for the handful of values worth version-controlling (base dir,
// region list, size limits).
func LoadFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("config: stat %s: %w", path, err)
	}

	var fc fileConfig

	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return applyFileConfig(cfg, &fc)
}

func applyFileConfig(cfg *Config, fc *fileConfig) error {
	if fc.BaseDir != "" {
		cfg.BaseDir = fc.BaseDir
	}

	if len(fc.Regions) > 0 {
		cfg.Regions = normalizeRegionListSlice(fc.Regions)
	}

	if fc.AdminRegion != "" {
		cfg.AdminRegion = fc.AdminRegion
	}

	if fc.MaxPhotosPerSlot != 0 {
		cfg.MaxPhotosPerSlot = fc.MaxPhotosPerSlot
	}

	if fc.MaxFilesPerUpload != 0 {
		cfg.MaxFilesPerUpload = fc.MaxFilesPerUpload
	}

	var errs []error

	errs = append(errs, applyFileSizeMB(fc.MaxSlotSizeMB, &cfg.MaxSlotSizeMB))
	errs = append(errs, applyFileSizeMB(fc.MaxFileSizeMB, &cfg.MaxFileSizeMB))
	errs = append(errs, applyFileSizeMB(fc.MaxTotalUploadSizeMB, &cfg.MaxTotalUploadSizeMB))

	return errors.Join(errs...)
}

// applyFileSizeMB parses a human size string ("20MB", "20MiB", "20") from
// the TOML file into a megabyte integer field, reusing parseSize's
// suffix handling so operators can write either notation.
func applyFileSizeMB(raw string, dst *int) error {
	if raw == "" {
		return nil
	}

	if n, err := strconv.Atoi(raw); err == nil {
		*dst = n

		return nil
	}

	bytes, err := parseSize(raw)
	if err != nil {
		return err
	}

	const mb = 1_000_000

	*dst = int(bytes / mb)

	return nil
}

func normalizeRegionListSlice(in []string) []string {
	out := make([]string, 0, len(in))

	for _, r := range in {
		out = append(out, normalizeRegionList(r)...)
	}

	return out
}
