package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.DiskToken = "test-token"
	cfg.Regions = []string{"R1"}

	return cfg
}

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidate_MissingToken(t *testing.T) {
	cfg := validConfig()
	cfg.DiskToken = ""

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YANDEX_DISK_TOKEN")
}

func TestValidate_NoRegions(t *testing.T) {
	cfg := validConfig()
	cfg.Regions = nil

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "regions")
}

func TestValidate_AccumulatesAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.DiskToken = ""
	cfg.Regions = nil
	cfg.MaxPhotosPerSlot = 0

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YANDEX_DISK_TOKEN")
	assert.Contains(t, err.Error(), "regions")
	assert.Contains(t, err.Error(), "max_photos_per_slot")
}

func TestValidate_PhotosIndexTTLOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.PhotosIndexTTL = 10 * time.Minute

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "photos_index_ttl")
}
