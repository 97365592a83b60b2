package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"0", 0},
		{"100", 100},
		{"20MB", 20_000_000},
		{"20MiB", 20 * 1024 * 1024},
		{"1GB", 1_000_000_000},
	}

	for _, c := range cases {
		got, err := parseSize(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseSize_Invalid(t *testing.T) {
	_, err := parseSize("not-a-size")
	require.Error(t, err)
}
