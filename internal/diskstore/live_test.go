package diskstore_test

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carphotos/carphotos/internal/diskstore"
	"github.com/carphotos/carphotos/testutil"
)

// TestLiveStore_RoundTrip exercises the adapter against the real remote
// store. It runs only when YANDEX_DISK_TOKEN is available (directly or
// via a repo-root .env) and cleans up after itself.
func TestLiveStore_RoundTrip(t *testing.T) {
	token := testutil.DiskToken(t)

	client := diskstore.NewClient(
		diskstore.DefaultBaseURL,
		&http.Client{Timeout: 60 * time.Second},
		diskstore.NewStaticTokenSource(token),
		nil,
		"carphotos-live-test",
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	root := fmt.Sprintf("/carphotos-live-test/%d", os.Getpid())
	defer func() { _ = client.Delete(ctx, root) }()

	require.NoError(t, client.EnsureDir(ctx, root+"/a/b"))

	exists, err := client.Exists(ctx, root+"/a/b")
	require.NoError(t, err)
	assert.True(t, exists)

	doc := map[string]any{"version": 1, "items": []string{"x.jpg"}}
	require.NoError(t, client.PutJSON(ctx, root+"/a/b/_PHOTOS.json", doc))

	var got struct {
		Version int      `json:"version"`
		Items   []string `json:"items"`
	}
	require.NoError(t, client.GetJSON(ctx, root+"/a/b/_PHOTOS.json", &got))
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, []string{"x.jpg"}, got.Items)

	entries, err := client.ListAll(ctx, root+"/a/b")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "_PHOTOS.json", entries[0].Name)

	require.NoError(t, client.Move(ctx, root+"/a/b", root+"/a/c", false))

	exists, err = client.Exists(ctx, root+"/a/b")
	require.NoError(t, err)
	assert.False(t, exists)

	url, err := client.GetDownloadURL(ctx, root+"/a/c/_PHOTOS.json")
	require.NoError(t, err)
	assert.NotEmpty(t, url)
}
