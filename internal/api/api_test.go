package api

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carphotos/carphotos/internal/diskstore"
	"github.com/carphotos/carphotos/internal/pathmodel"
	"github.com/carphotos/carphotos/internal/storage"
)

// fakeStore is a minimal in-memory storage.Store, independent of the
// storage package's own internal fake, so this package's tests stay
// black-box over the Boundary's public surface only.
type fakeStore struct {
	mu    sync.Mutex
	nodes map[string][]byte
	dirs  map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{nodes: map[string][]byte{}, dirs: map[string]bool{"": true}}
}

func clean(p string) string { return strings.Trim(p, "/") }

func parentOf(p string) string {
	p = clean(p)
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i]
	}

	return ""
}

func (f *fakeStore) EnsureDir(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := clean(path)
	for p != "" {
		f.dirs[p] = true
		p = parentOf(p)
	}

	return nil
}

func (f *fakeStore) PutBytes(_ context.Context, path string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nodes[clean(path)] = append([]byte{}, data...)

	return nil
}

func (f *fakeStore) PutJSON(ctx context.Context, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return f.PutBytes(ctx, path, data, "application/json")
}

func (f *fakeStore) GetJSON(_ context.Context, path string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.nodes[clean(path)]
	if !ok {
		return diskstore.ErrNotFound
	}

	return json.Unmarshal(data, v)
}

func (f *fakeStore) ListAll(_ context.Context, path string) ([]diskstore.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := clean(path)

	var entries []diskstore.Entry

	for p := range f.dirs {
		if p != "" && parentOf(p) == prefix {
			entries = append(entries, diskstore.Entry{Name: p[strings.LastIndex(p, "/")+1:], Path: "/" + p, Kind: diskstore.KindDir})
		}
	}

	for p := range f.nodes {
		if parentOf(p) == prefix {
			entries = append(entries, diskstore.Entry{Name: p[strings.LastIndex(p, "/")+1:], Path: "/" + p, Kind: diskstore.KindFile, Modified: time.Now()})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	return entries, nil
}

func (f *fakeStore) List(ctx context.Context, path string, offset, limit int) (diskstore.ListPage, error) {
	all, err := f.ListAll(ctx, path)
	if err != nil {
		return diskstore.ListPage{}, err
	}

	end := min(offset+limit, len(all))

	return diskstore.ListPage{Entries: all[min(offset, len(all)):end], Total: len(all), Offset: offset, Limit: limit}, nil
}

func (f *fakeStore) Exists(_ context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := clean(path)
	_, fileOK := f.nodes[p]
	dirOK := f.dirs[p]

	return fileOK || dirOK, nil
}

func (f *fakeStore) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := clean(path)
	delete(f.nodes, prefix)
	delete(f.dirs, prefix)

	return nil
}

func (f *fakeStore) Move(_ context.Context, from, to string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fromP, toP := clean(from), clean(to)

	for p, v := range f.nodes {
		if p == fromP || strings.HasPrefix(p, fromP+"/") {
			delete(f.nodes, p)
			f.nodes[toP+strings.TrimPrefix(p, fromP)] = v
		}
	}

	for p := range f.dirs {
		if p == fromP || strings.HasPrefix(p, fromP+"/") {
			delete(f.dirs, p)
			f.dirs[toP+strings.TrimPrefix(p, fromP)] = true
		}
	}

	return nil
}

func (f *fakeStore) Publish(_ context.Context, path string) (string, error) {
	return "https://fake.example/public/" + clean(path), nil
}

func (f *fakeStore) GetDownloadURL(_ context.Context, path string) (string, error) {
	return "https://fake.example/download/" + clean(path), nil
}

func newTestBoundary() *Boundary {
	ttl := storage.TTLConfig{
		RegionIndexTTL: 10 * time.Minute,
		PhotosIndexTTL: 2 * time.Minute,
		SlotStatsTTL:   2 * time.Minute,
		LockTTL:        5 * time.Minute,
	}

	engine := storage.NewEngine(newFakeStore(), "/Фото", ttl)

	return New(engine)
}

func TestBoundary_CreateOpenUpload(t *testing.T) {
	ctx := context.Background()
	b := newTestBoundary()

	car, err := b.CreateCar(ctx, "r1", "Toyota", "Camry", "1HGBH41JXMN109186", "u@x")
	require.NoError(t, err)

	cws, err := b.GetCarWithSlots(ctx, "r1", car.VIN)
	require.NoError(t, err)
	require.Len(t, cws.Slots, 14)

	require.NoError(t, b.LoadCarSlotCounts(ctx, cws))

	outcome, err := b.UploadToSlot(ctx, "r1", car.VIN, pathmodel.SlotDealer, 1,
		[]storage.UploadFile{{Name: "a.jpg", Data: []byte("hello"), ContentType: "image/jpeg"}}, "u@x")
	require.NoError(t, err)
	assert.Equal(t, "done", outcome.Stage)

	url, err := b.GetSlotDownloadURL(ctx, "r1", car.VIN, pathmodel.SlotDealer, 1, "a.jpg")
	require.NoError(t, err)
	assert.Contains(t, url, "a.jpg")
}

func TestBoundary_UploadRequestCaps(t *testing.T) {
	ctx := context.Background()

	ttl := storage.TTLConfig{
		RegionIndexTTL: 10 * time.Minute,
		PhotosIndexTTL: 2 * time.Minute,
		SlotStatsTTL:   2 * time.Minute,
		LockTTL:        5 * time.Minute,
	}
	engine := storage.NewEngine(newFakeStore(), "/Фото", ttl)
	b := New(engine, WithUploadLimits(UploadLimits{
		MaxFileSizeMB:        1,
		MaxFilesPerUpload:    2,
		MaxTotalUploadSizeMB: 2,
	}))

	// Too many files in one request. The caps are checked before any
	// engine work, so no car needs to exist.
	tooMany := []storage.UploadFile{
		{Name: "a.jpg", Data: []byte("a")},
		{Name: "b.jpg", Data: []byte("b")},
		{Name: "c.jpg", Data: []byte("c")},
	}

	_, err := b.UploadToSlot(ctx, "r1", "1HGBH41JXMN109186", pathmodel.SlotDealer, 1, tooMany, "u@x")
	require.Error(t, err)
	assert.True(t, storage.IsKind(err, storage.KindPhotoLimitExceeded))

	// One file over the per-file cap.
	big := []storage.UploadFile{{Name: "big.jpg", Data: make([]byte, 2*1024*1024)}}

	_, err = b.UploadToSlot(ctx, "r1", "1HGBH41JXMN109186", pathmodel.SlotDealer, 1, big, "u@x")
	require.Error(t, err)
	assert.True(t, storage.IsKind(err, storage.KindSlotSizeExceeded))
}

func TestBoundary_LinksRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newTestBoundary()

	car, err := b.CreateCar(ctx, "r1", "Toyota", "Camry", "1HGBH41JXMN109186", "u@x")
	require.NoError(t, err)

	link, err := b.CreateLink(ctx, "r1", car.VIN, "Inspection report", "https://example.com/report", "u@x")
	require.NoError(t, err)

	links, err := b.ListLinks(ctx, "r1", car.VIN)
	require.NoError(t, err)
	require.Len(t, links, 1)

	require.NoError(t, b.DeleteLink(ctx, "r1", car.VIN, link.ID))

	links, err = b.ListLinks(ctx, "r1", car.VIN)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestBoundary_ArchiveRestore(t *testing.T) {
	ctx := context.Background()
	b := newTestBoundary()

	car, err := b.CreateCar(ctx, "r1", "Toyota", "Camry", "1HGBH41JXMN109186", "u@x")
	require.NoError(t, err)

	_, err = b.ArchiveCar(ctx, "r1", car.VIN, "admin")
	require.NoError(t, err)

	_, err = b.GetCarWithSlots(ctx, "r1", car.VIN)
	require.Error(t, err)

	restored, err := b.RestoreCar(ctx, car.VIN, "r2", "admin")
	require.NoError(t, err)
	assert.Equal(t, "R2", restored.Region)
}
