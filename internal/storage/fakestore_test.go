package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carphotos/carphotos/internal/diskstore"
)

// fakeNode is one entry in the in-memory fake store.
type fakeNode struct {
	isDir    bool
	data     []byte
	modified time.Time
}

// fakeStore is a minimal in-memory implementation of the Store
// interface, used to exercise the engine's logic without a real HTTP
// remote. It does not attempt to model retries or network failures —
// diskstore.Client's own tests cover that layer.
type fakeStore struct {
	mu    sync.Mutex
	nodes map[string]*fakeNode
	now   func() time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes: map[string]*fakeNode{"": {isDir: true}},
		now:   time.Now,
	}
}

func clean(path string) string {
	return strings.Trim(path, "/")
}

func parentOf(path string) string {
	path = clean(path)
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}

	return path[:idx]
}

func (f *fakeStore) EnsureDir(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.ensureDirLocked(path)
}

func (f *fakeStore) ensureDirLocked(path string) error {
	path = clean(path)
	if path == "" {
		return nil
	}

	if parent := parentOf(path); parent != "" {
		if err := f.ensureDirLocked(parent); err != nil {
			return err
		}
	}

	if n, ok := f.nodes[path]; ok {
		if !n.isDir {
			return fmt.Errorf("fakestore: %s exists as a file", path)
		}

		return nil
	}

	f.nodes[path] = &fakeNode{isDir: true, modified: f.now()}

	return nil
}

func (f *fakeStore) PutBytes(_ context.Context, path string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if parent := parentOf(clean(path)); parent != "" {
		if err := f.ensureDirLocked(parent); err != nil {
			return err
		}
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	f.nodes[clean(path)] = &fakeNode{data: cp, modified: f.now()}

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

	n, ok := f.nodes[clean(path)]
	if !ok || n.isDir {
		return diskstore.ErrNotFound
	}

	return json.Unmarshal(n.data, v)
}

func (f *fakeStore) List(ctx context.Context, path string, offset, limit int) (diskstore.ListPage, error) {
	all, err := f.ListAll(ctx, path)
	if err != nil {
		return diskstore.ListPage{}, err
	}

	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	if offset > len(all) {
		offset = len(all)
	}

	return diskstore.ListPage{Entries: all[offset:end], Total: len(all), Offset: offset, Limit: limit}, nil
}

func (f *fakeStore) ListAll(_ context.Context, path string) ([]diskstore.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := clean(path)

	var entries []diskstore.Entry

	for p, n := range f.nodes {
		if p == prefix {
			continue
		}

		if parentOf(p) != prefix {
			continue
		}

		name := p[strings.LastIndex(p, "/")+1:]
		kind := diskstore.KindFile

		if n.isDir {
			kind = diskstore.KindDir
		}

		entries = append(entries, diskstore.Entry{
			Name:     name,
			Path:     "/" + p,
			Kind:     kind,
			Size:     int64(len(n.data)),
			Modified: n.modified,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	return entries, nil
}

func (f *fakeStore) Exists(_ context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.nodes[clean(path)]

	return ok, nil
}

func (f *fakeStore) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := clean(path)
	for p := range f.nodes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			delete(f.nodes, p)
		}
	}

	return nil
}

func (f *fakeStore) Move(_ context.Context, from, to string, overwrite bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fromP := clean(from)
	toP := clean(to)

	if _, ok := f.nodes[toP]; ok && !overwrite {
		return &diskstore.StoreError{StatusCode: 409, Err: diskstore.ErrConflict, Message: "destination exists"}
	}

	moved := map[string]*fakeNode{}

	for p, n := range f.nodes {
		if p == fromP || strings.HasPrefix(p, fromP+"/") {
			newPath := toP + strings.TrimPrefix(p, fromP)
			moved[newPath] = n
			delete(f.nodes, p)
		}
	}

	for p, n := range moved {
		f.nodes[p] = n
	}

	if err := f.ensureDirLocked(parentOf(toP)); err != nil {
		return err
	}

	return nil
}

func (f *fakeStore) Publish(_ context.Context, path string) (string, error) {
	return "https://fake.example/public/" + clean(path), nil
}

func (f *fakeStore) GetDownloadURL(_ context.Context, path string) (string, error) {
	return "https://fake.example/download/" + clean(path), nil
}
