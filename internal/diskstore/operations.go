package diskstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// listPageSize is the page size used by ListAll, mirroring the store's
// own default listing page size.
const listPageSize = 200

// EnsureDir creates the directory at path, creating each ancestor
// segment in order — the store rejects a directory create whose parent
// does not yet exist, and its 409 does not distinguish "already there"
// from "parent missing". A 409 on any segment (directory already
// exists, including the race where a concurrent caller created it
// first) is treated as success — ensureDir is idempotent by contract.
func (c *Client) EnsureDir(ctx context.Context, path string) error {
	requestID := newRequestID()
	c.callLog(requestID, "ensureDir", path)

	// Fast path: the full directory usually already exists (every upload
	// preflight ensures its slot), and one metadata GET settles it.
	if exists, err := c.Exists(ctx, path); err == nil && exists {
		return nil
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")

	prefix := ""
	for _, seg := range segments {
		if seg == "" {
			continue
		}

		prefix += "/" + seg

		if exists, err := c.Exists(ctx, prefix); err == nil && exists {
			continue
		}

		if err := c.createDir(ctx, prefix); err != nil {
			return fmt.Errorf("diskstore: ensureDir %s: %w", path, err)
		}
	}

	return nil
}

func (c *Client) createDir(ctx context.Context, path string) error {
	q := url.Values{"path": {diskPath(path)}}

	resp, err := c.do(ctx, http.MethodPut, "/resources?"+q.Encode(), nil, retryOpts{retry409: true})
	if err != nil {
		var storeErr *StoreError
		if isStoreErrorKind(err, &storeErr) && storeErr.StatusCode == http.StatusConflict {
			return nil
		}

		return err
	}

	resp.Body.Close()

	return nil
}

// PutBytes uploads raw bytes to path via the store's two-step signed-URL
// upload protocol: request an upload href, then PUT the body to it.
// Existing content at path is overwritten. contentType may be empty, in
// which case none is sent and the store sniffs.
func (c *Client) PutBytes(ctx context.Context, path string, data []byte, contentType string) error {
	requestID := newRequestID()
	c.callLog(requestID, "putBytes", path)

	href, method, err := c.requestUploadLink(ctx, path)
	if err != nil {
		return fmt.Errorf("diskstore: putBytes %s: %w", path, err)
	}

	if err := c.putToLink(ctx, href, method, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return fmt.Errorf("diskstore: putBytes %s: %w", path, err)
	}

	return nil
}

// PutJSON marshals v and writes it to path as the canonical JSON
// representation of an index or marker document. Bodies are
// pretty-printed: the sidecar files double as something an operator
// opens in the store's own web UI when debugging.
func (c *Client) PutJSON(ctx context.Context, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("diskstore: marshaling JSON for %s: %w", path, err)
	}

	return c.PutBytes(ctx, path, data, "application/json")
}

// GetJSON downloads path and unmarshals it into v. Returns ErrNotFound
// (via errors.Is) if path does not exist.
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	requestID := newRequestID()
	c.callLog(requestID, "getJSON", path)

	data, err := c.getBytes(ctx, path)
	if err != nil {
		return fmt.Errorf("diskstore: getJSON %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("diskstore: unmarshaling JSON from %s: %w", path, err)
	}

	return nil
}

// getBytes downloads the full contents of path via the store's two-step
// signed-URL download protocol.
func (c *Client) getBytes(ctx context.Context, path string) ([]byte, error) {
	href, err := c.requestDownloadLink(ctx, path)
	if err != nil {
		return nil, err
	}

	return c.getFromLink(ctx, href)
}

// List returns one page of directory entries under path, starting at
// offset with up to limit results.
func (c *Client) List(ctx context.Context, path string, offset, limit int) (ListPage, error) {
	requestID := newRequestID()
	c.callLog(requestID, "list", path)

	q := url.Values{
		"path":   {diskPath(path)},
		"offset": {fmt.Sprintf("%d", offset)},
		"limit":  {fmt.Sprintf("%d", limit)},
	}

	resp, err := c.do(ctx, http.MethodGet, "/resources?"+q.Encode(), nil, retryOpts{})
	if err != nil {
		return ListPage{}, fmt.Errorf("diskstore: list %s: %w", path, err)
	}
	defer resp.Body.Close()

	var parsed resourceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ListPage{}, fmt.Errorf("diskstore: decoding listing of %s: %w", path, err)
	}

	if parsed.Embedded == nil {
		return ListPage{Offset: offset, Limit: limit}, nil
	}

	entries := make([]Entry, 0, len(parsed.Embedded.Items))
	for _, item := range parsed.Embedded.Items {
		entries = append(entries, item.toEntry())
	}

	return ListPage{
		Entries: entries,
		Total:   parsed.Embedded.Total,
		Offset:  parsed.Embedded.Offset,
		Limit:   parsed.Embedded.Limit,
	}, nil
}

// ListAll returns every entry under path, transparently paginating
// using listPageSize until the store reports no further results.
func (c *Client) ListAll(ctx context.Context, path string) ([]Entry, error) {
	var all []Entry

	offset := 0

	for {
		page, err := c.List(ctx, path, offset, listPageSize)
		if err != nil {
			return nil, err
		}

		all = append(all, page.Entries...)

		if !page.HasMore() {
			return all, nil
		}

		offset += len(page.Entries)
	}
}

// Exists reports whether path currently exists in the store.
func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	requestID := newRequestID()
	c.callLog(requestID, "exists", path)

	q := url.Values{"path": {diskPath(path)}, "limit": {"0"}}

	resp, err := c.do(ctx, http.MethodGet, "/resources?"+q.Encode(), nil, retryOpts{})
	if err != nil {
		var storeErr *StoreError
		if isStoreErrorKind(err, &storeErr) && storeErr.StatusCode == http.StatusNotFound {
			return false, nil
		}

		return false, fmt.Errorf("diskstore: exists %s: %w", path, err)
	}

	resp.Body.Close()

	return true, nil
}

// Delete permanently removes path (and, if it is a directory, its
// entire subtree). There is no trash/recycle semantics — deletion is
// immediate and irreversible, matching the store's "permanently"
// deletion mode.
func (c *Client) Delete(ctx context.Context, path string) error {
	requestID := newRequestID()
	c.callLog(requestID, "delete", path)

	q := url.Values{"path": {diskPath(path)}, "permanently": {"true"}}

	resp, err := c.do(ctx, http.MethodDelete, "/resources?"+q.Encode(), nil, retryOpts{})
	if err != nil {
		return fmt.Errorf("diskstore: delete %s: %w", path, err)
	}

	resp.Body.Close()

	return nil
}

// Move relocates from to to. A 409 Conflict (destination already
// exists) is a distinct, caller-visible error here — unlike EnsureDir,
// Move is not idempotent by default; overwrite lets the caller opt in.
func (c *Client) Move(ctx context.Context, from, to string, overwrite bool) error {
	requestID := newRequestID()
	c.callLog(requestID, "move", fmt.Sprintf("%s -> %s", from, to))

	q := url.Values{
		"from":      {diskPath(from)},
		"path":      {diskPath(to)},
		"overwrite": {fmt.Sprintf("%t", overwrite)},
	}

	resp, err := c.do(ctx, http.MethodPost, "/resources/move?"+q.Encode(), nil, retryOpts{})
	if err != nil {
		return fmt.Errorf("diskstore: move %s to %s: %w", from, to, err)
	}

	resp.Body.Close()

	return nil
}

// Publish makes path publicly accessible and returns its published URL.
func (c *Client) Publish(ctx context.Context, path string) (string, error) {
	requestID := newRequestID()
	c.callLog(requestID, "publish", path)

	q := url.Values{"path": {diskPath(path)}}

	resp, err := c.do(ctx, http.MethodPut, "/resources/publish?"+q.Encode(), nil, retryOpts{})
	if err != nil {
		return "", fmt.Errorf("diskstore: publish %s: %w", path, err)
	}
	defer resp.Body.Close()

	meta, err := c.fetchMeta(ctx, path)
	if err != nil {
		return "", fmt.Errorf("diskstore: publish %s: fetching published URL: %w", path, err)
	}

	return meta, nil
}

// fetchMeta reads the public_url field out of the resource's own
// metadata response after publishing, since the publish endpoint itself
// only confirms the operation, not the resulting URL.
func (c *Client) fetchMeta(ctx context.Context, path string) (string, error) {
	q := url.Values{"path": {diskPath(path)}, "limit": {"0"}}

	resp, err := c.do(ctx, http.MethodGet, "/resources?"+q.Encode(), nil, retryOpts{})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var meta struct {
		PublicURL string `json:"public_url"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", fmt.Errorf("decoding publish metadata: %w", err)
	}

	return meta.PublicURL, nil
}

// GetDownloadURL returns a short-lived, pre-authenticated download URL
// for path, without fetching the bytes. Callers needing the raw content
// should prefer GetJSON/getBytes, which use the same link internally.
func (c *Client) GetDownloadURL(ctx context.Context, path string) (string, error) {
	requestID := newRequestID()
	c.callLog(requestID, "getDownloadURL", path)

	return c.requestDownloadLink(ctx, path)
}

func diskPath(p string) string {
	return p
}

func isStoreErrorKind(err error, target **StoreError) bool {
	return errors.As(err, target)
}
