package diskstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type photoIndexStub struct {
	Version int      `json:"version"`
	Files   []string `json:"files"`
}

func TestPutBytesAndGetJSON_RoundTrip(t *testing.T) {
	var uploadMux *http.ServeMux
	var stored []byte

	var uploadSrv *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/resources/upload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(linkResponse{Href: uploadSrv.URL + "/upload-target", Method: http.MethodPut})
	})
	mux.HandleFunc("/resources/download", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(linkResponse{Href: uploadSrv.URL + "/download-target"})
	})
	mux.HandleFunc("/upload-target", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		stored = body
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/download-target", func(w http.ResponseWriter, r *http.Request) {
		w.Write(stored)
	})

	uploadMux = mux
	uploadSrv = httptest.NewServer(uploadMux)
	defer uploadSrv.Close()

	c := newTestClient(t, uploadSrv.URL)

	index := photoIndexStub{Version: 1, Files: []string{"a.jpg", "b.jpg"}}
	require.NoError(t, c.PutJSON(context.Background(), "/Фото/region/car/dealer/_PHOTOS.json", index))

	var got photoIndexStub
	require.NoError(t, c.GetJSON(context.Background(), "/Фото/region/car/dealer/_PHOTOS.json", &got))
	assert.Equal(t, index, got)
}

func TestList_SinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := resourceResponse{
			Type: "dir",
			Path: "disk:/Фото/region",
			Embedded: &struct {
				Items  []resourceResponse `json:"items"`
				Total  int                `json:"total"`
				Offset int                `json:"offset"`
				Limit  int                `json:"limit"`
			}{
				Items: []resourceResponse{
					{Name: "car1", Type: "dir", Path: "disk:/Фото/region/car1"},
					{Name: "car2", Type: "dir", Path: "disk:/Фото/region/car2"},
				},
				Total:  2,
				Offset: 0,
				Limit:  200,
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	page, err := c.List(context.Background(), "/Фото/region", 0, 200)
	require.NoError(t, err)
	assert.Len(t, page.Entries, 2)
	assert.False(t, page.HasMore())
	assert.Equal(t, "/Фото/region/car1", page.Entries[0].Path)
}

func TestListAll_Paginates(t *testing.T) {
	total := 450

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := 0
		fmt.Sscanf(r.URL.Query().Get("offset"), "%d", &offset)

		limit := listPageSize
		remaining := total - offset

		n := limit
		if remaining < n {
			n = remaining
		}

		items := make([]resourceResponse, n)
		for i := range items {
			items[i] = resourceResponse{Name: fmt.Sprintf("item-%d", offset+i), Type: "dir", Path: fmt.Sprintf("disk:/x/item-%d", offset+i)}
		}

		resp := resourceResponse{
			Type: "dir",
			Embedded: &struct {
				Items  []resourceResponse `json:"items"`
				Total  int                `json:"total"`
				Offset int                `json:"offset"`
				Limit  int                `json:"limit"`
			}{Items: items, Total: total, Offset: offset, Limit: limit},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	all, err := c.ListAll(context.Background(), "/x")
	require.NoError(t, err)
	assert.Len(t, all, total)
}

func TestExists_NotFoundReturnsFalseNoError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	exists, err := c.Exists(context.Background(), "/Фото/region/car")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPublish_ReturnsPublicURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/resources/publish", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/resources", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"public_url": "https://disk.example/public/abc"})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	publicURL, err := c.Publish(context.Background(), "/Фото/region/car/dealer/1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://disk.example/public/abc", publicURL)
}
