package diskstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken struct{ tok string }

func (s staticToken) Token() (string, error) { return s.tok, nil }

type failingToken struct{}

func (failingToken) Token() (string, error) { return "", assert.AnError }

func noopSleep(context.Context, time.Duration) error { return nil }

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	c := NewClient(baseURL, http.DefaultClient, staticToken{tok: "t"}, nil, "carphotos-test")
	c.sleepFunc = noopSleep

	return c
}

func TestEnsureDir_CreatedOnFirstTry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "OAuth t", r.Header.Get("Authorization"))
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.EnsureDir(context.Background(), "/Фото/region/car"))
}

func TestEnsureDir_ConflictTreatedAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"already exists"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.EnsureDir(context.Background(), "/Фото/region/car"))
}

func TestMove_ConflictIsTerminalError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.Move(context.Background(), "/a", "/b", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDo_RetriesServerErrorsThenSucceeds(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusBadGateway)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	exists, err := c.Exists(context.Background(), "/Фото/region/car")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDo_StopsRetryingAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.Delete(context.Background(), "/Фото/region/car")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerError)
	assert.Equal(t, int32(maxRetries+1), calls.Load())
}

func TestDo_NonRetryable4xxFailsImmediately(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.Delete(context.Background(), "/Фото/region/car")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_TokenSourceErrorPropagates(t *testing.T) {
	c := NewClient("http://unused.invalid", http.DefaultClient, failingToken{}, nil, "carphotos-test")
	c.sleepFunc = noopSleep

	_, err := c.Exists(context.Background(), "/Фото/region/car")
	require.Error(t, err)
}

func TestDo_ContextCancellationStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Exists(ctx, "/Фото/region/car")
	require.Error(t, err)
}

func TestCalcBackoff_GrowsAndCaps(t *testing.T) {
	c := &Client{}

	b0 := c.calcBackoff(0)
	b5 := c.calcBackoff(5)

	assert.Less(t, b0, b5)
	assert.LessOrEqual(t, b5, maxBackoff+time.Duration(float64(maxBackoff)*jitterFraction))
}
