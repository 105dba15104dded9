package shipspotting

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipsnap/pkg/config"
	errs "shipsnap/pkg/errors"
	"shipsnap/pkg/logger"
)

func testPoolConfigs(baseURL string) (*config.SiteConfig, *config.DownloadConfig, *config.RetryConfig) {
	site := &config.SiteConfig{
		BaseURL:            baseURL,
		UserAgent:          "test-agent",
		SessionPoolSize:    2,
		GalleryConcurrency: 4,
		RequestsPerMinute:  10000,
		RequestTimeout:     5 * time.Second,
	}
	dl := &config.DownloadConfig{ConcurrentDownloads: 8, DownloadTimeout: 5 * time.Second}
	rt := &config.RetryConfig{
		MaxAttempts:  3,
		BaseDelay:    time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		JitterFactor: 0,
	}
	return site, dl, rt
}

func newTestPool(t *testing.T, baseURL string) *SessionPool {
	t.Helper()
	site, dl, rt := testPoolConfigs(baseURL)
	pool, err := NewSessionPool(context.Background(), site, dl, rt, logger.NewTestLogger())
	require.NoError(t, err)
	return pool
}

func TestPoolGetSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gallery" {
			w.Write([]byte("gallery body"))
			return
		}
		w.Write([]byte("home"))
	}))
	defer server.Close()

	pool := newTestPool(t, server.URL)

	body, err := pool.Get(context.Background(), server.URL+"/gallery")
	require.NoError(t, err)
	assert.Equal(t, "gallery body", string(body))
}

func TestPoolRecoversFromChallenge(t *testing.T) {
	var galleryHits, warmups atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gallery" {
			// First hit is challenged; a re-established session gets through
			if galleryHits.Add(1) == 1 {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Write([]byte("ok after challenge"))
			return
		}
		warmups.Add(1)
		w.Write([]byte("home"))
	}))
	defer server.Close()

	pool := newTestPool(t, server.URL)
	warmupsBefore := warmups.Load()

	body, err := pool.Get(context.Background(), server.URL+"/gallery")
	require.NoError(t, err)
	assert.Equal(t, "ok after challenge", string(body))
	assert.Greater(t, warmups.Load(), warmupsBefore, "challenge should trigger a fresh warm-up")
}

func TestPoolRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/flaky" {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("finally"))
			return
		}
		w.Write([]byte("home"))
	}))
	defer server.Close()

	pool := newTestPool(t, server.URL)

	body, err := pool.Get(context.Background(), server.URL+"/flaky")
	require.NoError(t, err)
	assert.Equal(t, "finally", string(body))
}

func TestPoolExhaustsAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("home"))
	}))
	defer server.Close()

	pool := newTestPool(t, server.URL)

	_, err := pool.Get(context.Background(), server.URL+"/down")
	require.Error(t, err)
}

func TestPoolNotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("home"))
	}))
	defer server.Close()

	pool := newTestPool(t, server.URL)

	_, _, err := pool.Download(context.Background(), server.URL+"/missing.jpg")
	require.Error(t, err)

	var typed *errs.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errs.ErrorTypeNotFound, typed.Type)
	assert.Equal(t, int32(1), hits.Load())
}

func TestPoolDownloadTimeoutBoundsEachAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow.jpg" {
			time.Sleep(150 * time.Millisecond)
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte{0xFF, 0xD8, 0xFF})
			return
		}
		w.Write([]byte("home"))
	}))
	defer server.Close()

	site, dl, rt := testPoolConfigs(server.URL)
	dl.DownloadTimeout = 20 * time.Millisecond
	pool, err := NewSessionPool(context.Background(), site, dl, rt, logger.NewTestLogger())
	require.NoError(t, err)

	start := time.Now()
	_, _, err = pool.Download(context.Background(), server.URL+"/slow.jpg")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)

	// Gallery fetches carry no per-attempt download deadline, so the same
	// slow endpoint still succeeds through Get.
	body, err := pool.Get(context.Background(), server.URL+"/slow.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, body)
}

func TestPoolDownloadReturnsContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/img.jpg" {
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte{0xFF, 0xD8, 0xFF})
			return
		}
		w.Write([]byte("home"))
	}))
	defer server.Close()

	pool := newTestPool(t, server.URL)

	data, contentType, err := pool.Download(context.Background(), server.URL+"/img.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", contentType)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, data)
}
