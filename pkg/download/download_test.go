package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "slide_01.png", FileName(0, "https://example.com/a/cover.PNG"))
	assert.Equal(t, "slide_02.jpg", FileName(1, "https://example.com/a/cover.jpeg"))
	assert.Equal(t, "slide_10.jpg", FileName(9, "https://example.com/image?id=3"))
	assert.Equal(t, "slide_100.png", FileName(99, "https://example.com/x.png?w=1"))
}

func TestNew_Options(t *testing.T) {
	_, err := New("")
	require.Error(t, err)

	_, err = New(t.TempDir(), WithAttempts(0))
	require.Error(t, err)

	_, err = New(t.TempDir(), WithTimeout(0))
	require.Error(t, err)

	_, err = New(t.TempDir(), WithHTTPClient(nil))
	require.Error(t, err)

	d, err := New(t.TempDir(), WithTimeout(3*time.Second), WithAttempts(4), WithUserAgent("pptlib-test"))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, d.client.Timeout)
	assert.Equal(t, uint(4), d.attempts)
	assert.Equal(t, "pptlib-test", d.userAgent)

	d, err = New(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, d.client.Timeout)
}

func TestNew_HTTPClientIsCopied(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	tests := []struct {
		name     string
		opts     []Option
		expected time.Duration
	}{
		{"client only", []Option{WithHTTPClient(shared)}, time.Minute},
		{"timeout after client", []Option{WithHTTPClient(shared), WithTimeout(2 * time.Second)}, 2 * time.Second},
		{"timeout before client", []Option{WithTimeout(2 * time.Second), WithHTTPClient(shared)}, 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(t.TempDir(), tt.opts...)
			require.NoError(t, err)

			assert.Equal(t, tt.expected, d.client.Timeout)
			assert.NotSame(t, shared, d.client)
			assert.Equal(t, time.Minute, shared.Timeout)
		})
	}
}

func TestDownload_IndependentFailures(t *testing.T) {
	var flaky atomic.Int32
	var agents atomic.Value

	mux := http.NewServeMux()
	mux.HandleFunc("/ok.png", func(w http.ResponseWriter, r *http.Request) {
		agents.Store(r.Header.Get("User-Agent"))
		w.Write([]byte("png-bytes"))
	})
	mux.HandleFunc("/missing.jpg", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	mux.HandleFunc("/flaky.jpg", func(w http.ResponseWriter, _ *http.Request) {
		if flaky.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("jpg-bytes"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "images")
	d, err := New(dir, WithAttempts(3), WithRetryDelay(time.Millisecond), WithUserAgent("pptlib-test"))
	require.NoError(t, err)

	urls := []string{
		server.URL + "/ok.png",
		server.URL + "/missing.jpg",
		"://not a url",
		server.URL + "/flaky.jpg",
	}
	report, err := d.Download(context.Background(), urls)
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
	assert.Contains(t, err.Error(), "unexpected HTTP status 404")

	require.Len(t, report.Results, 4)
	assert.Equal(t, 2, report.Succeeded())
	assert.NoError(t, report.Results[0].Err)
	assert.Error(t, report.Results[1].Err)
	assert.Error(t, report.Results[2].Err)
	assert.NoError(t, report.Results[3].Err)
	assert.Equal(t, int32(2), flaky.Load(), "5xx responses are retried")
	assert.Equal(t, "pptlib-test", agents.Load())

	data, err := os.ReadFile(filepath.Join(dir, "slide_01.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "slide_04.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpg-bytes", string(data))

	_, err = os.Stat(filepath.Join(dir, "slide_02.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestDownload_NoURLs(t *testing.T) {
	d, err := New(t.TempDir())
	require.NoError(t, err)

	report, err := d.Download(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
}

func TestDownload_BadTargetDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	d, err := New(filepath.Join(file, "images"))
	require.NoError(t, err)

	_, err = d.Download(context.Background(), []string{"http://127.0.0.1/x.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create target directory")
}
