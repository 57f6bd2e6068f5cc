// Package download fetches reference images for template authoring into a
// local directory. Each URL is handled on its own: a failing URL is logged
// and reported but never stops the remaining downloads.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jongik-sv/pptlib/pkg/logger"
)

const (
	// DefaultTimeout bounds each individual HTTP request.
	DefaultTimeout = 10 * time.Second
	// DefaultAttempts is the number of tries per URL.
	DefaultAttempts = 2
	// DefaultUserAgent mimics a desktop browser; several image hosts reject
	// requests without one.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Downloader saves images into a target directory.
type Downloader struct {
	dir        string
	client     *http.Client
	timeout    time.Duration
	attempts   uint
	retryDelay time.Duration
	userAgent  string
}

// Option configures a Downloader.
type Option func(*Downloader) error

// WithHTTPClient sets the HTTP client. The downloader works on a copy, so the
// caller's client is never modified; its Timeout is kept unless WithTimeout is
// also given.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) error {
		if client == nil {
			return errors.New("http client must not be nil")
		}
		d.client = client
		return nil
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) error {
		if timeout <= 0 {
			return errors.Errorf("timeout must be positive, got %s", timeout)
		}
		d.timeout = timeout
		return nil
	}
}

// WithAttempts sets how many times each URL is tried.
func WithAttempts(attempts uint) Option {
	return func(d *Downloader) error {
		if attempts == 0 {
			return errors.New("attempts must be at least 1")
		}
		d.attempts = attempts
		return nil
	}
}

// WithRetryDelay sets the base delay between attempts.
func WithRetryDelay(delay time.Duration) Option {
	return func(d *Downloader) error {
		d.retryDelay = delay
		return nil
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(userAgent string) Option {
	return func(d *Downloader) error {
		d.userAgent = userAgent
		return nil
	}
}

// New creates a downloader writing into dir.
func New(dir string, opts ...Option) (*Downloader, error) {
	if dir == "" {
		return nil, errors.New("target directory is required")
	}

	d := &Downloader{
		dir:        dir,
		client:     &http.Client{Timeout: DefaultTimeout},
		attempts:   DefaultAttempts,
		retryDelay: 500 * time.Millisecond,
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, errors.Wrap(err, "failed to apply downloader option")
		}
	}

	client := *d.client
	if d.timeout > 0 {
		client.Timeout = d.timeout
	}
	d.client = &client
	return d, nil
}

// Result describes the outcome for one URL.
type Result struct {
	URL  string
	Path string
	Err  error
}

// Report collects the results of a Download call in input order.
type Report struct {
	Results []Result
}

// Succeeded returns the number of URLs saved successfully.
func (r Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// FileName returns the name used for the index-th URL (0-based):
// slide_01.png, slide_02.jpg, ... PNG is chosen when the URL mentions ".png",
// JPEG otherwise.
func FileName(index int, url string) string {
	ext := ".jpg"
	if strings.Contains(strings.ToLower(url), ".png") {
		ext = ".png"
	}
	return fmt.Sprintf("slide_%02d%s", index+1, ext)
}

// Download fetches every URL into the target directory. The returned error
// aggregates all per-URL failures; the report is complete either way. Only a
// failure to create the target directory aborts the whole run.
func (d *Downloader) Download(ctx context.Context, urls []string) (Report, error) {
	report := Report{Results: make([]Result, 0, len(urls))}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return report, errors.Wrapf(err, "failed to create target directory %s", d.dir)
	}

	logger.G(ctx).WithField("count", len(urls)).WithField("dir", d.dir).Info("starting image download")

	var result *multierror.Error
	for i, url := range urls {
		path := filepath.Join(d.dir, FileName(i, url))
		log := logger.G(ctx).WithField("url", url).WithField("path", path)

		err := d.fetchWithRetry(ctx, url, path)
		if err != nil {
			log.WithError(err).Warn("failed to download image")
			result = multierror.Append(result, errors.Wrapf(err, "failed to download %s", url))
		} else {
			log.Info("saved image")
		}
		report.Results = append(report.Results, Result{URL: url, Path: path, Err: err})
	}

	return report, result.ErrorOrNil()
}

func (d *Downloader) fetchWithRetry(ctx context.Context, url, path string) error {
	return retry.Do(
		func() error {
			return d.fetch(ctx, url, path)
		},
		retry.Attempts(d.attempts),
		retry.Delay(d.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("url", url).WithField("attempt", n+1).Debug("retrying image download")
		}),
	)
}

func (d *Downloader) fetch(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retry.Unrecoverable(errors.Wrap(err, "invalid request"))
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := errors.Errorf("unexpected HTTP status %d", resp.StatusCode)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return retry.Unrecoverable(err)
		}
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return retry.Unrecoverable(errors.Wrapf(err, "failed to create %s", path))
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return errors.Wrap(err, "failed to write image")
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return errors.Wrap(err, "failed to write image")
	}
	return nil
}
