package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jlaffaye/ftp"

	"github.com/lox/casewatch/internal/httputil"
	"github.com/lox/casewatch/internal/metrics"
	"github.com/lox/casewatch/internal/models"
)

var (
	// ErrSourceUnavailable means the raw table could not be fetched at all.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedSource means the fetched data violates the expected schema.
	ErrMalformedSource = errors.New("malformed source")
)

// Loader fetches region-by-date count matrices from tabular sources. It holds
// no mutable state and is safe for concurrent use; every Load re-fetches.
type Loader struct {
	client       *http.Client
	regionColumn string
}

func NewLoader() *Loader {
	return &Loader{
		client:       httputil.NewClient(),
		regionColumn: DefaultRegionColumn,
	}
}

// NewLoaderWithRegionColumn returns a loader that keys rows on a non-default
// header, for sources that name the region column differently.
func NewLoaderWithRegionColumn(column string) *Loader {
	l := NewLoader()
	l.regionColumn = column
	return l
}

// Load fetches the source locator and parses it into a RawTable. Supported
// schemes are https/http, ftp, and file (dev and tests). Fetch failures
// return ErrSourceUnavailable; schema violations return ErrMalformedSource.
func (l *Loader) Load(ctx context.Context, source string) (*models.RawTable, error) {
	label := sourceLabel(source)
	start := time.Now()

	body, err := l.fetch(ctx, source)
	metrics.SourceFetchLatency.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues(label, "error").Inc()
		return nil, err
	}

	table, err := ParseTable(body, l.regionColumn)
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues(label, "malformed").Inc()
		return nil, err
	}

	metrics.SourceFetchesTotal.WithLabelValues(label, "ok").Inc()
	return table, nil
}

func (l *Loader) fetch(ctx context.Context, source string) ([]byte, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: parse locator %q: %v", ErrSourceUnavailable, source, err)
	}

	switch u.Scheme {
	case "http", "https":
		return l.fetchHTTP(ctx, source)
	case "ftp":
		return l.fetchFTP(u)
	case "file":
		data, err := os.ReadFile(u.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrSourceUnavailable, u.Path, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrSourceUnavailable, u.Scheme)
	}
}

func (l *Loader) fetchHTTP(ctx context.Context, source string) ([]byte, error) {
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}

		resp, err := l.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch table: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("retryable: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch table: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return body, nil
}

func (l *Loader) fetchFTP(u *url.URL) ([]byte, error) {
	host := u.Host
	if u.Port() == "" {
		host += ":21"
	}

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("%w: ftp dial: %v", ErrSourceUnavailable, err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, fmt.Errorf("%w: ftp login: %v", ErrSourceUnavailable, err)
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: ftp retr %s: %v", ErrSourceUnavailable, u.Path, err)
	}
	defer resp.Close()

	body, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: ftp read: %v", ErrSourceUnavailable, err)
	}
	return body, nil
}

// sourceLabel keeps metric cardinality bounded: the last path element of the
// locator, not the full URL.
func sourceLabel(source string) string {
	if u, err := url.Parse(source); err == nil && u.Path != "" {
		return strings.TrimSuffix(path.Base(u.Path), path.Ext(u.Path))
	}
	return "unknown"
}
