// Package sheet fetches the spreadsheet CSV export and normalizes its rows.
package sheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	appLog "afisha/internal/log"
)

// Fetcher downloads the published CSV export of the events spreadsheet.
// A failed fetch is fatal for the run: without source data there is no safe
// partial action.
type Fetcher struct {
	url        string
	maxRetries int
	client     *http.Client
}

func NewFetcher(url string, timeout time.Duration, maxRetries int) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Fetcher{
		url:        url,
		maxRetries: maxRetries,
		client:     &http.Client{Timeout: timeout, Transport: tr},
	}
}

// Fetch downloads and parses the CSV export, retrying transient failures
// with exponential backoff. It returns the raw records including the header
// row; NormalizeRows decides what to keep.
func (f *Fetcher) Fetch(ctx context.Context) ([][]string, error) {
	var body []byte
	err := retry(ctx, f.maxRetries, 500*time.Millisecond, 5*time.Second, func() error {
		b, err := f.fetchOnce(ctx)
		if err != nil {
			appLog.Warn("sheet fetch attempt failed", "url", f.url, "err", err)
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}

	// Google prepends a UTF-8 BOM to CSV exports.
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1 // rows have trailing blanks trimmed by the export
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse sheet csv: %w", err)
	}

	appLog.Info("sheet fetched", "rows", len(records))
	return records, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "afisha-sync")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		head, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sheet export http %d: %s", resp.StatusCode, strings.TrimSpace(string(head)))
	}
	return io.ReadAll(resp.Body)
}

// retry runs fn up to attempts times with doubling backoff capped at max.
func retry(ctx context.Context, attempts int, initial, max time.Duration, fn func() error) error {
	d := initial
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
			if d < max {
				d *= 2
				if d > max {
					d = max
				}
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
