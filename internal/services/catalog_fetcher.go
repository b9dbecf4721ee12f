package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultFetchTimeout = 5 * time.Second
	// maxCatalogBytes bounds the downloaded document size.
	maxCatalogBytes = 32 << 20
)

// CatalogFetcherDeps bundles collaborators required to construct the fetcher.
type CatalogFetcherDeps struct {
	Client  *http.Client
	Timeout time.Duration
}

type catalogFetcher struct {
	client  *http.Client
	timeout time.Duration
}

var _ CatalogFetcher = (*catalogFetcher)(nil)

// NewCatalogFetcher assembles the bounded-timeout document download stage.
func NewCatalogFetcher(deps CatalogFetcherDeps) (CatalogFetcher, error) {
	client := deps.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &catalogFetcher{client: client, timeout: timeout}, nil
}

// Fetch downloads the catalog document. Non-2xx statuses and transport
// failures surface as *FetchError so the controller can classify retries.
func (f *catalogFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if f == nil || f.client == nil {
		return nil, errors.New("catalog fetcher not initialised")
	}
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, fmt.Errorf("catalog fetcher: %w", ErrImportURLRequired)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trimmed, nil)
	if err != nil {
		return nil, &FetchError{URL: trimmed, Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: trimmed, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &FetchError{URL: trimmed, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, &FetchError{URL: trimmed, Err: err}
	}
	return data, nil
}
