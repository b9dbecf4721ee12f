package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultProbeTimeout = 5 * time.Second

// URLValidatorDeps bundles collaborators required to construct the validator.
type URLValidatorDeps struct {
	Client  *http.Client
	Timeout time.Duration
}

type urlValidator struct {
	client  *http.Client
	timeout time.Duration
}

var _ URLValidator = (*urlValidator)(nil)

// NewURLValidator assembles the HEAD-probe gate run before every fetch.
func NewURLValidator(deps URLValidatorDeps) (URLValidator, error) {
	client := deps.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &urlValidator{client: client, timeout: timeout}, nil
}

// Validate probes the source URL. Any malformed URL, network failure,
// non-success status, or timeout yields ErrInvalidURL.
func (v *urlValidator) Validate(ctx context.Context, rawURL string) error {
	if v == nil || v.client == nil {
		return errors.New("url validator not initialised")
	}
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, trimmed)
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, trimmed, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: probe returned status %d", ErrInvalidURL, resp.StatusCode)
	}
	return nil
}
