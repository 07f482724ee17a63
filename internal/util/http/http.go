// Package http provides HTTP utilities for fetching release archives.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ivadomed/anima-bin/internal/security"
	"github.com/ivadomed/anima-bin/internal/version"
)

const (
	// UserAgentName is the application name used in the User-Agent header.
	UserAgentName = "anima-wheel"

	// DefaultTimeout is the default HTTP request timeout. Release archives
	// hold every ANIMA binary and run to hundreds of megabytes.
	DefaultTimeout = 10 * time.Minute

	// DefaultMaxSize caps the downloaded body.
	DefaultMaxSize = 2 * 1024 * 1024 * 1024
)

// FetchOptions configures HTTP fetch behavior.
type FetchOptions struct {
	// Timeout specifies the HTTP request timeout.
	// If zero, DefaultTimeout is used.
	Timeout time.Duration

	// MaxSize caps the response body. If zero, DefaultMaxSize is used.
	MaxSize int64

	// Headers specifies additional HTTP headers to send with the request.
	Headers map[string]string

	// Client overrides the HTTP client (useful for testing).
	Client *http.Client
}

// Fetch retrieves content from a URL with context and timeout support.
// It automatically sets the User-Agent header and handles common HTTP errors.
func Fetch(ctx context.Context, url string, opts FetchOptions) ([]byte, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	maxSize := opts.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	userAgent := fmt.Sprintf("%s/%s", UserAgentName, version.Version)
	req.Header.Set("User-Agent", userAgent)

	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(security.NewLimitedReader(resp.Body, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("response body exceeds %d bytes", maxSize)
	}

	return data, nil
}
