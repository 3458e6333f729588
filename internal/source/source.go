// Package source opens streaming reads of the remote AQICN telemetry text.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qiotlabs/aqimport/internal/contract"
	"github.com/qiotlabs/aqimport/schema"
)

var (
	// ErrInvalidURL is returned when the source URL cannot be built.
	// No network I/O has been attempted when it is returned.
	ErrInvalidURL = errors.New("invalid source url")

	// ErrUnreachable is returned when the remote source cannot be contacted
	// or refuses to serve the requested period.
	ErrUnreachable = errors.New("source unreachable")
)

// StatusError is returned by Open when the remote answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("source responded with status %d: %s", e.StatusCode, e.Status)
}

// Is makes a StatusError match ErrUnreachable.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnreachable
}

// BuildURL composes the location of one period's telemetry as
// {base}/{token}/{period}. The base must be an absolute http(s) URL.
func BuildURL(base, token string, period schema.Period) (string, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidURL, base)
	}
	if u.RawQuery != "" || u.ForceQuery {
		return "", fmt.Errorf("%w: query not allowed in %q", ErrInvalidURL, base)
	}
	if u.Fragment != "" || strings.Contains(base, "#") {
		return "", fmt.Errorf("%w: fragment not allowed in %q", ErrInvalidURL, base)
	}
	if token == "" {
		return "", fmt.Errorf("%w: empty token", ErrInvalidURL)
	}
	if err := schema.ValidatePeriod(period); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	return base + "/" + url.PathEscape(token) + "/" + url.PathEscape(string(period)), nil
}

// HTTPSource fetches telemetry over HTTP.
type HTTPSource struct {
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

var _ contract.Source = &HTTPSource{} // Compile-time check

// Option configures an HTTPSource.
type Option func(*HTTPSource)

// NewHTTPSource creates a source with the default timeout.
func NewHTTPSource(opts ...Option) *HTTPSource {
	s := &HTTPSource{
		httpClient: &http.Client{
			Timeout: contract.DefaultTimeout,
		},
		userAgent: "aqimport",
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithTimeout sets the timeout of the whole exchange, body included.
func WithTimeout(d time.Duration) Option {
	return func(s *HTTPSource) {
		s.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *HTTPSource) {
		s.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *HTTPSource) {
		s.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *HTTPSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open issues a GET for rawURL and returns the response body unread.
func (s *HTTPSource) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	s.logger.Debug("source responded",
		"status", resp.StatusCode,
		"content_length", resp.ContentLength,
		"content_type", resp.Header.Get("Content-Type"),
	)
	return resp.Body, nil
}
