package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nao1215/siteaudit/internal/model"
)

// Defaults for the static renderer.
const (
	DefaultUserAgent   = "SiteAudit/1.0"
	DefaultMaxBodySize = 5 * 1024 * 1024
)

// StaticRenderer fetches pages with a plain HTTP GET.
type StaticRenderer struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	headers     map[string]string
	cookie      string
}

// StaticOption configures a StaticRenderer.
type StaticOption func(*StaticRenderer)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) StaticOption {
	return func(r *StaticRenderer) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// WithMaxBodySize limits the number of body bytes read.
func WithMaxBodySize(size int64) StaticOption {
	return func(r *StaticRenderer) {
		if size > 0 {
			r.maxBodySize = size
		}
	}
}

// WithHeaders adds custom request headers.
func WithHeaders(headers map[string]string) StaticOption {
	return func(r *StaticRenderer) {
		r.headers = headers
	}
}

// WithCookie sets the Cookie header.
func WithCookie(cookie string) StaticOption {
	return func(r *StaticRenderer) {
		r.cookie = cookie
	}
}

// NewStaticRenderer creates a StaticRenderer. A nil client uses a client
// with a 30 second timeout.
func NewStaticRenderer(client *http.Client, opts ...StaticOption) *StaticRenderer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	r := &StaticRenderer{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render fetches url. Any HTTP response, including error statuses, is
// returned as a Response; only transport failures return a
// *model.FetchError.
func (r *StaticRenderer) Render(ctx context.Context, url string) (*Response, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &model.FetchError{URL: url, Op: "request", Err: err}
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if r.cookie != "" {
		req.Header.Set("Cookie", r.cookie)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &model.FetchError{URL: url, Op: "request", Err: classify(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBodySize))
	if err != nil {
		return nil, &model.FetchError{URL: url, Op: "read", Err: classify(err)}
	}

	return &Response{
		URL:        url,
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		HTML:       string(body),
		Duration:   time.Since(start),
	}, nil
}

// classify wraps context deadline errors with ErrTimeout so callers can
// tell timeouts from other network failures.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
