package render

import (
	"context"
	"net/http"
	"time"
)

// Renderer fetches one URL.
type Renderer interface {
	Render(ctx context.Context, url string) (*Response, error)
}

// Response is the result of fetching one URL.
type Response struct {
	// URL is the requested URL.
	URL string
	// FinalURL is the URL after redirects.
	FinalURL string
	// StatusCode is the HTTP status of the final response.
	StatusCode int
	// Headers are the response headers of the final response.
	Headers http.Header
	// HTML is the response body or rendered DOM.
	HTML string
	// Duration is the time the fetch took.
	Duration time.Duration
	// Rendered is true when HTML is a headless-rendered DOM.
	Rendered bool
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, url string) (*Response, error)

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, url string) (*Response, error) {
	return f(ctx, url)
}
