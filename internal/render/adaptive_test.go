package render

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const contentPage = `<html><head><title>Plumbing</title></head><body><main>` +
	`<h1>Emergency plumbing in Austin</h1><p>` + "We fix leaks, drains and water heaters. " +
	`</p></main></body></html>`

func longContentPage() string {
	return `<html><body><main><p>` + strings.Repeat("Useful content about our services. ", 40) +
		`</p><script src="/app.js"></script></main></body></html>`
}

const analyticsPage = `<html><head><title>Plumbing</title>` +
	`<script async src="https://www.googletagmanager.com/gtag/js?id=G-TEST"></script>` +
	`<script>window.dataLayer = window.dataLayer || []; function gtag(){dataLayer.push(arguments);}` +
	`gtag('js', new Date()); gtag('config', 'G-TEST');</script></head><body><main>` +
	`<h1>Emergency plumbing in Austin</h1><p>` + "We fix leaks, drains and water heaters the same day. " +
	"Call us for burst pipes, blocked drains and new installs. Licensed and insured since 1998. " +
	"Free estimates for every job in the Austin area. " + `</p></main></body></html>`

const shellPage = `<html><head><script src="/bundle.js"></script></head>` +
	`<body><div id="root"></div></body></html>`

func staticReturning(doc string, status int) Renderer {
	return RendererFunc(func(_ context.Context, url string) (*Response, error) {
		return &Response{URL: url, FinalURL: url, StatusCode: status, HTML: doc, Headers: http.Header{"X-Static": {"1"}}}, nil
	})
}

// TestIsScriptShell tests script shell detection.
func TestIsScriptShell(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		doc      string
		expected bool
	}{
		{"empty react mount", shellPage, true},
		{"next.js mount without scripts", `<html><body><div id="__next"></div></body></html>`, true},
		{"scripts with little text", `<html><body><p>Loading...</p><script>boot()</script></body></html>`, true},
		{"long content with scripts", longContentPage(), false},
		{"short static page without scripts", contentPage, false},
		{"filled mount point", `<div id="root"><h1>` + strings.Repeat("text ", 300) + `</h1></div>`, false},
		{"short static page with an analytics tag", analyticsPage, false},
		{"inline bootstrap outweighs text", `<html><body><p>` + strings.Repeat("Welcome. ", 10) + `</p><script>` +
			strings.Repeat("window.__STATE__.push({k:1});", 20) + `</script></body></html>`, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsScriptShell(tc.doc); got != tc.expected {
				t.Errorf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

// TestAdaptiveRenderer tests the static-first headless fallback.
func TestAdaptiveRenderer(t *testing.T) {
	t.Parallel()

	headlessOK := func(calls *atomic.Int32) Renderer {
		return RendererFunc(func(_ context.Context, url string) (*Response, error) {
			calls.Add(1)
			return &Response{URL: url, StatusCode: 200, HTML: contentPage, Rendered: true}, nil
		})
	}

	t.Run("content page stays static", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		r := NewAdaptiveRenderer(staticReturning(contentPage, 200), headlessOK(&calls))
		resp, err := r.Render(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Rendered || calls.Load() != 0 {
			t.Error("expected no headless render")
		}
	})

	t.Run("script shell is re-rendered", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		var notified atomic.Int32
		r := NewAdaptiveRenderer(staticReturning(shellPage, 200), headlessOK(&calls))
		r.OnHeadless = func(string) { notified.Add(1) }

		resp, err := r.Render(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !resp.Rendered {
			t.Error("expected headless response")
		}
		if resp.Headers.Get("X-Static") != "1" {
			t.Error("expected static headers to be kept when headless has none")
		}
		if notified.Load() != 1 {
			t.Errorf("expected 1 notification, got %d", notified.Load())
		}
	})

	t.Run("forced javascript renders content pages", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		r := NewAdaptiveRenderer(staticReturning(contentPage, 200), headlessOK(&calls), WithForceJavaScript(true))
		if _, err := r.Render(context.Background(), "https://example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 headless call, got %d", calls.Load())
		}
	})

	t.Run("javascript forced through the context", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		r := NewAdaptiveRenderer(staticReturning(contentPage, 200), headlessOK(&calls))
		resp, err := r.Render(ForceJavaScript(context.Background()), "https://example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !resp.Rendered || calls.Load() != 1 {
			t.Errorf("expected 1 headless render, got %d", calls.Load())
		}
	})

	t.Run("error statuses are not re-rendered", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		r := NewAdaptiveRenderer(staticReturning(shellPage, 500), headlessOK(&calls))
		resp, err := r.Render(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != 500 || calls.Load() != 0 {
			t.Error("expected static 500 without headless render")
		}
	})

	t.Run("headless failure keeps static document", func(t *testing.T) {
		t.Parallel()
		failing := RendererFunc(func(context.Context, string) (*Response, error) {
			return nil, errors.New("chrome not found")
		})
		r := NewAdaptiveRenderer(staticReturning(shellPage, 200), failing)
		resp, err := r.Render(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Rendered || resp.HTML != shellPage {
			t.Error("expected static document")
		}
	})

	t.Run("missing headless renderer keeps static document", func(t *testing.T) {
		t.Parallel()
		r := NewAdaptiveRenderer(staticReturning(shellPage, 200), nil, WithForceJavaScript(true))
		resp, err := r.Render(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Rendered {
			t.Error("expected static document")
		}
	})

	t.Run("static errors propagate", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		static := RendererFunc(func(context.Context, string) (*Response, error) { return nil, boom })
		r := NewAdaptiveRenderer(static, nil)
		if _, err := r.Render(context.Background(), "https://example.com"); !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	})
}

// TestAdaptiveRenderer_HeadlessCap tests that headless renders respect
// their own, smaller concurrency cap.
func TestAdaptiveRenderer_HeadlessCap(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	headless := RendererFunc(func(_ context.Context, url string) (*Response, error) {
		mu.Lock()
		current++
		if current > peak {
			peak = current
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		current--
		mu.Unlock()
		return &Response{URL: url, StatusCode: 200, HTML: contentPage, Rendered: true}, nil
	})

	r := NewAdaptiveRenderer(staticReturning(shellPage, 200), headless, WithConcurrency(8, 2))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Render(context.Background(), "https://example.com")
		}()
	}
	wg.Wait()

	if peak > 2 {
		t.Errorf("expected at most 2 concurrent headless renders, got %d", peak)
	}
}
