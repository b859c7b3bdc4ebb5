package render

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/semaphore"
)

// MinContentLength is the visible text length below which a page whose
// scripts outweigh its text is treated as a script shell.
const MinContentLength = 500

// nearEmptyLength is the visible text length below which any page that
// loads scripts is treated as a script shell.
const nearEmptyLength = MinContentLength / 10

// spaMountIDs are element ids that client-side frameworks render into.
var spaMountIDs = map[string]bool{
	"root":      true,
	"app":       true,
	"__next":    true,
	"__nuxt":    true,
	"___gatsby": true,
	"svelte":    true,
}

// AdaptiveRenderer fetches statically and falls back to headless rendering
// for script shells.
type AdaptiveRenderer struct {
	static   Renderer
	headless Renderer

	staticSem   *semaphore.Weighted
	headlessSem *semaphore.Weighted

	forceJS bool
	logger  *slog.Logger

	// OnHeadless, if set, is called after every successful headless render.
	OnHeadless func(url string)
}

type forceJSKey struct{}

// ForceJavaScript returns a context under which an AdaptiveRenderer renders
// every page headless, regardless of WithForceJavaScript.
func ForceJavaScript(ctx context.Context) context.Context {
	return context.WithValue(ctx, forceJSKey{}, true)
}

func javaScriptForced(ctx context.Context) bool {
	forced, _ := ctx.Value(forceJSKey{}).(bool)
	return forced
}

// AdaptiveOption configures an AdaptiveRenderer.
type AdaptiveOption func(*AdaptiveRenderer)

// WithForceJavaScript renders every page headless.
func WithForceJavaScript(force bool) AdaptiveOption {
	return func(r *AdaptiveRenderer) {
		r.forceJS = force
	}
}

// WithConcurrency sets the static and headless concurrency caps.
func WithConcurrency(static, headless int) AdaptiveOption {
	return func(r *AdaptiveRenderer) {
		if static > 0 {
			r.staticSem = semaphore.NewWeighted(int64(static))
		}
		if headless > 0 {
			r.headlessSem = semaphore.NewWeighted(int64(headless))
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) AdaptiveOption {
	return func(r *AdaptiveRenderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewAdaptiveRenderer creates an AdaptiveRenderer. headless may be nil, in
// which case script shells are returned as fetched.
func NewAdaptiveRenderer(static, headless Renderer, opts ...AdaptiveOption) *AdaptiveRenderer {
	r := &AdaptiveRenderer{
		static:      static,
		headless:    headless,
		staticSem:   semaphore.NewWeighted(4),
		headlessSem: semaphore.NewWeighted(1),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render fetches url statically, then re-renders it headless when
// JavaScript is forced or the static document is a script shell. A failed
// headless render keeps the static response.
func (r *AdaptiveRenderer) Render(ctx context.Context, url string) (*Response, error) {
	if err := r.staticSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	resp, err := r.static.Render(ctx, url)
	r.staticSem.Release(1)
	if err != nil {
		return nil, err
	}

	forceJS := r.forceJS || javaScriptForced(ctx)
	if !resp.OK() || !(forceJS || IsScriptShell(resp.HTML)) {
		return resp, nil
	}
	if r.headless == nil {
		if forceJS {
			r.logger.Warn("javascript rendering requested but unavailable", "url", url, "error", ErrNoHeadless)
		}
		return resp, nil
	}

	if err := r.headlessSem.Acquire(ctx, 1); err != nil {
		return resp, nil //nolint:nilerr // keep the static document when cancelled while waiting
	}
	rendered, err := r.headless.Render(ctx, url)
	r.headlessSem.Release(1)
	if err != nil {
		r.logger.Warn("headless render failed, keeping static document", "url", url, "error", err)
		return resp, nil
	}
	if r.OnHeadless != nil {
		r.OnHeadless(url)
	}
	if rendered.Headers == nil {
		rendered.Headers = resp.Headers
	}
	return rendered, nil
}

// IsScriptShell reports whether a document is a client-side app shell. A
// page is a shell when it contains an empty framework mount point, or when
// it loads scripts and either shows almost no text or carries more inline
// script than visible text. A short static page with an analytics tag is
// not a shell.
func IsScriptShell(doc string) bool {
	z := html.NewTokenizer(strings.NewReader(doc))

	var (
		text        strings.Builder
		scripts     int
		scriptChars int
		skipDepth   int
		scriptDepth int
		emptyMount  bool
		lastMount   bool
	)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			visible := len(strings.Join(strings.Fields(text.String()), " "))
			switch {
			case emptyMount && visible < MinContentLength*2:
				return true
			case scripts == 0:
				return false
			case visible < nearEmptyLength:
				return true
			default:
				return visible < MinContentLength && scriptChars > visible
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			a := atom.Lookup(name)
			lastMount = false
			switch a {
			case atom.Script:
				scripts++
				if tt == html.StartTagToken {
					skipDepth++
					scriptDepth++
				}
			case atom.Style, atom.Noscript, atom.Template:
				if tt == html.StartTagToken {
					skipDepth++
				}
			case atom.Div, atom.Main, atom.Body:
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "id" && spaMountIDs[string(val)] {
						lastMount = true
					}
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Script:
				if scriptDepth > 0 {
					scriptDepth--
				}
				fallthrough
			case atom.Style, atom.Noscript, atom.Template:
				if skipDepth > 0 {
					skipDepth--
				}
			case atom.Div, atom.Main:
				if lastMount {
					emptyMount = true
				}
			}
			lastMount = false
		case html.TextToken:
			if scriptDepth > 0 {
				scriptChars += len(strings.TrimSpace(string(z.Text())))
			}
			if skipDepth == 0 {
				t := strings.TrimSpace(string(z.Text()))
				if t != "" {
					lastMount = false
					text.WriteString(t)
					text.WriteByte(' ')
				}
			}
		}
	}
}
