package render

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/nao1215/siteaudit/internal/model"
)

// DefaultSettleDelay is how long the headless renderer waits after the body
// is ready so that client-side frameworks can finish rendering.
const DefaultSettleDelay = 1500 * time.Millisecond

// HeadlessRenderer renders pages in headless Chrome.
// One browser process is shared; every Render opens its own tab.
type HeadlessRenderer struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	browserCtx  context.Context
	cancelTab   context.CancelFunc

	startOnce sync.Once
	startErr  error

	settle    time.Duration
	userAgent string
	headers   map[string]string
	cookie    string
}

// HeadlessOption configures a HeadlessRenderer.
type HeadlessOption func(*headlessConfig)

type headlessConfig struct {
	settle     time.Duration
	userAgent  string
	headers    map[string]string
	cookie     string
	execPath   string
	profileDir string
}

// WithSettleDelay sets the post-load wait.
func WithSettleDelay(d time.Duration) HeadlessOption {
	return func(c *headlessConfig) {
		if d >= 0 {
			c.settle = d
		}
	}
}

// WithHeadlessUserAgent sets the browser User-Agent.
func WithHeadlessUserAgent(ua string) HeadlessOption {
	return func(c *headlessConfig) {
		c.userAgent = ua
	}
}

// WithHeadlessHeaders adds extra request headers to every navigation.
func WithHeadlessHeaders(headers map[string]string, cookie string) HeadlessOption {
	return func(c *headlessConfig) {
		c.headers = headers
		c.cookie = cookie
	}
}

// WithExecPath sets the Chrome binary. Empty lets chromedp find it.
func WithExecPath(path string) HeadlessOption {
	return func(c *headlessConfig) {
		c.execPath = path
	}
}

// WithProfileDir sets the browser user data directory.
func WithProfileDir(dir string) HeadlessOption {
	return func(c *headlessConfig) {
		c.profileDir = dir
	}
}

// NewHeadlessRenderer sets up the browser allocator. The browser process
// is launched by the first Render and lives until Close or until ctx is
// done.
func NewHeadlessRenderer(ctx context.Context, opts ...HeadlessOption) *HeadlessRenderer {
	cfg := &headlessConfig{settle: DefaultSettleDelay, userAgent: DefaultUserAgent}
	for _, opt := range opts {
		opt(cfg)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.userAgent),
	)
	if cfg.execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(cfg.execPath))
	}
	if cfg.profileDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(cfg.profileDir))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelTab := chromedp.NewContext(allocCtx)

	return &HeadlessRenderer{
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		browserCtx:  browserCtx,
		cancelTab:   cancelTab,
		settle:      cfg.settle,
		userAgent:   cfg.userAgent,
		headers:     cfg.headers,
		cookie:      cfg.cookie,
	}
}

// Render loads url in a new tab and returns the DOM after scripts ran.
func (r *HeadlessRenderer) Render(ctx context.Context, url string) (*Response, error) {
	start := time.Now()

	if err := r.launch(); err != nil {
		return nil, &model.FetchError{URL: url, Op: "render", Err: fmt.Errorf("failed to launch browser: %w", err)}
	}

	tabCtx, cancel := chromedp.NewContext(r.browserCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		tabCtx, cancelDeadline = context.WithDeadline(tabCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var (
		mu      sync.Mutex
		status  int
		headers http.Header
	)
	chromedp.ListenTarget(tabCtx, func(ev any) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Type != network.ResourceTypeDocument {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		// Redirects produce several document responses; the last wins.
		status = int(e.Response.Status)
		headers = toHeader(e.Response.Headers)
	})

	var html, location string
	actions := []chromedp.Action{network.Enable()}
	if extra := r.extraHeaders(); len(extra) > 0 {
		actions = append(actions, network.SetExtraHTTPHeaders(extra))
	}
	actions = append(actions,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.settle),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return nil, &model.FetchError{URL: url, Op: "render", Err: classify(err)}
	}
	if strings.TrimSpace(html) == "" {
		return nil, &model.FetchError{URL: url, Op: "render", Err: ErrEmptyDocument}
	}

	mu.Lock()
	defer mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	if location == "" {
		location = url
	}
	return &Response{
		URL:        url,
		FinalURL:   location,
		StatusCode: status,
		Headers:    headers,
		HTML:       html,
		Duration:   time.Since(start),
		Rendered:   true,
	}, nil
}

// launch starts the shared browser once. Tabs created from browserCtx
// before it runs would each spawn a browser of their own. A failed launch
// is not retried.
func (r *HeadlessRenderer) launch() error {
	r.startOnce.Do(func() {
		r.startErr = chromedp.Run(r.browserCtx)
	})
	return r.startErr
}

// Close shuts the browser down.
func (r *HeadlessRenderer) Close() {
	r.cancelTab()
	r.cancelAlloc()
}

func (r *HeadlessRenderer) extraHeaders() network.Headers {
	out := network.Headers{}
	for k, v := range r.headers {
		out[k] = v
	}
	if r.cookie != "" {
		out["Cookie"] = r.cookie
	}
	return out
}

func toHeader(h network.Headers) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		out.Set(k, fmt.Sprint(v))
	}
	return out
}
