package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/nao1215/darklight/internal/model"
)

// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
var ErrInvalidURL = errors.New("url must be an absolute http or https url")

// Engine captures a page.
type Engine interface {
	Fetch(ctx context.Context, rawURL string) (*model.PageCapture, error)
}

// Options configures Chrome.
type Options struct {
	// ProxyURL is passed to Chrome's --proxy-server, e.g. "socks5://127.0.0.1:9050".
	ProxyURL string
	// ExecPath overrides the Chrome executable.
	ExecPath string
	// UserAgent replaces Chrome's default user agent when set.
	UserAgent string
	// Timeout bounds one Fetch, including the screenshot.
	Timeout time.Duration
	// ScreenshotQuality is the JPEG quality (1-100).
	ScreenshotQuality int
}

// Chrome is an Engine driving a headless Chrome process.
// The process is started on the first Fetch and shared by later ones;
// every Fetch uses its own tab.
type Chrome struct {
	opts   Options
	logger *slog.Logger

	once        sync.Once
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// Option configures Chrome.
type Option func(*Chrome)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chrome) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChrome returns a Chrome engine. No process is started until Fetch.
func NewChrome(opts Options, options ...Option) *Chrome {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.ScreenshotQuality < 1 || opts.ScreenshotQuality > 100 {
		opts.ScreenshotQuality = 80
	}
	c := &Chrome{opts: opts, logger: slog.Default()}
	for _, o := range options {
		o(c)
	}
	return c
}

// allocatorOptions returns the Chrome flags for c.
func (c *Chrome) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if c.opts.ProxyURL != "" {
		opts = append(opts,
			chromedp.ProxyServer(c.opts.ProxyURL),
			// Resolve every host through the proxy; Tor must see .onion names.
			chromedp.Flag("host-resolver-rules", "MAP * ~NOTFOUND , EXCLUDE 127.0.0.1"),
		)
	}
	if c.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.opts.UserAgent))
	}
	if c.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.opts.ExecPath))
	}
	return opts
}

func (c *Chrome) allocator() context.Context {
	c.once.Do(func() {
		c.allocCtx, c.allocCancel = chromedp.NewExecAllocator(context.Background(), c.allocatorOptions()...)
	})
	return c.allocCtx
}

// Fetch navigates to rawURL and captures the rendered page.
func (c *Chrome) Fetch(ctx context.Context, rawURL string) (*model.PageCapture, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(c.allocator(), chromedp.WithLogf(func(format string, args ...any) {
		c.logger.Debug(fmt.Sprintf(format, args...))
	}))
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, c.opts.Timeout)
	defer cancelTimeout()

	// Cancelling the caller's context closes the tab.
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var mu sync.Mutex
	var headers map[string]string
	chromedp.ListenTarget(tabCtx, func(ev any) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Type != network.ResourceTypeDocument || e.Response == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if headers == nil {
			headers = flattenHeaders(e.Response.Headers)
		}
	})

	var title, source string
	var screenshot []byte
	start := time.Now()
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(rawURL),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &source, chromedp.ByQuery),
		chromedp.FullScreenshot(&screenshot, c.opts.ScreenshotQuality),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, ctx.Err())
		}
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	mu.Lock()
	if headers == nil {
		headers = make(map[string]string)
	}
	mu.Unlock()

	tree, err := BuildTree(source)
	if err != nil {
		c.logger.Warn("failed to build dom tree", "url", rawURL, "error", err)
	}

	c.logger.Debug("page captured",
		"url", rawURL,
		"title", title,
		"bytes", len(source),
		"elapsed", time.Since(start),
	)

	return &model.PageCapture{
		URL:        rawURL,
		Domain:     model.DomainFromURL(rawURL),
		Title:      title,
		Source:     source,
		Screenshot: screenshot,
		Language:   DetectLanguage(source, headers),
		Headers:    headers,
		Tree:       tree,
	}, nil
}

// Close stops the Chrome process if one was started.
func (c *Chrome) Close() error {
	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return nil
}

// flattenHeaders converts CDP headers to strings. Chrome joins repeated
// headers with newlines.
func flattenHeaders(h network.Headers) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = fmt.Sprint(v)
	}
	return out
}
