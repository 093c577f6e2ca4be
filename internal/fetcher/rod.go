package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	log "github.com/sirupsen/logrus"

	"StoreScraper/internal/plugin"
	"StoreScraper/pkg/config"
)

// RodFetcher fetches JavaScript-heavy pages (NUXT/Vue SPAs, bot-walled
// store finders) through a headless Chromium driven by rod. The browser
// launches lazily on first use and is shared across fetches until Close.
type RodFetcher struct {
	defaults config.FetcherOptions

	mu      sync.Mutex
	browser *rod.Browser
}

// NewRodFetcher builds a browser fetcher with site-level defaults.
func NewRodFetcher(defaults config.FetcherOptions) *RodFetcher {
	return &RodFetcher{defaults: defaults}
}

func init() {
	plugin.RegisterFetcher("RodFetcher", func(defaults config.FetcherOptions) (plugin.Fetcher, error) {
		return NewRodFetcher(defaults), nil
	})
}

func (f *RodFetcher) getBrowser(headless bool) (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browser != nil {
		return f.browser, nil
	}
	controlURL, err := launcher.New().Headless(headless).Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	f.browser = browser
	return browser, nil
}

// Fetch renders the URL in the browser and returns the resulting DOM.
// Retries restart from a fresh page; the browser itself is reused.
func (f *RodFetcher) Fetch(ctx context.Context, url string, opts config.FetcherOptions) (*plugin.Response, error) {
	merged := mergeOptions(f.defaults, opts)

	headless := true
	if merged.Headless != nil {
		headless = *merged.Headless
	}
	timeout := 30 * time.Second
	if merged.TimeoutSeconds > 0 {
		timeout = time.Duration(merged.TimeoutSeconds) * time.Second
	}
	retryDelay := 2 * time.Second
	if merged.RetryDelayMS > 0 {
		retryDelay = time.Duration(merged.RetryDelayMS) * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt <= merged.MaxRetries; attempt++ {
		if attempt > 0 {
			log.WithField("url", url).Warnf("browser fetch retry %d/%d", attempt, merged.MaxRetries)
			time.Sleep(retryDelay)
		}
		body, err := f.renderPage(ctx, url, headless, timeout, merged)
		if err != nil {
			lastErr = err
			continue
		}
		return &plugin.Response{
			Body:        body,
			ContentType: "text/html; charset=utf-8",
			// No real status from the driver; content implies success.
			StatusCode: 200,
		}, nil
	}
	return nil, fmt.Errorf("browser fetch of %s failed: %w", url, lastErr)
}

func (f *RodFetcher) renderPage(ctx context.Context, url string, headless bool, timeout time.Duration, opts config.FetcherOptions) (string, error) {
	browser, err := f.getBrowser(headless)
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return "", fmt.Errorf("opening stealth page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(timeout)

	if opts.UserAgent != "" {
		override := proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}
		if err := override.Call(page); err != nil {
			return "", fmt.Errorf("overriding user agent: %w", err)
		}
	}

	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("navigating to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("waiting for %s to load: %w", url, err)
	}
	if opts.WaitForLoadMS > 0 {
		time.Sleep(time.Duration(opts.WaitForLoadMS) * time.Millisecond)
	}
	if opts.WaitForSelector != "" {
		if _, err := page.Element(opts.WaitForSelector); err != nil {
			log.WithField("url", url).Warnf("selector %q not found: %v", opts.WaitForSelector, err)
		}
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("reading DOM of %s: %w", url, err)
	}
	return html, nil
}

// Close shuts the shared browser down.
func (f *RodFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.browser = nil
	return err
}
