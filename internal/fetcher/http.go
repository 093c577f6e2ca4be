// Package fetcher provides the interchangeable content-retrieval
// plugins: a plain/proxied HTTP client and a headless-browser client.
package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"StoreScraper/internal/plugin"
	"StoreScraper/pkg/config"
)

const scraperAPIEndpoint = "https://api.scraperapi.com"

// HTTPFetcher fetches web content over plain HTTP, optionally routed
// through the ScraperAPI rendering proxy.
type HTTPFetcher struct {
	defaults config.FetcherOptions
}

// NewHTTPFetcher builds an HTTP fetcher with site-level default options
// that per-fetch options are merged over.
func NewHTTPFetcher(defaults config.FetcherOptions) *HTTPFetcher {
	return &HTTPFetcher{defaults: defaults}
}

func init() {
	plugin.RegisterFetcher("HTTPFetcher", func(defaults config.FetcherOptions) (plugin.Fetcher, error) {
		return NewHTTPFetcher(defaults), nil
	})
}

// Fetch retrieves a URL. On any failure (network error, timeout,
// non-2xx status) it returns an error and no content.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, opts config.FetcherOptions) (*plugin.Response, error) {
	merged := mergeOptions(f.defaults, opts)

	timeout := 30 * time.Second
	if merged.TimeoutSeconds > 0 {
		timeout = time.Duration(merged.TimeoutSeconds) * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeaders(merged.Headers).
		SetRetryCount(merged.MaxRetries)
	if merged.UserAgent != "" {
		client.SetHeader("User-Agent", merged.UserAgent)
	}
	if merged.RetryDelayMS > 0 {
		client.SetRetryWaitTime(time.Duration(merged.RetryDelayMS) * time.Millisecond)
	}

	request := client.R().SetContext(ctx)
	target := url

	if merged.UseScraperAPI {
		if merged.ScraperAPIKey == "" {
			return nil, fmt.Errorf("scraperapi enabled but scraperapi_key is missing")
		}
		params := map[string]string{
			"api_key": merged.ScraperAPIKey,
			"url":     url,
		}
		for k, v := range merged.ScraperAPIOptions {
			params[k] = v
		}
		request.SetQueryParams(params)
		target = scraperAPIEndpoint
		log.WithField("url", url).Debug("routing fetch through ScraperAPI")
	} else {
		log.WithField("url", url).Debug("fetching URL directly")
	}

	resp, err := request.Get(target)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode())
	}

	return &plugin.Response{
		Body:        string(resp.Body()),
		ContentType: strings.ToLower(resp.Header().Get("Content-Type")),
		StatusCode:  resp.StatusCode(),
	}, nil
}

// mergeOptions layers per-fetch options over the fetcher's construction
// defaults. Header maps merge key-wise, per-fetch keys winning.
func mergeOptions(defaults, opts config.FetcherOptions) config.FetcherOptions {
	merged := defaults

	headers := map[string]string{}
	for k, v := range defaults.Headers {
		headers[k] = v
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}
	merged.Headers = headers

	if opts.TimeoutSeconds > 0 {
		merged.TimeoutSeconds = opts.TimeoutSeconds
	}
	if opts.MaxRetries > 0 {
		merged.MaxRetries = opts.MaxRetries
	}
	if opts.RetryDelayMS > 0 {
		merged.RetryDelayMS = opts.RetryDelayMS
	}
	if opts.UseScraperAPI {
		merged.UseScraperAPI = true
	}
	if opts.ScraperAPIKey != "" {
		merged.ScraperAPIKey = opts.ScraperAPIKey
	}
	if len(opts.ScraperAPIOptions) > 0 {
		merged.ScraperAPIOptions = opts.ScraperAPIOptions
	}
	if opts.Headless != nil {
		merged.Headless = opts.Headless
	}
	if opts.UserAgent != "" {
		merged.UserAgent = opts.UserAgent
	}
	if opts.WaitForSelector != "" {
		merged.WaitForSelector = opts.WaitForSelector
	}
	if opts.WaitForLoadMS > 0 {
		merged.WaitForLoadMS = opts.WaitForLoadMS
	}
	return merged
}
