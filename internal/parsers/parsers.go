// Package parsers holds the per-brand extraction plugins. Each parser
// scrapes one chain's bespoke HTML, JSON API or rendered page structure;
// the selectors and index paths in here track live sites and are
// expected to rot without notice.
package parsers

import "StoreScraper/pkg/config"

// detailFetcherOptions picks the options a parser forwards to its
// injected fetcher for follow-up fetches. The fetcher already carries
// the site's fetcher_options as construction defaults, so an absent
// override leaves those in force.
func detailFetcherOptions(opts config.ParserOptions) config.FetcherOptions {
	if opts.DetailFetcherOptions != nil {
		return *opts.DetailFetcherOptions
	}
	return config.FetcherOptions{Headers: opts.Headers}
}

// fanOutLimit bounds a parser's own concurrent detail fetches.
func fanOutLimit(opts config.ParserOptions, fallback int) int {
	if opts.MaxConcurrentRequests > 0 {
		return opts.MaxConcurrentRequests
	}
	return fallback
}
