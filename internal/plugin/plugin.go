// Package plugin defines the capability contracts every site plugin
// implements, and the static registry the orchestrator resolves
// configured plugin names against.
package plugin

import (
	"context"

	"StoreScraper/internal/models"
	"StoreScraper/pkg/config"
)

// Response is the result of one successful fetch.
type Response struct {
	Body        string
	ContentType string
	StatusCode  int
}

// Fetcher retrieves content from a URL. Implementations own their retry
// and proxy policy; the caller only sees content or an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts config.FetcherOptions) (*Response, error)
}

// Parser extracts raw records from fetched content. Parsers that crawl
// on their own (detail pages, paginated APIs) drive the extra fetches
// through their injected Fetcher; self-driving parsers are invoked once
// with empty content and ignore it entirely.
type Parser interface {
	Parse(ctx context.Context, content, contentType string, opts config.ParserOptions) ([]models.Record, error)
}

// Transformer normalizes raw parser records into canonical location
// records, stamping source with the site name.
type Transformer interface {
	Transform(ctx context.Context, records []models.Record, opts config.TransformerOptions, site string) ([]models.Record, error)
}

// Storage persists records. Save is called once per entry-URL batch and
// must accumulate or upsert, never overwrite.
type Storage interface {
	Save(ctx context.Context, records []models.Record, opts config.StorageOptions) error
}

// Closer is implemented by plugins holding resources (file handles,
// database connections, browsers) that should be released when a site's
// scrape completes.
type Closer interface {
	Close() error
}
