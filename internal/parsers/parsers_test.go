package parsers

import (
	"context"
	"fmt"
	"sync"

	"StoreScraper/internal/plugin"
	"StoreScraper/pkg/config"
)

// pageFetcher serves canned bodies by URL and records what was asked
// for.
type pageFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	fetched []string
}

func newPageFetcher(pages map[string]string) *pageFetcher {
	return &pageFetcher{pages: pages}
}

func (f *pageFetcher) Fetch(ctx context.Context, url string, opts config.FetcherOptions) (*plugin.Response, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()

	body, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("no canned page for %s", url)
	}
	return &plugin.Response{Body: body, ContentType: "text/html", StatusCode: 200}, nil
}

func (f *pageFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}
