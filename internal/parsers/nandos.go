package parsers

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"StoreScraper/internal/models"
	"StoreScraper/internal/plugin"
	"StoreScraper/pkg/config"
	"StoreScraper/utils"
)

const (
	nandosBaseURL    = "https://www.nandos.com.au"
	nandosSitemapURL = "https://www.nandos.com.au/sitemap.xml"
)

// sitemapURLSet is the subset of the sitemap schema we care about.
type sitemapURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// NandosParser discovers restaurant pages through sitemap.xml, then
// pulls each page's JSON-LD Restaurant block. Detail fetches run under
// an internal semaphore and in paced batches so one sitemap with
// hundreds of entries doesn't turn into hundreds of simultaneous
// requests.
type NandosParser struct {
	fetcher plugin.Fetcher
}

// NewNandosParser builds the parser around the injected fetcher.
func NewNandosParser(f plugin.Fetcher) *NandosParser {
	return &NandosParser{fetcher: f}
}

func init() {
	plugin.RegisterParser("NandosParser", plugin.ParserEntry{
		NewWithFetcher: func(f plugin.Fetcher) plugin.Parser { return NewNandosParser(f) },
	})
}

// Parse fetches the sitemap and fans out over the restaurant URLs.
func (p *NandosParser) Parse(ctx context.Context, content, contentType string, opts config.ParserOptions) ([]models.Record, error) {
	fetchOpts := detailFetcherOptions(opts)

	urls, err := p.restaurantURLsFromSitemap(ctx, fetchOpts)
	if err != nil {
		return nil, err
	}
	log.Infof("NandosParser found %d restaurant URLs in sitemap", len(urls))
	if len(urls) == 0 {
		return nil, nil
	}

	maxConcurrent := fanOutLimit(opts, 10)
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	sem := make(chan struct{}, maxConcurrent)
	var records []models.Record

	for start := 0; start < len(urls); start += batchSize {
		end := start + batchSize
		if end > len(urls) {
			end = len(urls)
		}
		batch := urls[start:end]
		log.Debugf("NandosParser processing batch of %d restaurants", len(batch))

		results := make([]models.Record, len(batch))
		var wg sync.WaitGroup
		for i, u := range batch {
			wg.Add(1)
			go func(idx int, pageURL string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				results[idx] = p.parseRestaurantPage(ctx, pageURL, fetchOpts)
			}(i, u)
		}
		wg.Wait()

		for _, r := range results {
			if r != nil {
				records = append(records, r)
			}
		}
		// Brief pause between batches keeps the fan-out polite.
		if end < len(urls) {
			time.Sleep(time.Second)
		}
	}

	log.Infof("NandosParser finished, returning %d items", len(records))
	return records, nil
}

func (p *NandosParser) restaurantURLsFromSitemap(ctx context.Context, fetchOpts config.FetcherOptions) ([]string, error) {
	resp, err := p.fetcher.Fetch(ctx, nandosSitemapURL, fetchOpts)
	if err != nil {
		return nil, fmt.Errorf("fetching sitemap: %w", err)
	}

	var urlSet sitemapURLSet
	if err := xml.Unmarshal([]byte(resp.Body), &urlSet); err != nil {
		return nil, fmt.Errorf("parsing sitemap XML: %w", err)
	}

	var urls []string
	for _, entry := range urlSet.URLs {
		if isNandosRestaurantURL(entry.Loc) {
			urls = append(urls, entry.Loc)
		}
	}
	return utils.UniqueStrings(urls), nil
}

// isNandosRestaurantURL keeps /restaurants/<state>/<name> pages and
// drops state index pages.
func isNandosRestaurantURL(u string) bool {
	if u == "" || !strings.Contains(u, "/restaurants/") {
		return false
	}
	path := strings.TrimPrefix(u, nandosBaseURL)
	var parts []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return len(parts) > 2 && parts[0] == "restaurants"
}

// parseRestaurantPage extracts the JSON-LD Restaurant block from one
// restaurant page.
func (p *NandosParser) parseRestaurantPage(ctx context.Context, pageURL string, fetchOpts config.FetcherOptions) models.Record {
	resp, err := p.fetcher.Fetch(ctx, pageURL, fetchOpts)
	if err != nil {
		log.WithError(err).Errorf("failed to fetch restaurant page %s", pageURL)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Body))
	if err != nil {
		log.WithError(err).Errorf("failed to parse restaurant page %s", pageURL)
		return nil
	}

	var record models.Record
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var data map[string]any
		if err := json.Unmarshal([]byte(sel.Text()), &data); err != nil {
			return true
		}
		if t, _ := data["@type"].(string); t != "Restaurant" {
			return true
		}
		record = models.Record(data)
		return false
	})

	if record == nil {
		log.Warnf("no Restaurant JSON-LD data found in %s", pageURL)
		return nil
	}
	record["source_url"] = pageURL
	record["source"] = "nandos"
	record["brand"] = "Nandos"
	return record
}
