package parsers

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"StoreScraper/internal/models"
	"StoreScraper/internal/plugin"
	"StoreScraper/pkg/config"
)

const grilldBaseURL = "https://grilld.com.au"

// coordsPattern pulls a "lat,lon" pair out of a Google Maps link.
var coordsPattern = regexp.MustCompile(`-?\d+\.\d+,\s*-?\d+\.\d+`)

// GrilldParser finds restaurant links on the Grill'd locations page,
// fetches each detail page and extracts the address, coordinates and
// drive-thru flag.
type GrilldParser struct {
	fetcher plugin.Fetcher
}

// NewGrilldParser builds the parser around the injected fetcher.
func NewGrilldParser(f plugin.Fetcher) *GrilldParser {
	return &GrilldParser{fetcher: f}
}

func init() {
	plugin.RegisterParser("GrilldParser", plugin.ParserEntry{
		NewWithFetcher: func(f plugin.Fetcher) plugin.Parser { return NewGrilldParser(f) },
	})
}

// Parse walks the main page's restaurant links and fans out to detail
// pages under a local concurrency bound.
func (p *GrilldParser) Parse(ctx context.Context, content, contentType string, opts config.ParserOptions) ([]models.Record, error) {
	if content == "" {
		return nil, fmt.Errorf("no initial content provided")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing main page: %w", err)
	}

	type link struct{ name, url string }
	var links []link
	doc.Find("div.c-body-rich-text a.simple-text-link").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.HasPrefix(href, "/restaurants/") {
			return
		}
		links = append(links, link{
			name: strings.TrimSpace(sel.Text()),
			url:  grilldBaseURL + href,
		})
	})
	log.Infof("GrilldParser found %d potential location links", len(links))

	fetchOpts := detailFetcherOptions(opts)
	sem := make(chan struct{}, fanOutLimit(opts, 10))
	results := make([]models.Record, len(links))

	var wg sync.WaitGroup
	for i, l := range links {
		wg.Add(1)
		go func(idx int, name, detailURL string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if record := p.parseDetailPage(ctx, detailURL, name, fetchOpts); record != nil {
				results[idx] = record
			}
		}(i, l.name, l.url)
	}
	wg.Wait()

	var records []models.Record
	for _, r := range results {
		if r != nil {
			records = append(records, r)
		}
	}
	log.Infof("GrilldParser finished, returning %d items", len(records))
	return records, nil
}

// parseDetailPage extracts one restaurant's address block. A missing
// address disqualifies the page.
func (p *GrilldParser) parseDetailPage(ctx context.Context, detailURL, name string, fetchOpts config.FetcherOptions) models.Record {
	resp, err := p.fetcher.Fetch(ctx, detailURL, fetchOpts)
	if err != nil {
		log.WithError(err).Errorf("failed to fetch detail page %s", detailURL)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Body))
	if err != nil {
		log.WithError(err).Errorf("failed to parse detail page %s", detailURL)
		return nil
	}

	addressLink := doc.Find(`a.details-text-link[href*="maps.google.com"]`).First()
	if addressLink.Length() == 0 {
		log.Warnf("address link not found on %s", detailURL)
		return nil
	}
	address := strings.TrimSpace(addressLink.Text())
	if address == "" {
		log.Warnf("address text not found on %s", detailURL)
		return nil
	}

	latitude, longitude := extractMapCoords(addressLink.AttrOr("href", ""))

	driveThru := false
	doc.Find("span.chip-text").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(sel.Text()), "drive thru") {
			driveThru = true
			return false
		}
		return true
	})

	return models.Record{
		"name":       name,
		"address":    address,
		"source_url": detailURL,
		"drive_thru": driveThru,
		"latitude":   latitude,
		"longitude":  longitude,
	}
}

// extractMapCoords reads coordinates from a maps link, preferring the
// ll= query parameter.
func extractMapCoords(mapsURL string) (lat, lon string) {
	if parsed, err := url.Parse(mapsURL); err == nil {
		if ll := parsed.Query().Get("ll"); ll != "" {
			if parts := strings.SplitN(ll, ",", 2); len(parts) == 2 {
				return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
			}
		}
	}
	if m := coordsPattern.FindString(mapsURL); m != "" {
		parts := strings.SplitN(m, ",", 2)
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return "", ""
}
