package parsers

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"StoreScraper/internal/models"
	"StoreScraper/internal/plugin"
	"StoreScraper/pkg/config"
)

const gygLocationsURL = "https://www.guzmanygomez.com.au/locations/"

// GygParser scrapes Guzman y Gomez locations from the data attributes
// on their locations page. Address normalization is left to the
// geocoding transformer.
type GygParser struct {
	fetcher plugin.Fetcher
}

// NewGygParser builds the parser; the fetcher may be nil when the
// orchestrator supplies pre-fetched content.
func NewGygParser(f plugin.Fetcher) *GygParser {
	return &GygParser{fetcher: f}
}

func init() {
	plugin.RegisterParser("GygParser", plugin.ParserEntry{
		NewWithFetcher: func(f plugin.Fetcher) plugin.Parser { return NewGygParser(f) },
	})
}

// Parse uses the provided content when available, otherwise fetches the
// locations page itself.
func (p *GygParser) Parse(ctx context.Context, content, contentType string, opts config.ParserOptions) ([]models.Record, error) {
	html := content
	if html == "" {
		if p.fetcher == nil {
			return nil, fmt.Errorf("no content and no fetcher provided")
		}
		resp, err := p.fetcher.Fetch(ctx, gygLocationsURL, detailFetcherOptions(opts))
		if err != nil {
			return nil, fmt.Errorf("fetching GYG locations: %w", err)
		}
		html = resp.Body
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing GYG locations page: %w", err)
	}

	var records []models.Record
	doc.Find("div.location").Each(func(_ int, sel *goquery.Selection) {
		address := sel.AttrOr("data-address", "")
		if address == "" {
			return
		}
		name := sel.AttrOr("data-name", "")
		classes := strings.ToLower(sel.AttrOr("class", ""))
		driveThru := strings.Contains(classes, "category-drive-thru") ||
			strings.Contains(classes, "drive thru")

		records = append(records, models.Record{
			"brand":         "Guzman Y Gomez",
			"business_name": "Guzman Y Gomez " + name,
			"raw_address":   address,
			"drive_thru":    driveThru,
			"source_url":    sel.AttrOr("data-url", ""),
			"source":        "gyg",
		})
	})

	log.Infof("GygParser finished, returning %d items", len(records))
	return records, nil
}
