package parsers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"StoreScraper/internal/models"
	"StoreScraper/internal/plugin"
	"StoreScraper/pkg/config"
)

const noodleboxDataURL = "https://www.noodlebox.com.au/data/locations"

// noodleboxResponse mirrors the undocumented locations API payload.
type noodleboxResponse struct {
	Data []struct {
		Name    string   `json:"name"`
		Address []string `json:"address"`
	} `json:"data"`
}

// NoodleboxParser reads the Noodlebox locations JSON API.
type NoodleboxParser struct {
	fetcher plugin.Fetcher
}

// NewNoodleboxParser builds the parser; the fetcher may be nil when
// content is supplied.
func NewNoodleboxParser(f plugin.Fetcher) *NoodleboxParser {
	return &NoodleboxParser{fetcher: f}
}

func init() {
	plugin.RegisterParser("NoodleboxParser", plugin.ParserEntry{
		NewWithFetcher: func(f plugin.Fetcher) plugin.Parser { return NewNoodleboxParser(f) },
	})
}

// Parse decodes provided JSON content, falling back to fetching the API
// when the entry URL served something unusable.
func (p *NoodleboxParser) Parse(ctx context.Context, content, contentType string, opts config.ParserOptions) ([]models.Record, error) {
	var payload noodleboxResponse
	if content != "" {
		if err := json.Unmarshal([]byte(content), &payload); err != nil {
			log.Warn("provided content is not valid JSON, fetching API instead")
			payload.Data = nil
		}
	}

	if len(payload.Data) == 0 {
		if p.fetcher == nil {
			return nil, fmt.Errorf("no usable content and no fetcher provided")
		}
		resp, err := p.fetcher.Fetch(ctx, noodleboxDataURL, detailFetcherOptions(opts))
		if err != nil {
			return nil, fmt.Errorf("fetching Noodlebox locations: %w", err)
		}
		if err := json.Unmarshal([]byte(resp.Body), &payload); err != nil {
			return nil, fmt.Errorf("decoding Noodlebox locations: %w", err)
		}
	}

	var records []models.Record
	for _, loc := range payload.Data {
		name := strings.TrimSpace(loc.Name)
		if name == "" {
			continue
		}
		records = append(records, models.Record{
			"business_name": "Noodlebox " + name,
			"raw_address":   strings.Join(loc.Address, " "),
			"drive_thru":    false,
			"source_url":    "https://www.noodlebox.com.au/locations",
			"source":        "noodlebox",
		})
	}

	log.Infof("NoodleboxParser finished, returning %d items", len(records))
	return records, nil
}
