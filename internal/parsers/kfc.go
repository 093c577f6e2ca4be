package parsers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"StoreScraper/internal/models"
	"StoreScraper/internal/plugin"
	"StoreScraper/pkg/config"
	"StoreScraper/utils"
)

// Bounding box roughly covering mainland Australia and Tasmania.
var australiaBounds = struct {
	north, south, east, west float64
}{north: -10.0, south: -44.0, east: 154.0, west: 113.0}

// pb carries the map viewport for a Google Maps search. The radius,
// longitude and latitude slots are filled per grid point; the rest is a
// captured request payload and may stop working when Google changes it.
const kfcPBTemplate = "!4m12!1m3!1d%d!2d%f!3d%f!2m3!1f0!2f0!3f0!3m2!1i1366!2i605" +
	"!4f13.1!7i200!8i20!10b1!12m24!1m5!18b1!30b1!31m1!1b1!34e1!2m3!5m1!6e2" +
	"!20e3!4b0!10b1!12b1!13b1!16b1!17m1!3e1!20m3!5e2!6b1!14b1!46m1!1b0!96b1" +
	"!19m4!2m3!1i360!2i120!4i8!20m65!2m2!1i203!2i100!3m2!2i4!5b1!6m6!1m2" +
	"!1i86!2i86!1m2!1i408!2i240!7m33!1m3!1e1!2b0!3e3!1m3!1e2!2b1!3e2!1m3" +
	"!1e2!2b0!3e3!1m3!1e8!2b0!3e3!1m3!1e10!2b0!3e3!1m3!1e10!2b1!3e2!1m3" +
	"!1e10!2b0!3e4!1m3!1e9!2b1!3e2!2b1!9b0"

// KfcParser finds KFC stores by sweeping a lat/lng grid over Australia
// with Google Maps searches. The response structure is undocumented and
// the index paths below are volatile.
type KfcParser struct {
	fetcher plugin.Fetcher
}

// NewKfcParser builds the parser around the injected fetcher.
func NewKfcParser(f plugin.Fetcher) *KfcParser {
	return &KfcParser{fetcher: f}
}

func init() {
	plugin.RegisterParser("KfcParser", plugin.ParserEntry{
		NewWithFetcher: func(f plugin.Fetcher) plugin.Parser { return NewKfcParser(f) },
		SelfDriving:    true,
	})
}

// kfcPlace is one store before record conversion.
type kfcPlace struct {
	name      string
	address   string
	driveThru bool
	sourceURL string
}

// generateSearchGrid returns rows x cols evenly spaced grid points.
func generateSearchGrid(rows, cols int) [][2]float64 {
	if rows < 2 {
		rows = 2
	}
	if cols < 2 {
		cols = 2
	}
	latStep := (australiaBounds.north - australiaBounds.south) / float64(rows-1)
	lngStep := (australiaBounds.east - australiaBounds.west) / float64(cols-1)

	points := make([][2]float64, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			lat := australiaBounds.south + float64(r)*latStep
			lng := australiaBounds.west + float64(c)*lngStep
			points = append(points, [2]float64{lat, lng})
		}
	}
	return points
}

// buildSearchURL builds one Google Maps search URL centred on a grid
// point.
func buildSearchURL(lat, lng float64, query string, radiusKM int) string {
	pb := fmt.Sprintf(kfcPBTemplate, radiusKM*1000, lng, lat)
	params := url.Values{
		"tbm":      {"map"},
		"authuser": {"0"},
		"hl":       {"en"},
		"gl":       {"au"},
		"q":        {query},
		"nfpr":     {"1"},
		"pb":       {pb},
		"tch":      {"1"},
		"ech":      {"2"},
	}
	return "https://www.google.com/search?" + params.Encode()
}

// getNested walks a decoded JSON value by list indexes, returning nil
// when any step is out of bounds or the wrong shape.
func getNested(data any, indexes ...int) any {
	current := data
	for _, idx := range indexes {
		list, ok := current.([]any)
		if !ok || idx < 0 || idx >= len(list) {
			return nil
		}
		current = list[idx]
	}
	return current
}

// preparePlaceData cleans a raw search response and digs out the list
// of place detail lists.
func preparePlaceData(raw string) ([]any, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty response body")
	}
	cleaned := strings.ReplaceAll(raw, `/*""*/`, "")

	var envelope map[string]any
	if err := json.Unmarshal([]byte(cleaned), &envelope); err != nil {
		return nil, fmt.Errorf("decoding response envelope: %w", err)
	}
	dRaw, ok := envelope["d"].(string)
	if !ok {
		return nil, fmt.Errorf("response has no string 'd' field")
	}
	dRaw = strings.TrimLeft(dRaw, ")]}'\n")
	if dRaw == "" {
		return nil, fmt.Errorf("'d' field empty after cleaning")
	}

	var d any
	if err := json.Unmarshal([]byte(dRaw), &d); err != nil {
		return nil, fmt.Errorf("decoding 'd' payload: %w", err)
	}

	// The place list lives at index 64; each entry wraps the detail
	// list at index 1.
	placeList, ok := getNested(d, 64).([]any)
	if !ok {
		return nil, nil
	}
	var details []any
	for _, item := range placeList {
		if detail := getNested(item, 1); detail != nil {
			details = append(details, detail)
		}
	}
	return details, nil
}

// buildPlaces converts raw detail lists into places, keeping only
// stores that link to the Australian KFC site.
func buildPlaces(details []any) []kfcPlace {
	var places []kfcPlace
	for _, detail := range details {
		website, _ := getNested(detail, 7, 0).(string)
		website = strings.TrimSpace(website)
		if !isAustralianKfcWebsite(website) {
			continue
		}

		name, _ := getNested(detail, 11).(string)
		name = strings.TrimSpace(name)
		if name == "" {
			name = "Unknown KFC"
		}

		address, _ := getNested(detail, 18).(string)
		address = strings.TrimSpace(address)
		if address == "" {
			log.Warnf("skipping place %q due to missing address", name)
			continue
		}

		places = append(places, kfcPlace{
			name:      name,
			address:   address,
			driveThru: hasDriveThru(detail),
			sourceURL: utils.CleanURL(website),
		})
	}
	return places
}

func isAustralianKfcWebsite(raw string) bool {
	if raw == "" {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(parsed.Host), "kfc.com.au")
}

// hasDriveThru checks the deep service-option path first, then falls
// back to the flat attribute list.
func hasDriveThru(detail any) bool {
	if s, ok := getNested(detail, 142, 1, 0, 6, 0, 1, 4).(string); ok {
		if strings.Contains(strings.ToLower(s), "drive") {
			return true
		}
	}
	if attrs, ok := getNested(detail, 4).([]any); ok {
		for _, attr := range attrs {
			if s, ok := attr.(string); ok && strings.Contains(strings.ToLower(s), "drive") {
				return true
			}
		}
	}
	return false
}

// dedupePlaces removes duplicates by normalized name and address.
func dedupePlaces(places []kfcPlace) []kfcPlace {
	seen := make(map[string]struct{}, len(places))
	var unique []kfcPlace
	for _, p := range places {
		key := strings.ToLower(strings.TrimSpace(p.name)) + "|" + strings.ToLower(strings.TrimSpace(p.address))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, p)
	}
	return unique
}

// Parse ignores the initial content and drives its own grid search.
func (p *KfcParser) Parse(ctx context.Context, content, contentType string, opts config.ParserOptions) ([]models.Record, error) {
	rows := opts.GridRows
	if rows <= 0 {
		rows = 15
	}
	cols := opts.GridCols
	if cols <= 0 {
		cols = 15
	}
	radiusKM := opts.SearchRadiusKM
	if radiusKM <= 0 {
		radiusKM = 50
	}
	query := opts.SearchQuery
	if query == "" {
		query = "KFC"
	}

	points := generateSearchGrid(rows, cols)
	log.Infof("KfcParser generated %d grid points (%dx%d)", len(points), rows, cols)

	fetchOpts := detailFetcherOptions(opts)
	sem := make(chan struct{}, fanOutLimit(opts, 10))
	results := make([][]kfcPlace, len(points))

	var wg sync.WaitGroup
	for i, pt := range points {
		wg.Add(1)
		go func(idx int, lat, lng float64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = p.searchGridPoint(ctx, lat, lng, query, radiusKM, fetchOpts)
		}(i, pt[0], pt[1])
	}
	wg.Wait()

	var all []kfcPlace
	for _, r := range results {
		all = append(all, r...)
	}
	unique := dedupePlaces(all)
	log.Infof("KfcParser found %d raw matching places, %d unique", len(all), len(unique))

	records := make([]models.Record, 0, len(unique))
	for _, place := range unique {
		records = append(records, models.Record{
			"name":       place.name,
			"address":    place.address,
			"drive_thru": place.driveThru,
			"source_url": place.sourceURL,
		})
	}
	log.Infof("KfcParser finished, returning %d items", len(records))
	return records, nil
}

// searchGridPoint fetches and parses one grid point's search results.
// Failures are logged and contribute nothing.
func (p *KfcParser) searchGridPoint(ctx context.Context, lat, lng float64, query string, radiusKM int, fetchOpts config.FetcherOptions) []kfcPlace {
	searchURL := buildSearchURL(lat, lng, query, radiusKM)

	resp, err := p.fetcher.Fetch(ctx, searchURL, fetchOpts)
	if err != nil {
		log.WithError(err).Warnf("grid search fetch failed at (%.2f, %.2f)", lat, lng)
		return nil
	}

	details, err := preparePlaceData(resp.Body)
	if err != nil {
		log.WithError(err).Warnf("grid search parse failed at (%.2f, %.2f)", lat, lng)
		return nil
	}
	places := buildPlaces(details)
	log.Debugf("parsed %d KFC places at (%.2f, %.2f)", len(places), lat, lng)
	return places
}
