package transformers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"StoreScraper/internal/models"
	"StoreScraper/internal/plugin"
	"StoreScraper/pkg/config"
	"StoreScraper/utils"
)

const (
	geoapifyReverseURL = "https://api.geoapify.com/v1/geocode/reverse"
	geoapifySearchURL  = "https://api.geoapify.com/v1/geocode/search"

	// Geoapify free-tier allowance.
	geoapifyRequestsPerSecond = 5
)

// geoapifyResult is the subset of a geocoder hit we read.
type geoapifyResult struct {
	HouseNumber string `json:"housenumber"`
	Street      string `json:"street"`
	Suburb      string `json:"suburb"`
	StateCode   string `json:"state_code"`
	Postcode    string `json:"postcode"`
	Category    string `json:"category"`
	Name        string `json:"name"`
}

type geoapifyResponse struct {
	Results []geoapifyResult `json:"results"`
}

// addressDetails is a resolved address for one location.
type addressDetails struct {
	street         string
	suburb         string
	state          string
	postcode       string
	shoppingCentre string
}

// AddressTransformer resolves raw coordinates or address text through
// the Geoapify geocoding API. Requests are rate limited to the API
// allowance; records the geocoder cannot place are dropped.
type AddressTransformer struct {
	apiKey  string
	client  *resty.Client
	limiter *rate.Limiter

	reverseURL string
	searchURL  string
}

// NewAddressTransformer builds the transformer. The API key is
// required.
func NewAddressTransformer(apiKey string) (*AddressTransformer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("AddressTransformer requires an api_key")
	}
	return &AddressTransformer{
		apiKey:     apiKey,
		client:     resty.New().SetTimeout(30 * time.Second),
		limiter:    rate.NewLimiter(rate.Limit(geoapifyRequestsPerSecond), 1),
		reverseURL: geoapifyReverseURL,
		searchURL:  geoapifySearchURL,
	}, nil
}

func init() {
	plugin.RegisterTransformer("AddressTransformer", func(opts config.TransformerOptions) (plugin.Transformer, error) {
		return NewAddressTransformer(opts.APIKey)
	})
}

func (t *AddressTransformer) Transform(ctx context.Context, records []models.Record, opts config.TransformerOptions, site string) ([]models.Record, error) {
	results := make([]models.Record, len(records))

	sem := make(chan struct{}, geoapifyRequestsPerSecond)
	var wg sync.WaitGroup
	for i, r := range records {
		wg.Add(1)
		go func(idx int, record models.Record) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = t.transformOne(ctx, record, site)
		}(i, r)
	}
	wg.Wait()

	var out []models.Record
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	log.Infof("transformed %d locations successfully", len(out))
	return out, nil
}

// transformOne geocodes a single record, preferring coordinates over
// address text.
func (t *AddressTransformer) transformOne(ctx context.Context, r models.Record, site string) models.Record {
	businessName := r.String("name")
	if businessName == "" {
		businessName = r.String("business_name")
	}
	if businessName == "" {
		businessName = "Unknown Name"
	}

	lat, lon := r.String("latitude"), r.String("longitude")
	address := r.String("address")
	if address == "" {
		address = r.String("raw_address")
	}

	var details *addressDetails
	var err error
	switch {
	case lat != "" && lon != "":
		details, err = t.reverseGeocode(ctx, lat, lon)
	case address != "":
		details, err = t.searchGeocode(ctx, address)
	default:
		log.Warnf("missing both coordinates and address for location: %s", businessName)
		return nil
	}
	if err != nil {
		log.WithError(err).Warnf("could not get address details for %s", businessName)
		return nil
	}

	loc := models.Location{
		BusinessID: utils.GenerateBusinessID(businessName,
			idAddress(details.street, details.suburb, details.state, details.postcode)),
		Brand:              r.String("brand"),
		BusinessName:       businessName,
		StreetAddress:      details.street,
		Suburb:             details.suburb,
		State:              normalizeState(details.state),
		Postcode:           details.postcode,
		DriveThru:          r.Bool("drive_thru"),
		ShoppingCentreName: details.shoppingCentre,
		SourceURL:          r.String("source_url"),
		Source:             site,
		ScrapedDate:        time.Now().UTC(),
	}
	return loc.Record()
}

func (t *AddressTransformer) reverseGeocode(ctx context.Context, lat, lon string) (*addressDetails, error) {
	return t.geocode(ctx, t.reverseURL, map[string]string{
		"lat": lat,
		"lon": lon,
	})
}

func (t *AddressTransformer) searchGeocode(ctx context.Context, address string) (*addressDetails, error) {
	return t.geocode(ctx, t.searchURL, map[string]string{
		"text": address,
	})
}

func (t *AddressTransformer) geocode(ctx context.Context, endpoint string, params map[string]string) (*addressDetails, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var payload geoapifyResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("format", "json").
		SetQueryParam("apiKey", t.apiKey).
		SetResult(&payload).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("geoapify request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("geoapify returned status %d", resp.StatusCode())
	}
	if len(payload.Results) == 0 {
		return nil, fmt.Errorf("geoapify returned no results")
	}

	result := payload.Results[0]
	var streetParts []string
	if result.HouseNumber != "" {
		streetParts = append(streetParts, result.HouseNumber)
	}
	if result.Street != "" {
		streetParts = append(streetParts, result.Street)
	}

	details := &addressDetails{
		street:   strings.Join(streetParts, " "),
		suburb:   result.Suburb,
		state:    result.StateCode,
		postcode: result.Postcode,
	}
	if result.Category == "commercial.shopping_mall" {
		details.shoppingCentre = result.Name
	}
	return details, nil
}
