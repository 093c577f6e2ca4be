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

const oportoStoresURL = "https://www.oporto.com.au/api-proxy/stores?include=amenities,availability,delivery,collection,holiday,storeAddress,salesforce"

// oportoAddressField is either {"value": "..."} or a bare string,
// depending on which backend revision answers.
type oportoAddressField struct {
	Value string
}

func (f *oportoAddressField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.Value = s
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	f.Value = obj.Value
	return nil
}

type oportoStore struct {
	Attributes struct {
		StoreName   string `json:"storeName"`
		IsEnabled   bool   `json:"isEnabled"`
		PickupTypes struct {
			DriveThru bool `json:"driveThru"`
		} `json:"pickupTypes"`
	} `json:"attributes"`
	Relationships struct {
		StoreAddress struct {
			Data struct {
				Attributes struct {
					AddressComponents struct {
						StreetName oportoAddressField `json:"streetName"`
						Suburb     oportoAddressField `json:"suburb"`
						State      oportoAddressField `json:"state"`
						Postcode   oportoAddressField `json:"postcode"`
					} `json:"addressComponents"`
				} `json:"attributes"`
			} `json:"data"`
		} `json:"storeAddress"`
	} `json:"relationships"`
}

// OportoParser reads the Oporto store API, flattening the nested
// storeAddress relationship into address components.
type OportoParser struct {
	fetcher plugin.Fetcher
}

// NewOportoParser builds the parser around the injected fetcher.
func NewOportoParser(f plugin.Fetcher) *OportoParser {
	return &OportoParser{fetcher: f}
}

func init() {
	plugin.RegisterParser("OportoParser", plugin.ParserEntry{
		NewWithFetcher: func(f plugin.Fetcher) plugin.Parser { return NewOportoParser(f) },
	})
}

// Parse ignores the entry content and queries the store API directly.
func (p *OportoParser) Parse(ctx context.Context, content, contentType string, opts config.ParserOptions) ([]models.Record, error) {
	resp, err := p.fetcher.Fetch(ctx, oportoStoresURL, detailFetcherOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("fetching Oporto stores: %w", err)
	}

	var payload struct {
		Data []oportoStore `json:"data"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &payload); err != nil {
		return nil, fmt.Errorf("decoding Oporto stores: %w", err)
	}

	var records []models.Record
	for _, store := range payload.Data {
		name := strings.TrimSpace(store.Attributes.StoreName)
		if name == "" || !store.Attributes.IsEnabled {
			continue
		}
		comps := store.Relationships.StoreAddress.Data.Attributes.AddressComponents
		records = append(records, models.Record{
			"brand":          "Oporto",
			"business_name":  "Oporto " + name,
			"street_address": comps.StreetName.Value,
			"suburb":         comps.Suburb.Value,
			"state":          comps.State.Value,
			"postcode":       comps.Postcode.Value,
			"drive_thru":     store.Attributes.PickupTypes.DriveThru,
			"source":         "oporto",
			"source_url":     "https://www.oporto.com.au/",
		})
	}

	log.Infof("OportoParser finished, returning %d items", len(records))
	return records, nil
}
