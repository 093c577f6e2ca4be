package transformers

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"StoreScraper/internal/models"
	"StoreScraper/internal/plugin"
	"StoreScraper/pkg/config"
	"StoreScraper/utils"
)

// KfcTransformer normalizes the raw name/address records the grid
// search parser emits.
type KfcTransformer struct{}

func init() {
	plugin.RegisterTransformer("KfcTransformer", func(config.TransformerOptions) (plugin.Transformer, error) {
		return &KfcTransformer{}, nil
	})
}

func (t *KfcTransformer) Transform(ctx context.Context, records []models.Record, opts config.TransformerOptions, site string) ([]models.Record, error) {
	if len(records) == 0 {
		log.Warn("no data to transform for KFC")
		return nil, nil
	}

	var out []models.Record
	for _, r := range records {
		name := r.String("name")
		address := r.String("address")
		if name == "" || address == "" {
			continue
		}

		comps := utils.ParseAddress(address)
		loc := models.Location{
			BusinessID: utils.GenerateBusinessID(name,
				idAddress(comps.StreetAddress, comps.Suburb, comps.State, comps.Postcode)),
			Brand:              "KFC",
			BusinessName:       name,
			StreetAddress:      comps.StreetAddress,
			Suburb:             comps.Suburb,
			State:              normalizeState(comps.State),
			Postcode:           comps.Postcode,
			DriveThru:          r.Bool("drive_thru"),
			ShoppingCentreName: comps.ShoppingCentreName,
			SourceURL:          r.String("source_url"),
			Source:             "kfc",
			ScrapedDate:        time.Now().UTC(),
		}
		out = append(out, loc.Record())
	}

	log.Infof("transformed %d KFC items", len(out))
	return out, nil
}
