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

// GrilldTransformer normalizes raw Grill'd records. The parser emits a
// single raw address line; everything structural comes from splitting
// it.
type GrilldTransformer struct{}

func init() {
	plugin.RegisterTransformer("GrilldTransformer", func(config.TransformerOptions) (plugin.Transformer, error) {
		return &GrilldTransformer{}, nil
	})
}

func (t *GrilldTransformer) Transform(ctx context.Context, records []models.Record, opts config.TransformerOptions, site string) ([]models.Record, error) {
	if len(records) == 0 {
		log.Warn("no data to transform for Grill'd")
		return nil, nil
	}

	var out []models.Record
	for _, r := range records {
		name := r.String("name")
		if name == "" {
			name = r.String("business_name")
		}
		if name == "" {
			continue
		}
		businessName := "Grill'd " + name

		comps := utils.ParseAddress(r.String("address"))
		loc := models.Location{
			BusinessID: utils.GenerateBusinessID(businessName,
				idAddress(comps.StreetAddress, comps.Suburb, comps.State, comps.Postcode)),
			Brand:              "Grill'd",
			BusinessName:       businessName,
			StreetAddress:      comps.StreetAddress,
			Suburb:             comps.Suburb,
			State:              normalizeState(comps.State),
			Postcode:           comps.Postcode,
			DriveThru:          r.Bool("drive_thru"),
			ShoppingCentreName: comps.ShoppingCentreName,
			SourceURL:          r.String("source_url"),
			Source:             "grilld",
			ScrapedDate:        time.Now().UTC(),
		}
		out = append(out, loc.Record())
	}

	log.Infof("transformed %d Grill'd items", len(out))
	return out, nil
}
