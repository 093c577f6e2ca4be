package transformers

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"StoreScraper/internal/models"
	"StoreScraper/internal/plugin"
	"StoreScraper/pkg/config"
	"StoreScraper/utils"
)

// ZambreroTransformer finalizes Zambrero records. The parser already
// splits the address, so this stage normalizes casing and stamps the
// business ID.
type ZambreroTransformer struct{}

func init() {
	plugin.RegisterTransformer("ZambreroTransformer", func(config.TransformerOptions) (plugin.Transformer, error) {
		return &ZambreroTransformer{}, nil
	})
}

func (t *ZambreroTransformer) Transform(ctx context.Context, records []models.Record, opts config.TransformerOptions, site string) ([]models.Record, error) {
	if len(records) == 0 {
		log.Warn("no data to transform for Zambrero")
		return nil, nil
	}

	var out []models.Record
	for _, r := range records {
		businessName := r.String("business_name")
		if businessName == "" {
			continue
		}
		street := r.String("street_address")
		suburb := strings.ToUpper(r.String("suburb"))
		state := normalizeState(r.String("state"))
		postcode := r.String("postcode")

		loc := models.Location{
			BusinessID: utils.GenerateBusinessID(businessName,
				idAddress(street, suburb, state, postcode)),
			Brand:         "Zambrero",
			BusinessName:  businessName,
			StreetAddress: street,
			Suburb:        suburb,
			State:         state,
			Postcode:      postcode,
			DriveThru:     r.Bool("drive_thru"),
			SourceURL:     r.String("source_url"),
			Source:        "zambrero",
			ScrapedDate:   time.Now().UTC(),
		}
		out = append(out, loc.Record())
	}

	log.Infof("transformed %d Zambrero items", len(out))
	return out, nil
}
