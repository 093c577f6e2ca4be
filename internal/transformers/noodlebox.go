package transformers

import (
	"context"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"StoreScraper/internal/models"
	"StoreScraper/internal/plugin"
	"StoreScraper/pkg/config"
	"StoreScraper/utils"
)

var (
	noodleboxStatePattern    = regexp.MustCompile(`\b(ACT|NSW|NT|QLD|SA|TAS|VIC|WA)\b`)
	noodleboxPostcodePattern = regexp.MustCompile(`\b(\d{4})\b`)
	noodleboxCentrePattern   = regexp.MustCompile(`(?i)([^,]*(?:Shopping Centre|Shopping Center|Westfield|Plaza|Mall|Marketplace)[^,]*)`)
)

// NoodleboxTransformer normalizes raw Noodlebox records. The site lists
// stores by suburb-like names with a loose address blob, so the suburb
// comes from the store name and state/postcode are dug out of the blob.
type NoodleboxTransformer struct{}

func init() {
	plugin.RegisterTransformer("NoodleboxTransformer", func(config.TransformerOptions) (plugin.Transformer, error) {
		return &NoodleboxTransformer{}, nil
	})
}

func (t *NoodleboxTransformer) Transform(ctx context.Context, records []models.Record, opts config.TransformerOptions, site string) ([]models.Record, error) {
	if len(records) == 0 {
		log.Warn("no data to transform for Noodlebox")
		return nil, nil
	}

	var out []models.Record
	for _, r := range records {
		businessName := r.String("business_name")
		if businessName == "" {
			continue
		}
		rawAddress := r.String("raw_address")
		name := strings.TrimPrefix(businessName, "Noodlebox ")

		var suburb, street string
		switch {
		case strings.Contains(rawAddress, "Temporarily Closed"):
			suburb = "TEMPORARILY CLOSED"
			street = "Temporarily Closed"
		case strings.Contains(rawAddress, "Coming Soon"):
			suburb = "COMING SOON"
			street = "Coming Soon"
		default:
			suburb = strings.ToUpper(name)
			street = rawAddress
		}

		state := ""
		if m := noodleboxStatePattern.FindStringSubmatch(rawAddress); m != nil {
			state = m[1]
		} else {
			upper := strings.ToUpper(rawAddress)
			for full, abbr := range stateNames {
				if strings.Contains(upper, full) {
					state = abbr
					break
				}
			}
		}

		postcode := ""
		if m := noodleboxPostcodePattern.FindStringSubmatch(rawAddress); m != nil {
			postcode = m[1]
		}

		shoppingCentre := ""
		if m := noodleboxCentrePattern.FindStringSubmatch(rawAddress); m != nil {
			shoppingCentre = strings.TrimSpace(m[1])
		}

		loc := models.Location{
			BusinessID: utils.GenerateBusinessID(businessName,
				idAddress(street, suburb, state, postcode)),
			Brand:              "Noodlebox",
			BusinessName:       businessName,
			StreetAddress:      street,
			Suburb:             suburb,
			State:              state,
			Postcode:           postcode,
			DriveThru:          r.Bool("drive_thru"),
			ShoppingCentreName: shoppingCentre,
			SourceURL:          r.String("source_url"),
			Source:             "noodlebox",
			ScrapedDate:        time.Now().UTC(),
		}
		out = append(out, loc.Record())
	}

	log.Infof("transformed %d Noodlebox items", len(out))
	return out, nil
}
