package transformers

import (
	"context"
	"fmt"
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
	whitespacePattern = regexp.MustCompile(`\s+`)
	nonDigitPattern   = regexp.MustCompile(`\D`)

	nandosCentrePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(.+?(?:Shopping Centre|Shopping Center|Centre|Mall|Plaza))`),
		regexp.MustCompile(`(?i)(.+?(?:Westfield|Centro|DFO))`),
	}
	nandosCentrePrefixPattern = regexp.MustCompile(`(?i)^(?:Shop\s*\d+[A-Za-z]*,?\s*|Level\s*\d+,?\s*|Unit\s*\d+[A-Za-z]*,?\s*)`)
)

// NandosTransformer normalizes the JSON-LD Restaurant payloads the
// Nandos parser emits.
type NandosTransformer struct{}

func init() {
	plugin.RegisterTransformer("NandosTransformer", func(config.TransformerOptions) (plugin.Transformer, error) {
		return &NandosTransformer{}, nil
	})
}

func (t *NandosTransformer) Transform(ctx context.Context, records []models.Record, opts config.TransformerOptions, site string) ([]models.Record, error) {
	if len(records) == 0 {
		log.Warn("no data to transform for Nandos")
		return nil, nil
	}

	var out []models.Record
	for _, r := range records {
		name := "Nandos " + titleCase(r.String("name"))

		addressData, ok := r["address"].(map[string]any)
		if !ok {
			log.Warnf("address data is not an object for %s", name)
			continue
		}
		get := func(key string) string {
			s, _ := addressData[key].(string)
			return s
		}

		street := cleanWhitespace(get("streetAddress"))
		suburb := strings.ToUpper(cleanWhitespace(get("addressLocality")))
		state := normalizeState(get("addressRegion"))
		postcode := cleanPostcode(get("postalCode"))

		shoppingCentre := extractNandosCentre(street)

		driveThru := mentionsDriveThru(r.String("name"), street, fmt.Sprint(r))

		loc := models.Location{
			BusinessID: utils.GenerateBusinessID(name,
				idAddress(street, suburb, state, postcode)),
			Brand:              "Nandos",
			BusinessName:       name,
			StreetAddress:      street,
			Suburb:             suburb,
			State:              state,
			Postcode:           postcode,
			DriveThru:          driveThru,
			ShoppingCentreName: shoppingCentre,
			SourceURL:          r.String("source_url"),
			Source:             "nandos",
			ScrapedDate:        time.Now().UTC(),
		}
		out = append(out, loc.Record())
	}

	log.Infof("transformed %d Nandos items", len(out))
	return out, nil
}

func cleanWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// cleanPostcode keeps only a valid 4-digit postcode.
func cleanPostcode(s string) string {
	digits := nonDigitPattern.ReplaceAllString(strings.TrimSpace(s), "")
	if len(digits) == 4 {
		return digits
	}
	return ""
}

// extractNandosCentre pulls a shopping centre name out of the street
// address, stripping shop/level/unit prefixes.
func extractNandosCentre(street string) string {
	for _, pattern := range nandosCentrePatterns {
		if m := pattern.FindStringSubmatch(street); m != nil {
			centre := strings.TrimSpace(m[1])
			centre = nandosCentrePrefixPattern.ReplaceAllString(centre, "")
			return strings.TrimSpace(centre)
		}
	}
	return ""
}

// titleCase uppercases the first letter of each word.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
