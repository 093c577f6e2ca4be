package parsers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"StoreScraper/internal/models"
	"StoreScraper/internal/plugin"
	"StoreScraper/pkg/config"
)

const zambreroBaseURL = "https://www.zambrero.com.au"

var (
	// Drops trailing status markers from a restaurant name.
	zambreroStatusPattern = regexp.MustCompile(`(?i)\s*-\s*(Opening Soon|Temporarily.*|Closed).*$`)

	// Street/unit markers that make a text node look like an address.
	zambreroAddressPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\d+.*(Street|St|Road|Rd|Avenue|Ave|Boulevard|Blvd|Highway|Hwy|Drive|Dr|Lane|Ln|Parade|Terrace|Crescent|Cres|Place|Pl|Circuit|Cct)`),
		regexp.MustCompile(`(?i)Shop\s+\d+`),
		regexp.MustCompile(`(?i)Level\s+\d+`),
		regexp.MustCompile(`(?i)Unit\s+\d+`),
		regexp.MustCompile(`(?i)\d{4}\s+Australia`),
	}

	zambreroCountryPattern  = regexp.MustCompile(`(?i)\s+Australia\s*$`)
	zambreroPostcodePattern = regexp.MustCompile(`(\d{4})\s*$`)
	zambreroStatePattern    = regexp.MustCompile(`\b([A-Z]{2,3})\s*$`)
	zambreroSlugPattern     = regexp.MustCompile(`[^\w\-]`)
	zambreroDashesPattern   = regexp.MustCompile(`-+`)
)

// ZambreroParser walks the per-state location search pages. The pages
// carry no structured data, so each restaurant is recovered from an h4
// heading and the loose sibling nodes that follow it.
type ZambreroParser struct {
	fetcher plugin.Fetcher
}

// NewZambreroParser builds the parser around the injected fetcher.
func NewZambreroParser(f plugin.Fetcher) *ZambreroParser {
	return &ZambreroParser{fetcher: f}
}

func init() {
	plugin.RegisterParser("ZambreroParser", plugin.ParserEntry{
		NewWithFetcher: func(f plugin.Fetcher) plugin.Parser { return NewZambreroParser(f) },
	})
}

// Parse fetches every state page concurrently and merges the results.
func (p *ZambreroParser) Parse(ctx context.Context, content, contentType string, opts config.ParserOptions) ([]models.Record, error) {
	states := []string{"ACT", "NSW", "NT", "QLD", "SA", "TAS", "VIC", "WA"}

	fetchOpts := detailFetcherOptions(opts)
	sem := make(chan struct{}, fanOutLimit(opts, len(states)))
	results := make([][]models.Record, len(states))

	var wg sync.WaitGroup
	for i, state := range states {
		wg.Add(1)
		go func(idx int, state string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = p.parseStatePage(ctx, state, fetchOpts)
		}(i, state)
	}
	wg.Wait()

	seen := make(map[string]struct{})
	var records []models.Record
	for _, stateRecords := range results {
		for _, r := range stateRecords {
			key := fmt.Sprintf("%v|%v|%v|%v",
				r["business_name"], r["street_address"], r["suburb"], r["postcode"])
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			records = append(records, r)
		}
	}

	log.Infof("ZambreroParser finished, returning %d items", len(records))
	return records, nil
}

func (p *ZambreroParser) parseStatePage(ctx context.Context, state string, fetchOpts config.FetcherOptions) []models.Record {
	stateURL := fmt.Sprintf("%s/locations/search?state=%s", zambreroBaseURL, state)

	resp, err := p.fetcher.Fetch(ctx, stateURL, fetchOpts)
	if err != nil {
		log.WithError(err).Errorf("failed to fetch state page %s", stateURL)
		return nil
	}

	root, err := html.Parse(strings.NewReader(resp.Body))
	if err != nil {
		log.WithError(err).Errorf("failed to parse state page %s", stateURL)
		return nil
	}

	var records []models.Record
	for _, header := range findElements(root, "h4") {
		if record := extractZambreroLocation(header, state); record != nil {
			records = append(records, record)
		}
	}
	log.Infof("found %d locations in %s", len(records), state)
	return records
}

// extractZambreroLocation recovers one restaurant from a heading node
// and the siblings after it.
func extractZambreroLocation(header *html.Node, state string) models.Record {
	nameText := strings.TrimSpace(nodeText(header))
	if nameText == "" {
		return nil
	}
	name := strings.TrimSpace(zambreroStatusPattern.ReplaceAllString(nameText, ""))
	if name == "" {
		return nil
	}

	address := findSiblingAddress(header)
	if address == "" {
		log.Debugf("no address found for %s", name)
		return nil
	}

	street, stateCode, postcode, ok := parseZambreroAddress(address)
	if !ok {
		log.Debugf("could not parse address for %s: %s", name, address)
		return nil
	}
	if stateCode == "" {
		stateCode = state
	}

	combined := strings.ToLower(nameText + " " + address)
	driveThru := strings.Contains(combined, "drive thru") ||
		strings.Contains(combined, "drive-thru") ||
		strings.Contains(combined, "drive through")

	return models.Record{
		"brand":          "Zambrero",
		"business_name":  "Zambrero " + name,
		"street_address": street,
		// The restaurant name carries the suburb.
		"suburb":     name,
		"state":      stateCode,
		"postcode":   postcode,
		"drive_thru": driveThru,
		"source_url": findStoreURL(header, name),
		"source":     "zambrero",
	}
}

// findSiblingAddress scans the nodes after a heading for the first text
// that looks like a street address. The scan is bounded so a heading
// with no address nearby gives up instead of walking the whole page.
func findSiblingAddress(header *html.Node) string {
	current := header.NextSibling
	for attempts := 0; current != nil && attempts < 10; attempts++ {
		text := strings.TrimSpace(nodeText(current))
		if text != "" && isAddressText(text) {
			return text
		}
		current = current.NextSibling
	}
	return ""
}

func isAddressText(text string) bool {
	for _, pattern := range zambreroAddressPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// parseZambreroAddress splits "Street Suburb STATE POSTCODE Australia"
// into components. The trailing suburb word is dropped from the street
// since the restaurant name already names the suburb.
func parseZambreroAddress(raw string) (street, state, postcode string, ok bool) {
	address := strings.TrimSpace(raw)
	address = strings.TrimSpace(zambreroCountryPattern.ReplaceAllString(address, ""))

	postcodeMatch := zambreroPostcodePattern.FindStringSubmatchIndex(address)
	if postcodeMatch == nil {
		return "", "", "", false
	}
	postcode = address[postcodeMatch[2]:postcodeMatch[3]]
	address = strings.TrimSpace(address[:postcodeMatch[0]])

	stateMatch := zambreroStatePattern.FindStringSubmatchIndex(address)
	if stateMatch == nil {
		return "", "", "", false
	}
	state = address[stateMatch[2]:stateMatch[3]]
	address = strings.TrimSpace(address[:stateMatch[0]])

	words := strings.Fields(address)
	if len(words) >= 2 {
		street = strings.Join(words[:len(words)-1], " ")
	} else {
		street = address
	}
	return street, state, postcode, true
}

// findStoreURL looks for an order/store-info link near the heading,
// falling back to a slug built from the name.
func findStoreURL(header *html.Node, name string) string {
	current := header.NextSibling
	for attempts := 0; current != nil && attempts < 15; attempts++ {
		for _, link := range findElements(current, "a") {
			href := attrValue(link, "href")
			text := strings.ToLower(strings.TrimSpace(nodeText(link)))
			if strings.Contains(text, "store info") || strings.Contains(text, "order") {
				if strings.HasPrefix(href, "/") {
					return zambreroBaseURL + href
				}
				if strings.HasPrefix(href, "http") {
					return href
				}
			}
		}
		current = current.NextSibling
	}

	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "&", "-")
	slug = strings.ReplaceAll(slug, "/", "-")
	slug = zambreroSlugPattern.ReplaceAllString(slug, "")
	slug = strings.Trim(zambreroDashesPattern.ReplaceAllString(slug, "-"), "-")
	return zambreroBaseURL + "/locations/" + slug
}

// findElements collects, in document order, every element under (and
// including) n with the given tag.
func findElements(n *html.Node, tag string) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == tag {
			found = append(found, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return found
}

// nodeText concatenates all text beneath a node.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
