package parsers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StoreScraper/pkg/config"
)

const gygLocationsPage = `
<html><body>
<div class="location category-drive-thru" data-name="Brunswick" data-address="140 Sydney Rd, Brunswick VIC 3056" data-url="https://www.guzmanygomez.com.au/locations/brunswick/"></div>
<div class="location" data-name="Melbourne Central" data-address="211 La Trobe St, Melbourne VIC 3000" data-url="https://www.guzmanygomez.com.au/locations/melbourne-central/"></div>
<div class="location" data-name="No Address"></div>
</body></html>`

func TestGygParserWithContent(t *testing.T) {
	parser := NewGygParser(nil)

	records, err := parser.Parse(context.Background(), gygLocationsPage, "text/html", config.ParserOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2, "locations without an address are dropped")

	brunswick := records[0]
	assert.Equal(t, "Guzman Y Gomez Brunswick", brunswick["business_name"])
	assert.Equal(t, "140 Sydney Rd, Brunswick VIC 3056", brunswick["raw_address"])
	assert.Equal(t, true, brunswick["drive_thru"])
	assert.Equal(t, "gyg", brunswick["source"])

	central := records[1]
	assert.Equal(t, false, central["drive_thru"])
	assert.Equal(t, "https://www.guzmanygomez.com.au/locations/melbourne-central/", central["source_url"])
}

func TestGygParserFetchesWhenNoContent(t *testing.T) {
	fetcher := newPageFetcher(map[string]string{
		gygLocationsURL: gygLocationsPage,
	})
	parser := NewGygParser(fetcher)

	records, err := parser.Parse(context.Background(), "", "text/html", config.ParserOptions{})
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 1, fetcher.fetchCount())
}
