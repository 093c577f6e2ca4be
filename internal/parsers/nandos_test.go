package parsers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StoreScraper/pkg/config"
)

const nandosSitemap = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://www.nandos.com.au/restaurants/vic/richmond</loc></url>
  <url><loc>https://www.nandos.com.au/restaurants/vic</loc></url>
  <url><loc>https://www.nandos.com.au/menu/peri-peri-chicken</loc></url>
  <url><loc>https://www.nandos.com.au/restaurants/vic/richmond</loc></url>
</urlset>`

const nandosRichmondPage = `
<html><head>
<script type="application/ld+json">{"@type": "WebSite", "name": "Nandos"}</script>
<script type="application/ld+json">{
  "@type": "Restaurant",
  "name": "richmond",
  "address": {
    "streetAddress": "260 Swan St",
    "addressLocality": "Richmond",
    "addressRegion": "VIC",
    "postalCode": "3121"
  }
}</script>
</head><body></body></html>`

func TestNandosParser(t *testing.T) {
	fetcher := newPageFetcher(map[string]string{
		nandosSitemapURL: nandosSitemap,
		"https://www.nandos.com.au/restaurants/vic/richmond": nandosRichmondPage,
	})
	parser := NewNandosParser(fetcher)

	records, err := parser.Parse(context.Background(), "", "", config.ParserOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1, "state index and menu pages are not restaurants, duplicates collapse")

	record := records[0]
	assert.Equal(t, "richmond", record["name"])
	assert.Equal(t, "nandos", record["source"])
	assert.Equal(t, "Nandos", record["brand"])
	assert.Equal(t, "https://www.nandos.com.au/restaurants/vic/richmond", record["source_url"])

	address, ok := record["address"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "260 Swan St", address["streetAddress"])

	// Sitemap plus one restaurant page.
	assert.Equal(t, 2, fetcher.fetchCount())
}

func TestIsNandosRestaurantURL(t *testing.T) {
	testCases := []struct {
		url      string
		expected bool
	}{
		{"https://www.nandos.com.au/restaurants/vic/richmond", true},
		{"https://www.nandos.com.au/restaurants/vic", false},
		{"https://www.nandos.com.au/menu/peri-peri-chicken", false},
		{"", false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, isNandosRestaurantURL(tc.url), tc.url)
	}
}
