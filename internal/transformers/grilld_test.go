package transformers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StoreScraper/internal/models"
	"StoreScraper/pkg/config"
)

func TestGrilldTransformer(t *testing.T) {
	records := []models.Record{
		{
			"name":       "Richmond",
			"address":    "260 Bridge Rd, Richmond VIC 3121",
			"drive_thru": true,
			"source_url": "https://grilld.com.au/restaurants/richmond",
		},
		{
			// Nameless records are dropped.
			"address": "1 Somewhere St, Carlton VIC 3053",
		},
	}

	out, err := (&GrilldTransformer{}).Transform(context.Background(), records, config.TransformerOptions{}, "grilld")
	require.NoError(t, err)
	require.Len(t, out, 1)

	got := out[0]
	assert.Equal(t, "Grill'd Richmond", got["business_name"])
	assert.Equal(t, "Grill'd", got["brand"])
	assert.Equal(t, "260 Bridge Rd", got["street_address"])
	assert.Equal(t, "Richmond", got["suburb"])
	assert.Equal(t, "VIC", got["state"])
	assert.Equal(t, "3121", got["postcode"])
	assert.Equal(t, true, got["drive_thru"])
	assert.Equal(t, "grilld", got["source"])
	assert.NotEmpty(t, got["business_id"])
	assert.False(t, got.Time("scraped_date").IsZero())
}

func TestGrilldTransformerEmptyInput(t *testing.T) {
	out, err := (&GrilldTransformer{}).Transform(context.Background(), nil, config.TransformerOptions{}, "grilld")
	require.NoError(t, err)
	assert.Empty(t, out)
}
