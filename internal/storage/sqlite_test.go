package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StoreScraper/internal/models"
	"StoreScraper/pkg/config"
)

func locationRecord(id, name string) models.Record {
	return models.Record{
		"business_id":   id,
		"brand":         "Grill'd",
		"business_name": name,
		"suburb":        "Richmond",
		"state":         "VIC",
		"postcode":      "3121",
		"source":        "grilld",
		"scraped_date":  time.Now().UTC().Format(time.RFC3339Nano),
	}
}

func TestSQLiteStorageUpsert(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "locations.db")
	opts := config.StorageOptions{Path: dbPath}
	ctx := context.Background()

	sink := NewSQLiteStorage()
	require.NoError(t, sink.Save(ctx, []models.Record{locationRecord("a1", "Grill'd Richmond")}, opts))

	updated := locationRecord("a1", "Grill'd Richmond")
	updated["street_address"] = "260 Bridge Rd"
	require.NoError(t, sink.Save(ctx, []models.Record{updated}, opts))
	require.NoError(t, sink.Close())

	store, err := OpenStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	count, err := store.CountLocations(LocationFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, count, "resaving the same business_id updates in place")

	locations, err := store.GetLocations(LocationFilters{})
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "260 Bridge Rd", locations[0].StreetAddress)
	assert.Equal(t, "active", locations[0].Status)
	assert.Zero(t, locations[0].MissedCount)
}

func TestSQLiteStorageMissingLifecycle(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "locations.db")
	opts := config.StorageOptions{Path: dbPath, MissingThreshold: 1}
	ctx := context.Background()

	sink := NewSQLiteStorage()
	require.NoError(t, sink.Save(ctx, []models.Record{
		locationRecord("a1", "Grill'd Richmond"),
		locationRecord("b2", "Grill'd Southbank"),
	}, opts))
	require.NoError(t, sink.Close())

	// A later run sees only Richmond. Southbank gains a miss and, at the
	// configured threshold of one, flips to closed.
	sink = NewSQLiteStorage()
	require.NoError(t, sink.Save(ctx, []models.Record{locationRecord("a1", "Grill'd Richmond")}, opts))
	require.NoError(t, sink.Close())

	store, err := OpenStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	locations, err := store.GetLocations(LocationFilters{})
	require.NoError(t, err)
	require.Len(t, locations, 2)

	byID := map[string]StoredLocation{}
	for _, l := range locations {
		byID[l.BusinessID] = l
	}
	assert.Equal(t, "active", byID["a1"].Status)
	assert.Zero(t, byID["a1"].MissedCount)
	assert.Equal(t, "closed", byID["b2"].Status)
	assert.Equal(t, 1, byID["b2"].MissedCount)

	closed, err := store.CountLocations(LocationFilters{Status: "closed"})
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
}

func TestSQLiteStorageSkipsMissingBusinessID(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "locations.db")
	opts := config.StorageOptions{Path: dbPath}
	ctx := context.Background()

	sink := NewSQLiteStorage()
	require.NoError(t, sink.Save(ctx, []models.Record{
		locationRecord("a1", "Grill'd Richmond"),
		{"business_name": "No ID", "source": "grilld"},
	}, opts))
	require.NoError(t, sink.Close())

	store, err := OpenStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	count, err := store.CountLocations(LocationFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteStorageConcurrentSinksSharePath(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "locations.db")
	opts := config.StorageOptions{Path: dbPath}
	ctx := context.Background()

	// One sink per site, all writing the same database file, as the
	// shipped config does.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sink := NewSQLiteStorage()
			var records []models.Record
			for j := 0; j < 3; j++ {
				r := locationRecord(fmt.Sprintf("s%d-%d", i, j), fmt.Sprintf("Store %d-%d", i, j))
				r["source"] = fmt.Sprintf("src%d", i)
				records = append(records, r)
			}
			assert.NoError(t, sink.Save(ctx, records, opts))
			assert.NoError(t, sink.Close())
		}(i)
	}
	wg.Wait()

	store, err := OpenStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	count, err := store.CountLocations(LocationFilters{})
	require.NoError(t, err)
	assert.Equal(t, 12, count, "overlapping saves must not drop batches")

	active, err := store.CountLocations(LocationFilters{Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, 12, active)
}

func TestSQLiteStorageRequiresPath(t *testing.T) {
	err := NewSQLiteStorage().Save(context.Background(),
		[]models.Record{locationRecord("a1", "Grill'd Richmond")}, config.StorageOptions{})
	assert.Error(t, err)
}
