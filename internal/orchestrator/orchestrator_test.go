package orchestrator

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StoreScraper/internal/models"
	"StoreScraper/internal/plugin"
	"StoreScraper/pkg/config"

	_ "StoreScraper/internal/storage"
)

// trackingFetcher counts calls and observes peak concurrency.
type trackingFetcher struct {
	mu      sync.Mutex
	calls   int
	current int
	peak    int
	delay   time.Duration
	body    string
}

func (f *trackingFetcher) Fetch(ctx context.Context, url string, opts config.FetcherOptions) (*plugin.Response, error) {
	f.mu.Lock()
	f.calls++
	f.current++
	if f.current > f.peak {
		f.peak = f.current
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.current--
	f.mu.Unlock()

	body := f.body
	if body == "" {
		body = "<html></html>"
	}
	return &plugin.Response{Body: body, ContentType: "text/html"}, nil
}

func (f *trackingFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fixedParser returns a canned batch, or an error.
type fixedParser struct {
	records []models.Record
	err     error
	calls   atomic.Int32
}

func (p *fixedParser) Parse(ctx context.Context, content, contentType string, opts config.ParserOptions) ([]models.Record, error) {
	p.calls.Add(1)
	return p.records, p.err
}

// collectingStorage keeps every saved record in memory.
type collectingStorage struct {
	mu      sync.Mutex
	records []models.Record
}

func (s *collectingStorage) Save(ctx context.Context, records []models.Record, opts config.StorageOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

func (s *collectingStorage) saved() []models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Record(nil), s.records...)
}

func registerSite(fetcherName string, fetcher plugin.Fetcher, parserName string, parser plugin.Parser, storageName string, sink plugin.Storage) {
	plugin.RegisterFetcher(fetcherName, func(config.FetcherOptions) (plugin.Fetcher, error) {
		return fetcher, nil
	})
	plugin.RegisterParser(parserName, plugin.ParserEntry{New: func() plugin.Parser { return parser }})
	if storageName != "" {
		plugin.RegisterStorage(storageName, func() (plugin.Storage, error) { return sink, nil })
	}
}

func TestDisabledSiteIsInert(t *testing.T) {
	fetcher := &trackingFetcher{}
	parser := &fixedParser{}
	registerSite("disabledFetcher", fetcher, "disabledParser", parser, "", nil)

	disabled := false
	cfg := &config.Config{
		Websites: map[string]config.SiteConfig{
			"offsite": {
				Enabled:   &disabled,
				Fetcher:   "disabledFetcher",
				Parser:    "disabledParser",
				StartURLs: []string{"https://example.com"},
			},
		},
	}

	New(cfg).Run(context.Background())

	assert.Zero(t, fetcher.callCount(), "disabled site must trigger no fetches")
	assert.Zero(t, parser.calls.Load(), "disabled site must trigger no parses")
}

func TestConcurrencyBound(t *testing.T) {
	fetcher := &trackingFetcher{delay: 30 * time.Millisecond}
	parser := &fixedParser{}
	registerSite("boundFetcher", fetcher, "boundParser", parser, "", nil)

	sites := map[string]config.SiteConfig{}
	for _, name := range []string{"s1", "s2", "s3", "s4", "s5", "s6"} {
		sites[name] = config.SiteConfig{
			Fetcher:   "boundFetcher",
			Parser:    "boundParser",
			StartURLs: []string{"https://example.com/" + name},
		}
	}
	cfg := &config.Config{
		GlobalSettings: config.GlobalSettings{MaxConcurrentWorkers: "2"},
		Websites:       sites,
	}

	New(cfg).Run(context.Background())

	assert.Equal(t, 6, fetcher.callCount())
	assert.LessOrEqual(t, fetcher.peak, 2, "no more than 2 sites may fetch at once")
}

func TestFaultIsolationAcrossSites(t *testing.T) {
	fetcher := &trackingFetcher{}
	brokenParser := &fixedParser{err: errors.New("selector rot")}
	record := models.Record{"name": "Store B", "address": "1 B St, Suburb VIC 3000"}
	workingParser := &fixedParser{records: []models.Record{record}}
	sink := &collectingStorage{}

	registerSite("isoFetcher", fetcher, "isoBrokenParser", brokenParser, "isoSink", sink)
	plugin.RegisterParser("isoWorkingParser", plugin.ParserEntry{New: func() plugin.Parser { return workingParser }})

	cfg := &config.Config{
		Websites: map[string]config.SiteConfig{
			"siteA": {
				Fetcher:   "isoFetcher",
				Parser:    "isoBrokenParser",
				Storage:   []string{"isoSink"},
				StartURLs: []string{"https://a.example.com"},
			},
			"siteB": {
				Fetcher:   "isoFetcher",
				Parser:    "isoWorkingParser",
				Storage:   []string{"isoSink"},
				StartURLs: []string{"https://b.example.com"},
			},
		},
	}

	New(cfg).Run(context.Background())

	saved := sink.saved()
	require.Len(t, saved, 1, "site A's parser failure must not block site B")
	assert.Equal(t, "Store B", saved[0]["name"])
}

func TestEndToEndRawRecordToJSONL(t *testing.T) {
	record := models.Record{"name": "Test", "address": "1 Main St, Suburb VIC 3000"}
	fetcher := &trackingFetcher{body: "<html><body>fixed</body></html>"}
	parser := &fixedParser{records: []models.Record{record}}
	registerSite("e2eFetcher", fetcher, "e2eParser", parser, "", nil)

	outFile := filepath.Join(t.TempDir(), "out.jsonl")
	cfg := &config.Config{
		Websites: map[string]config.SiteConfig{
			"e2esite": {
				Fetcher:   "e2eFetcher",
				Parser:    "e2eParser",
				Storage:   []string{"JSONLStorage"},
				StartURLs: []string{"https://example.com/locations"},
				Config: config.SiteOptions{
					StorageOptions: map[string]config.StorageOptions{
						"JSONLStorage": {OutputFile: outFile},
					},
				},
			},
		},
	}

	New(cfg).Run(context.Background())

	file, err := os.Open(outFile)
	require.NoError(t, err)
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 1, "exactly one record line expected")

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, map[string]any{
		"name":    "Test",
		"address": "1 Main St, Suburb VIC 3000",
	}, got, "raw record must pass through without added fields")
}

func TestSelfDrivingParserSingleInvocation(t *testing.T) {
	fetcher := &trackingFetcher{}
	parser := &fixedParser{}
	plugin.RegisterFetcher("sdFetcher", func(config.FetcherOptions) (plugin.Fetcher, error) {
		return fetcher, nil
	})
	plugin.RegisterParser("sdParser", plugin.ParserEntry{
		NewWithFetcher: func(f plugin.Fetcher) plugin.Parser { return parser },
		SelfDriving:    true,
	})

	cfg := &config.Config{
		Websites: map[string]config.SiteConfig{
			"sdsite": {
				Fetcher:   "sdFetcher",
				Parser:    "sdParser",
				StartURLs: []string{"https://a.example.com", "https://b.example.com"},
			},
		},
	}

	New(cfg).Run(context.Background())

	assert.Equal(t, int32(1), parser.calls.Load(), "self-driving parser is invoked once")
	assert.Zero(t, fetcher.callCount(), "orchestrator must not fetch for a self-driving parser")
}

func TestEmptyTransformAbortsStorage(t *testing.T) {
	record := models.Record{"name": "Store", "address": "1 St"}
	fetcher := &trackingFetcher{}
	parser := &fixedParser{records: []models.Record{record}}
	sink := &collectingStorage{}
	registerSite("etFetcher", fetcher, "etParser", parser, "etSink", sink)
	plugin.RegisterTransformer("etEmptyTransformer", func(config.TransformerOptions) (plugin.Transformer, error) {
		return emptyTransformer{}, nil
	})

	cfg := &config.Config{
		Websites: map[string]config.SiteConfig{
			"etsite": {
				Fetcher:     "etFetcher",
				Parser:      "etParser",
				Transformer: "etEmptyTransformer",
				Storage:     []string{"etSink"},
				StartURLs:   []string{"https://example.com"},
			},
		},
	}

	New(cfg).Run(context.Background())

	assert.Empty(t, sink.saved(), "an empty transform result must abort storage")
}

type emptyTransformer struct{}

func (emptyTransformer) Transform(context.Context, []models.Record, config.TransformerOptions, string) ([]models.Record, error) {
	return nil, nil
}

// failingStorage rejects every save.
type failingStorage struct{}

func (failingStorage) Save(context.Context, []models.Record, config.StorageOptions) error {
	return errors.New("disk full")
}

func TestFailedSinkDoesNotBlockSibling(t *testing.T) {
	record := models.Record{"name": "Store C", "address": "1 C St, Suburb VIC 3000"}
	fetcher := &trackingFetcher{}
	parser := &fixedParser{records: []models.Record{record}}
	good := &collectingStorage{}
	registerSite("fsFetcher", fetcher, "fsParser", parser, "fsGoodSink", good)
	plugin.RegisterStorage("fsBadSink", func() (plugin.Storage, error) {
		return failingStorage{}, nil
	})

	cfg := &config.Config{
		Websites: map[string]config.SiteConfig{
			"fssite": {
				Fetcher:   "fsFetcher",
				Parser:    "fsParser",
				Storage:   []string{"fsBadSink", "fsGoodSink"},
				StartURLs: []string{"https://example.com"},
			},
		},
	}

	New(cfg).Run(context.Background())

	saved := good.saved()
	require.Len(t, saved, 1, "a sibling sink's save failure must not block this sink")
	assert.Equal(t, "Store C", saved[0]["name"])
	assert.Equal(t, 1, fetcher.callCount(), "the site must still run to completion")
}

// stampingTransformer lowercases business_name and stamps source with
// the site name, so stored output is distinguishable from raw input.
type stampingTransformer struct{}

func (stampingTransformer) Transform(ctx context.Context, records []models.Record, opts config.TransformerOptions, site string) ([]models.Record, error) {
	var out []models.Record
	for _, r := range records {
		out = append(out, models.Record{
			"business_name": strings.ToLower(r.String("business_name")),
			"source":        site,
		})
	}
	return out, nil
}

func TestTransformedRecordsAreStored(t *testing.T) {
	record := models.Record{"business_name": "Store ONE", "address": "1 St"}
	fetcher := &trackingFetcher{}
	parser := &fixedParser{records: []models.Record{record}}
	sink := &collectingStorage{}
	registerSite("txFetcher", fetcher, "txParser", parser, "txSink", sink)
	plugin.RegisterTransformer("txTransformer", func(config.TransformerOptions) (plugin.Transformer, error) {
		return stampingTransformer{}, nil
	})

	cfg := &config.Config{
		Websites: map[string]config.SiteConfig{
			"txsite": {
				Fetcher:     "txFetcher",
				Parser:      "txParser",
				Transformer: "txTransformer",
				Storage:     []string{"txSink"},
				StartURLs:   []string{"https://example.com"},
			},
		},
	}

	New(cfg).Run(context.Background())

	saved := sink.saved()
	require.Len(t, saved, 1)
	assert.Equal(t, "store one", saved[0].String("business_name"),
		"the sink must receive the transformed record, not the raw one")
	assert.Equal(t, "txsite", saved[0].String("source"))
}
