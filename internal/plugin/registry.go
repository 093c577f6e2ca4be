package plugin

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"StoreScraper/pkg/config"
)

// ErrNotFound is returned when a configured plugin name has no registry
// entry for its role.
var ErrNotFound = errors.New("plugin not found")

// LoadError wraps a failure to construct a registered plugin.
type LoadError struct {
	Role string
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s plugin %q: %v", e.Role, e.Name, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// FetcherFactory constructs a fetcher with its site-level default
// options.
type FetcherFactory func(defaults config.FetcherOptions) (Fetcher, error)

// ParserEntry describes one registered parser. Exactly one of New and
// NewWithFetcher is set; which one decides whether the factory injects
// the site's fetcher, replacing the constructor-signature introspection
// the registry descends from.
type ParserEntry struct {
	New            func() Parser
	NewWithFetcher func(f Fetcher) Parser

	// SelfDriving parsers ignore entry URLs and the initial fetch; the
	// orchestrator invokes them once with empty content.
	SelfDriving bool
}

// TransformerFactory constructs a transformer from its options. A
// returned error (for example a missing required API key) is fatal for
// the site.
type TransformerFactory func(opts config.TransformerOptions) (Transformer, error)

// StorageFactory constructs a storage sink.
type StorageFactory func() (Storage, error)

var (
	mu           sync.RWMutex
	fetchers     = map[string]FetcherFactory{}
	parsers      = map[string]ParserEntry{}
	transformers = map[string]TransformerFactory{}
	storages     = map[string]StorageFactory{}
)

// RegisterFetcher adds a fetcher constructor under name. Plugins
// register themselves from init, driver-style.
func RegisterFetcher(name string, f FetcherFactory) {
	mu.Lock()
	defer mu.Unlock()
	fetchers[name] = f
}

// RegisterParser adds a parser entry under name.
func RegisterParser(name string, e ParserEntry) {
	mu.Lock()
	defer mu.Unlock()
	parsers[name] = e
}

// RegisterTransformer adds a transformer constructor under name.
func RegisterTransformer(name string, f TransformerFactory) {
	mu.Lock()
	defer mu.Unlock()
	transformers[name] = f
}

// RegisterStorage adds a storage constructor under name.
func RegisterStorage(name string, f StorageFactory) {
	mu.Lock()
	defer mu.Unlock()
	storages[name] = f
}

// Factory resolves configured plugin names to instances for one site.
type Factory struct{}

// NewFactory returns a plugin factory over the process registry.
func NewFactory() *Factory { return &Factory{} }

// SitePlugins bundles the instances driving one site's scrape.
type SitePlugins struct {
	Fetcher     Fetcher
	Parser      Parser
	SelfDriving bool
	Transformer Transformer // nil when not configured
	Storages    []Storage
}

// CreateFetcher instantiates the site's fetcher with the site-level
// fetcher options as construction defaults.
func (f *Factory) CreateFetcher(site config.SiteConfig) (Fetcher, error) {
	if site.Fetcher == "" {
		return nil, fmt.Errorf("fetcher: %w (none configured)", ErrNotFound)
	}
	mu.RLock()
	factory, ok := fetchers[site.Fetcher]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("fetcher %q: %w", site.Fetcher, ErrNotFound)
	}
	fetcher, err := factory(site.Config.FetcherOptions)
	if err != nil {
		return nil, &LoadError{Role: "fetcher", Name: site.Fetcher, Err: err}
	}
	return fetcher, nil
}

// CreateParser instantiates the site's parser, injecting the fetcher
// only when the registry entry declares a fetcher-taking constructor.
func (f *Factory) CreateParser(site config.SiteConfig, fetcher Fetcher) (Parser, bool, error) {
	if site.Parser == "" {
		return nil, false, fmt.Errorf("parser: %w (none configured)", ErrNotFound)
	}
	mu.RLock()
	entry, ok := parsers[site.Parser]
	mu.RUnlock()
	if !ok {
		return nil, false, fmt.Errorf("parser %q: %w", site.Parser, ErrNotFound)
	}
	switch {
	case entry.NewWithFetcher != nil:
		if fetcher == nil {
			return nil, false, &LoadError{Role: "parser", Name: site.Parser,
				Err: errors.New("parser requires a fetcher but none was created")}
		}
		return entry.NewWithFetcher(fetcher), entry.SelfDriving, nil
	case entry.New != nil:
		return entry.New(), entry.SelfDriving, nil
	default:
		return nil, false, &LoadError{Role: "parser", Name: site.Parser,
			Err: errors.New("registry entry has no constructor")}
	}
}

// CreateTransformer instantiates the optional transformer. Returns
// (nil, nil) when the site configures none; a construction failure for a
// configured transformer is fatal for the site.
func (f *Factory) CreateTransformer(site config.SiteConfig) (Transformer, error) {
	if site.Transformer == "" {
		return nil, nil
	}
	mu.RLock()
	factory, ok := transformers[site.Transformer]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("transformer %q: %w", site.Transformer, ErrNotFound)
	}
	transformer, err := factory(site.Config.TransformerOptions)
	if err != nil {
		return nil, &LoadError{Role: "transformer", Name: site.Transformer, Err: err}
	}
	return transformer, nil
}

// CreateStoragePlugins instantiates every configured sink. A sink that
// fails to construct is logged and dropped; the site proceeds with the
// rest.
func (f *Factory) CreateStoragePlugins(siteName string, site config.SiteConfig) []Storage {
	var instances []Storage
	for _, name := range site.Storage {
		mu.RLock()
		factory, ok := storages[name]
		mu.RUnlock()
		if !ok {
			log.WithFields(log.Fields{"site": siteName, "plugin": name}).
				Error("storage plugin not registered, dropping sink")
			continue
		}
		storage, err := factory()
		if err != nil {
			log.WithFields(log.Fields{"site": siteName, "plugin": name}).
				WithError(err).Error("failed to instantiate storage plugin, dropping sink")
			continue
		}
		instances = append(instances, storage)
	}
	return instances
}

// CreatePluginsForSite resolves and constructs all plugins one site
// needs. Fetcher, parser and (configured) transformer failures are
// fatal; storage failures degrade to fewer sinks.
func (f *Factory) CreatePluginsForSite(siteName string, site config.SiteConfig) (*SitePlugins, error) {
	fetcher, err := f.CreateFetcher(site)
	if err != nil {
		return nil, fmt.Errorf("site %q: %w", siteName, err)
	}
	parser, selfDriving, err := f.CreateParser(site, fetcher)
	if err != nil {
		return nil, fmt.Errorf("site %q: %w", siteName, err)
	}
	transformer, err := f.CreateTransformer(site)
	if err != nil {
		return nil, fmt.Errorf("site %q: %w", siteName, err)
	}
	storagePlugins := f.CreateStoragePlugins(siteName, site)
	if len(site.Storage) > 0 && len(storagePlugins) == 0 {
		log.WithField("site", siteName).
			Warn("no storage plugins successfully instantiated, data will not be saved")
	}
	return &SitePlugins{
		Fetcher:     fetcher,
		Parser:      parser,
		SelfDriving: selfDriving,
		Transformer: transformer,
		Storages:    storagePlugins,
	}, nil
}
