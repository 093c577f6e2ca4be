// Package orchestrator drives the fetch→parse→transform→store pipeline
// for every enabled site under a global concurrency bound.
package orchestrator

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"StoreScraper/internal/models"
	"StoreScraper/internal/plugin"
	"StoreScraper/pkg/config"
	"StoreScraper/utils"
)

// Orchestrator schedules one scrape task per enabled site, capped by a
// counting semaphore. Failures never cross site or entry-URL
// boundaries: each stage is isolated and logged where it happens.
type Orchestrator struct {
	cfg     *config.Config
	factory *plugin.Factory
	sem     chan struct{}
}

// New builds an orchestrator for the given configuration.
func New(cfg *config.Config) *Orchestrator {
	workers := utils.GetOptimalWorkerCount(cfg.GlobalSettings.MaxConcurrentWorkers)
	if cfg.GlobalSettings.MaxConcurrentWorkers == "" {
		workers = 5
	}
	return &Orchestrator{
		cfg:     cfg,
		factory: plugin.NewFactory(),
		sem:     make(chan struct{}, workers),
	}
}

// Run scrapes every enabled site concurrently and returns once all site
// tasks have completed, successfully or not.
func (o *Orchestrator) Run(ctx context.Context) {
	log.Info("Orchestrator starting")

	var wg sync.WaitGroup
	for siteName, siteConfig := range o.cfg.Websites {
		if !siteConfig.IsEnabled() {
			log.WithField("site", siteName).Info("site is disabled, skipping")
			continue
		}
		wg.Add(1)
		go func(name string, site config.SiteConfig) {
			defer wg.Done()
			o.sem <- struct{}{}
			defer func() { <-o.sem }()
			o.scrapeSite(ctx, name, site)
		}(siteName, siteConfig)
	}
	wg.Wait()

	log.Info("Orchestrator finished")
}

// scrapeSite runs the whole pipeline for one site. Plugin loading
// failures abort the site; entry-URL failures abort only that URL.
func (o *Orchestrator) scrapeSite(ctx context.Context, siteName string, site config.SiteConfig) {
	logger := log.WithField("site", siteName)
	logger.Info("starting scrape")

	plugins, err := o.factory.CreatePluginsForSite(siteName, site)
	if err != nil {
		logger.WithError(err).Error("failed to load plugins, skipping site")
		return
	}
	defer o.closePlugins(siteName, plugins)

	if plugins.SelfDriving {
		// Self-driving parsers manage all fetching themselves; one
		// synthetic invocation with no initial content.
		o.scrapeURL(ctx, siteName, "", site, plugins)
	} else {
		if len(site.StartURLs) == 0 {
			logger.Warn("no start URLs configured")
			return
		}
		for _, url := range site.StartURLs {
			o.scrapeURL(ctx, siteName, url, site, plugins)
		}
	}

	logger.Info("finished scrape")
}

// scrapeURL runs fetch, parse, optional transform, and store for a
// single entry URL. Every stage failure ends the URL's pipeline without
// touching sibling URLs.
func (o *Orchestrator) scrapeURL(ctx context.Context, siteName, url string, site config.SiteConfig, plugins *plugin.SitePlugins) {
	logger := log.WithFields(log.Fields{"site": siteName, "url": url})

	var content, contentType string
	if url != "" {
		resp, err := plugins.Fetcher.Fetch(ctx, url, site.Config.FetcherOptions)
		if err != nil {
			logger.WithError(err).Error("fetch failed, skipping URL")
			return
		}
		if resp == nil || resp.Body == "" {
			logger.Error("fetch returned no content, skipping URL")
			return
		}
		content, contentType = resp.Body, resp.ContentType
	}

	records, err := plugins.Parser.Parse(ctx, content, contentType, site.Config.ParserOptions)
	if err != nil {
		logger.WithError(err).Error("parser failed, skipping URL")
		return
	}
	if len(records) == 0 {
		logger.Info("parser found no data")
		return
	}
	logger.Infof("parser returned %d raw items", len(records))

	toStore := records
	if plugins.Transformer != nil {
		transformed, err := plugins.Transformer.Transform(ctx, records, site.Config.TransformerOptions, siteName)
		if err != nil {
			logger.WithError(err).Error("transformer failed, skipping URL")
			return
		}
		if len(transformed) == 0 {
			logger.Info("transformer returned no data")
			return
		}
		logger.Infof("transformer produced %d items", len(transformed))
		toStore = transformed
	}

	o.store(ctx, siteName, site, plugins.Storages, toStore)
}

// store fans the batch out to every sink concurrently. A sink failure
// is logged and never affects its siblings.
func (o *Orchestrator) store(ctx context.Context, siteName string, site config.SiteConfig, sinks []plugin.Storage, records []models.Record) {
	if len(sinks) == 0 {
		log.WithField("site", siteName).Warn("no storage plugins available, data not persisted")
		return
	}

	var wg sync.WaitGroup
	for _, sink := range sinks {
		wg.Add(1)
		go func(s plugin.Storage) {
			defer wg.Done()
			opts := site.StorageOptionsFor(storageName(s))
			if err := s.Save(ctx, records, opts); err != nil {
				log.WithFields(log.Fields{"site": siteName, "sink": storageName(s)}).
					WithError(err).Error("storage save failed")
			}
		}(sink)
	}
	wg.Wait()
	log.WithField("site", siteName).Infof("stored %d records across %d sinks", len(records), len(sinks))
}

// closePlugins releases plugin resources at site completion. Close
// failures are logged, never raised.
func (o *Orchestrator) closePlugins(siteName string, plugins *plugin.SitePlugins) {
	for _, sink := range plugins.Storages {
		if closer, ok := sink.(plugin.Closer); ok {
			if err := closer.Close(); err != nil {
				log.WithFields(log.Fields{"site": siteName, "sink": storageName(sink)}).
					WithError(err).Error("storage close failed")
			}
		}
	}
	if closer, ok := plugins.Fetcher.(plugin.Closer); ok {
		if err := closer.Close(); err != nil {
			log.WithField("site", siteName).WithError(err).Error("fetcher close failed")
		}
	}
}

type named interface{ Name() string }

// storageName keys a sink instance back to its storage_options block.
func storageName(s plugin.Storage) string {
	if n, ok := s.(named); ok {
		return n.Name()
	}
	return ""
}
