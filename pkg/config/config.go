package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// GlobalSettings holds process-wide scraper settings.
type GlobalSettings struct {
	// MaxConcurrentWorkers bounds how many sites are scraped at once.
	// A number, or "auto" to size from the CPU count.
	MaxConcurrentWorkers string `yaml:"max_concurrent_workers"`
	LogLevel             string `yaml:"log_level"`
	LogToFile            bool   `yaml:"log_to_file"`
}

// FetcherOptions configures a fetcher plugin. One struct covers both the
// HTTP and the browser fetcher; fields the given fetcher doesn't know
// about are simply unused.
type FetcherOptions struct {
	Headers        map[string]string `yaml:"headers"`
	TimeoutSeconds int               `yaml:"timeout"`     // default 30
	MaxRetries     int               `yaml:"max_retries"` // default 0 (no retry)
	RetryDelayMS   int               `yaml:"retry_delay_ms"`

	// ScraperAPI proxy routing (HTTP fetcher only).
	UseScraperAPI     bool              `yaml:"use_scraperapi"`
	ScraperAPIKey     string            `yaml:"scraperapi_key"`
	ScraperAPIOptions map[string]string `yaml:"scraperapi_options"`

	// Browser fetcher only.
	Headless        *bool  `yaml:"headless"` // default true
	UserAgent       string `yaml:"user_agent"`
	WaitForSelector string `yaml:"wait_for_selector"`
	WaitForLoadMS   int    `yaml:"wait_for_load_ms"` // settle time after navigation
}

// ParserOptions configures a parser plugin.
type ParserOptions struct {
	// Bound on a parser's own detail-page fan-out.
	MaxConcurrentRequests int `yaml:"max_concurrent_requests"`
	BatchSize             int `yaml:"batch_size"`

	// Options the parser forwards to its injected fetcher for detail
	// fetches; falls back to the site's fetcher_options when nil.
	DetailFetcherOptions *FetcherOptions `yaml:"detail_fetcher_options"`

	// Grid-search parsers (KFC).
	GridRows       int    `yaml:"grid_rows"`
	GridCols       int    `yaml:"grid_cols"`
	SearchRadiusKM int    `yaml:"search_radius_km"`
	SearchQuery    string `yaml:"search_query"`

	Headers map[string]string `yaml:"headers"`
}

// TransformerOptions configures a transformer plugin.
type TransformerOptions struct {
	APIKey string `yaml:"api_key"`
	Brand  string `yaml:"brand"`
}

// StorageOptions configures one storage sink instance.
type StorageOptions struct {
	OutputFile string `yaml:"output_file"` // JSONL sink
	Path       string `yaml:"path"`        // SQLite sink database file
	// Scrapes a known business_id may be absent from before its row is
	// marked closed. Zero means never close.
	MissingThreshold int `yaml:"missing_threshold"`
}

// SiteOptions nests the per-role option blocks of one site.
type SiteOptions struct {
	FetcherOptions     FetcherOptions            `yaml:"fetcher_options"`
	ParserOptions      ParserOptions             `yaml:"parser_options"`
	TransformerOptions TransformerOptions        `yaml:"transformer_options"`
	StorageOptions     map[string]StorageOptions `yaml:"storage_options"`
}

// SiteConfig describes one target brand/site.
type SiteConfig struct {
	Enabled     *bool       `yaml:"enabled"` // nil means enabled
	Fetcher     string      `yaml:"fetcher"`
	Parser      string      `yaml:"parser"`
	Transformer string      `yaml:"transformer"`
	Storage     []string    `yaml:"storage"`
	StartURLs   []string    `yaml:"start_urls"`
	Config      SiteOptions `yaml:"config"`
}

// IsEnabled reports whether the site should be scraped. Sites are
// enabled unless the config says otherwise.
func (s SiteConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// StorageOptionsFor returns the options block for a named sink.
func (s SiteConfig) StorageOptionsFor(name string) StorageOptions {
	return s.Config.StorageOptions[name]
}

// Config is the complete structure of the config.yaml file.
type Config struct {
	GlobalSettings GlobalSettings        `yaml:"global_settings"`
	Websites       map[string]SiteConfig `yaml:"websites"`
}

// envVarPattern matches ${NAME} and ${NAME:default} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:[^}]*)?\}`)

// expandEnv replaces ${VAR} and ${VAR:default} placeholders with values
// from the environment.
func expandEnv(raw string) string {
	return envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if value, ok := os.LookupEnv(groups[1]); ok {
			return value
		}
		if groups[2] != "" {
			return groups[2][1:] // strip the leading colon
		}
		return ""
	})
}

// LoadConfig reads and parses the YAML configuration file, expanding
// environment variable placeholders first.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config YAML: %w", err)
	}
	return &cfg, nil
}
