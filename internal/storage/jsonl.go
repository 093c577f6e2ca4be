package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"

	"StoreScraper/internal/models"
	"StoreScraper/internal/plugin"
	"StoreScraper/pkg/config"
)

// JSONLStorage appends records to a newline-delimited JSON file, one
// object per line. Concurrent saves against the same sink are
// serialized by a mutex so lines never interleave.
type JSONLStorage struct {
	mu sync.Mutex
}

func init() {
	plugin.RegisterStorage("JSONLStorage", func() (plugin.Storage, error) {
		return &JSONLStorage{}, nil
	})
}

// Name keys this sink's block in storage_options.
func (s *JSONLStorage) Name() string { return "JSONLStorage" }

func (s *JSONLStorage) Save(ctx context.Context, records []models.Record, opts config.StorageOptions) error {
	if len(records) == 0 {
		log.Info("no data provided to save to JSONL")
		return nil
	}
	if opts.OutputFile == "" {
		return fmt.Errorf("JSONLStorage requires an output_file")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(opts.OutputFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	file, err := os.OpenFile(opts.OutputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening output file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}

	log.Infof("appended %d records to %s", len(records), opts.OutputFile)
	return nil
}
