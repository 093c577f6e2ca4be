package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"StoreScraper/internal/models"
	"StoreScraper/internal/plugin"
	"StoreScraper/pkg/config"
)

// dsn opens the file with a busy timeout so sinks for different sites
// sharing one database wait out each other's write locks instead of
// failing with SQLITE_BUSY.
func dsn(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)"
}

const createLocationsTableSQL = `
CREATE TABLE IF NOT EXISTS locations (
	"business_id" TEXT NOT NULL PRIMARY KEY,
	"brand" TEXT,
	"business_name" TEXT NOT NULL,
	"street_address" TEXT,
	"suburb" TEXT,
	"state" TEXT,
	"postcode" TEXT,
	"drive_thru" BOOLEAN DEFAULT 0,
	"shopping_centre_name" TEXT,
	"source_url" TEXT,
	"source" TEXT NOT NULL,
	"status" TEXT DEFAULT 'active',
	"missed_count" INTEGER DEFAULT 0,
	"scraped_date" DATETIME,
	"first_seen" DATETIME,
	"last_seen" DATETIME
);`

// SQLiteStorage upserts location records keyed by business_id and
// tracks a store lifecycle: a row reappearing in a scrape is reset to
// active, a known row missing from a scrape of its source accumulates
// missed_count at close time, and past the configured threshold its
// status flips to closed.
type SQLiteStorage struct {
	mu   sync.Mutex
	db   *sql.DB
	opts config.StorageOptions

	// business IDs saved this run, per source. The close-time sweep
	// compares them against what the table already knows.
	seen map[string]map[string]struct{}
}

// NewSQLiteStorage builds an unopened sink. The database is opened on
// first save using that save's options.
func NewSQLiteStorage() *SQLiteStorage {
	return &SQLiteStorage{seen: make(map[string]map[string]struct{})}
}

func init() {
	plugin.RegisterStorage("SQLiteStorage", func() (plugin.Storage, error) {
		return NewSQLiteStorage(), nil
	})
}

// Name keys this sink's block in storage_options.
func (s *SQLiteStorage) Name() string { return "SQLiteStorage" }

// ensureDB lazily opens the database on first save. Callers hold mu.
func (s *SQLiteStorage) ensureDB(opts config.StorageOptions) error {
	if s.db != nil {
		return nil
	}
	if opts.Path == "" {
		return fmt.Errorf("SQLiteStorage requires a path")
	}
	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(opts.Path))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(createLocationsTableSQL); err != nil {
		db.Close()
		return fmt.Errorf("creating locations table: %w", err)
	}

	s.db = db
	s.opts = opts
	return nil
}

func (s *SQLiteStorage) Save(ctx context.Context, records []models.Record, opts config.StorageOptions) error {
	if len(records) == 0 {
		log.Info("no data provided to save to SQLite")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDB(opts); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
	INSERT INTO locations (
		business_id, brand, business_name, street_address, suburb, state,
		postcode, drive_thru, shopping_centre_name, source_url, source,
		status, missed_count, scraped_date, first_seen, last_seen
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'active', 0, ?, ?, ?)
	ON CONFLICT(business_id) DO UPDATE SET
		brand=excluded.brand,
		business_name=excluded.business_name,
		street_address=excluded.street_address,
		suburb=excluded.suburb,
		state=excluded.state,
		postcode=excluded.postcode,
		drive_thru=excluded.drive_thru,
		shopping_centre_name=excluded.shopping_centre_name,
		source_url=excluded.source_url,
		source=excluded.source,
		status='active',
		missed_count=0,
		scraped_date=excluded.scraped_date,
		last_seen=excluded.last_seen;
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	saved := 0
	for _, r := range records {
		businessID := r.String("business_id")
		if businessID == "" {
			log.Warnf("skipping item with missing business_id: %s", r.String("business_name"))
			continue
		}
		scraped := r.Time("scraped_date")
		if scraped.IsZero() {
			scraped = now
		}

		if _, err := stmt.ExecContext(ctx,
			businessID, r.String("brand"), r.String("business_name"),
			r.String("street_address"), r.String("suburb"), r.String("state"),
			r.String("postcode"), r.Bool("drive_thru"), r.String("shopping_centre_name"),
			r.String("source_url"), r.String("source"),
			scraped, now, now,
		); err != nil {
			return fmt.Errorf("upserting location %s: %w", businessID, err)
		}

		source := r.String("source")
		if s.seen[source] == nil {
			s.seen[source] = make(map[string]struct{})
		}
		s.seen[source][businessID] = struct{}{}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	log.Infof("saved %d locations to SQLite database", saved)
	return nil
}

// Close runs the missing-location sweep and releases the connection.
// Rows of a swept source that did not appear in this run gain a miss;
// rows past the threshold are marked closed.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	defer func() {
		s.db.Close()
		s.db = nil
	}()

	for source, ids := range s.seen {
		if len(ids) == 0 {
			continue
		}
		placeholders := make([]string, 0, len(ids))
		args := []any{source}
		for id := range ids {
			placeholders = append(placeholders, "?")
			args = append(args, id)
		}

		query := fmt.Sprintf(`
			UPDATE locations SET missed_count = missed_count + 1
			WHERE source = ? AND status = 'active' AND business_id NOT IN (%s)`,
			strings.Join(placeholders, ","))
		result, err := s.db.Exec(query, args...)
		if err != nil {
			return fmt.Errorf("sweeping missed locations for %s: %w", source, err)
		}
		if missed, _ := result.RowsAffected(); missed > 0 {
			log.Infof("%d known %s locations missing from this scrape", missed, source)
		}

		if s.opts.MissingThreshold > 0 {
			result, err := s.db.Exec(`
				UPDATE locations SET status = 'closed'
				WHERE source = ? AND status = 'active' AND missed_count >= ?`,
				source, s.opts.MissingThreshold)
			if err != nil {
				return fmt.Errorf("closing missed locations for %s: %w", source, err)
			}
			if closed, _ := result.RowsAffected(); closed > 0 {
				log.Infof("marked %d %s locations closed after %d missed scrapes",
					closed, source, s.opts.MissingThreshold)
			}
		}
	}
	s.seen = make(map[string]map[string]struct{})
	return nil
}
