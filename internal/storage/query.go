package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"StoreScraper/internal/models"
)

// LocationFilters narrows a location listing query.
type LocationFilters struct {
	Source string
	State  string
	Status string
	Limit  int
	Offset int
}

// Store is the read side of the SQLite location database, used by the
// HTTP API.
type Store struct {
	db *sql.DB
}

// OpenStore opens an existing location database read-only callers
// query through.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(createLocationsTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating locations table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error { return s.db.Close() }

// StoredLocation adds the lifecycle columns to the canonical record.
type StoredLocation struct {
	models.Location
	Status      string    `json:"status"`
	MissedCount int       `json:"missed_count"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
}

func (f LocationFilters) where() (string, []any) {
	var conditions []string
	var args []any
	if f.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, f.Source)
	}
	if f.State != "" {
		conditions = append(conditions, "state = ?")
		args = append(args, f.State)
	}
	if f.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, f.Status)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// GetLocations lists locations matching the filters, newest first.
func (s *Store) GetLocations(filters LocationFilters) ([]StoredLocation, error) {
	query := `SELECT business_id, brand, business_name, street_address, suburb,
	                 state, postcode, drive_thru, shopping_centre_name, source_url,
	                 source, status, missed_count, scraped_date, first_seen, last_seen
	          FROM locations`
	where, args := filters.where()
	query += where + " ORDER BY scraped_date DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
		if filters.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filters.Offset)
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	var locations []StoredLocation
	for rows.Next() {
		var l StoredLocation
		var brand, street, suburb, state, postcode, centre, sourceURL sql.NullString
		if err := rows.Scan(
			&l.BusinessID, &brand, &l.BusinessName, &street, &suburb,
			&state, &postcode, &l.DriveThru, &centre, &sourceURL,
			&l.Source, &l.Status, &l.MissedCount, &l.ScrapedDate, &l.FirstSeen, &l.LastSeen,
		); err != nil {
			log.WithError(err).Error("error scanning location row")
			continue
		}
		l.Brand = brand.String
		l.StreetAddress = street.String
		l.Suburb = suburb.String
		l.State = state.String
		l.Postcode = postcode.String
		l.ShoppingCentreName = centre.String
		l.SourceURL = sourceURL.String
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// CountLocations counts the locations matching the filters.
func (s *Store) CountLocations(filters LocationFilters) (int, error) {
	where, args := filters.where()
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM locations"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting locations: %w", err)
	}
	return count, nil
}
