// Package server exposes the scraped location store over a small
// read-only HTTP API.
package server

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"StoreScraper/internal/storage"
)

// Pagination carries the paging totals of one listing response.
type Pagination struct {
	TotalLocations int `json:"total_locations"`
	TotalPages     int `json:"total_pages"`
	CurrentPage    int `json:"current_page"`
	Limit          int `json:"limit"`
}

// LocationsResponse is the envelope of GET /locations.
type LocationsResponse struct {
	Data       []storage.StoredLocation `json:"data"`
	Pagination Pagination               `json:"pagination"`
}

// Start registers the handlers and blocks serving on addr.
func Start(store *storage.Store, addr string) error {
	http.HandleFunc("/locations", locationsHandler(store))

	log.Infof("starting API server on %s", addr)
	log.Infof("endpoint available at http://localhost%s/locations", addr)
	return http.ListenAndServe(addr, nil)
}

func locationsHandler(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		queryParams := r.URL.Query()
		page, _ := strconv.Atoi(queryParams.Get("page"))
		if page < 1 {
			page = 1
		}
		limit, _ := strconv.Atoi(queryParams.Get("limit"))
		if limit < 1 {
			limit = 20
		}

		filters := storage.LocationFilters{
			Source: queryParams.Get("source"),
			State:  queryParams.Get("state"),
			Status: queryParams.Get("status"),
			Limit:  limit,
			Offset: (page - 1) * limit,
		}

		total, err := store.CountLocations(filters)
		if err != nil {
			log.WithError(err).Error("failed to count locations")
			http.Error(w, "Failed to count locations", http.StatusInternalServerError)
			return
		}

		locations, err := store.GetLocations(filters)
		if err != nil {
			log.WithError(err).Error("failed to get locations")
			http.Error(w, "Failed to get locations", http.StatusInternalServerError)
			return
		}
		if locations == nil {
			locations = []storage.StoredLocation{}
		}

		response := LocationsResponse{
			Data: locations,
			Pagination: Pagination{
				TotalLocations: total,
				TotalPages:     int(math.Ceil(float64(total) / float64(limit))),
				CurrentPage:    page,
				Limit:          limit,
			},
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}
