package models

import "time"

// Record is the untyped payload flowing through the pipeline. Parsers
// emit records with parser-defined keys; transformers replace them with
// the canonical Location field set. Storage sinks accept either.
type Record map[string]any

// Location is the normalized store-location record every transformer
// produces. Field names double as the Record keys and the storage
// column/JSON names.
type Location struct {
	BusinessID         string    `json:"business_id"`
	Brand              string    `json:"brand,omitempty"`
	BusinessName       string    `json:"business_name"`
	StreetAddress      string    `json:"street_address,omitempty"`
	Suburb             string    `json:"suburb,omitempty"`
	State              string    `json:"state,omitempty"`
	Postcode           string    `json:"postcode,omitempty"`
	DriveThru          bool      `json:"drive_thru"`
	ShoppingCentreName string    `json:"shopping_centre_name,omitempty"`
	SourceURL          string    `json:"source_url,omitempty"`
	Source             string    `json:"source"`
	ScrapedDate        time.Time `json:"scraped_date"`
}

// Record converts the location into the pipeline payload form.
func (l Location) Record() Record {
	r := Record{
		"business_id":   l.BusinessID,
		"business_name": l.BusinessName,
		"drive_thru":    l.DriveThru,
		"source":        l.Source,
		"scraped_date":  l.ScrapedDate,
	}
	if l.Brand != "" {
		r["brand"] = l.Brand
	}
	if l.StreetAddress != "" {
		r["street_address"] = l.StreetAddress
	}
	if l.Suburb != "" {
		r["suburb"] = l.Suburb
	}
	if l.State != "" {
		r["state"] = l.State
	}
	if l.Postcode != "" {
		r["postcode"] = l.Postcode
	}
	if l.ShoppingCentreName != "" {
		r["shopping_centre_name"] = l.ShoppingCentreName
	}
	if l.SourceURL != "" {
		r["source_url"] = l.SourceURL
	}
	return r
}

// String returns the string value under key, or "".
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Bool returns the bool value under key, or false.
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Time returns the time value under key. String values are parsed as
// RFC 3339, the wire form datetimes take in JSON records.
func (r Record) Time(key string) time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return v
	case string:
		t, _ := time.Parse(time.RFC3339Nano, v)
		return t
	}
	return time.Time{}
}
