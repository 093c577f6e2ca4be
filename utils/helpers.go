package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"strings"
)

// GenerateBusinessID derives the stable natural key for a location from
// its name and single-line address. Case and surrounding whitespace do
// not affect the result, so repeated scrapes of the same store upsert
// onto one row.
func GenerateBusinessID(name, address string) string {
	data := strings.ToLower(strings.TrimSpace(name)) + "|" + strings.ToLower(strings.TrimSpace(address))
	sum := sha1.Sum([]byte(data))
	return hex.EncodeToString(sum[:])
}

// UniqueStrings returns a new slice with duplicate entries removed,
// preserving first-seen order.
func UniqueStrings(slice []string) []string {
	seen := make(map[string]bool)
	unique := []string{}
	for _, entry := range slice {
		if !seen[entry] {
			seen[entry] = true
			unique = append(unique, entry)
		}
	}
	return unique
}

// CleanURL strips query parameters, fragments and a trailing slash so
// store URLs compare equal across scrapes.
func CleanURL(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	return parsed.String()
}
