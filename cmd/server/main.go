package main

import (
	"flag"

	log "github.com/sirupsen/logrus"

	"StoreScraper/internal/server"
	"StoreScraper/internal/storage"
)

func main() {
	dbPath := flag.String("db", "data/locations.db", "Path to the SQLite location database")
	addr := flag.String("addr", ":8080", "Address to serve the API on")
	flag.Parse()

	store, err := storage.OpenStore(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open location store: %v", err)
	}
	defer store.Close()

	log.Info("Starting location API server...")
	if err := server.Start(store, *addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
