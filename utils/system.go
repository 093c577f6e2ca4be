package utils

import (
	"strconv"

	"github.com/shirou/gopsutil/v3/cpu"
	log "github.com/sirupsen/logrus"
)

// GetOptimalWorkerCount determines the number of concurrent site workers
// based on config and system resources.
func GetOptimalWorkerCount(configValue string) int {
	// Manual override wins.
	if manual, err := strconv.Atoi(configValue); err == nil && manual > 0 {
		log.Debugf("Using manually configured number of workers: %d", manual)
		return manual
	}

	if configValue != "auto" && configValue != "" {
		log.Warnf("Invalid workers value '%s'. Defaulting to 'auto' mode.", configValue)
	}

	// Logical cores, because scraping is I/O bound and hyper-threading
	// helps rather than hurts.
	cores, err := cpu.Counts(true)
	if err != nil {
		log.Warn("Could not detect CPU cores. Falling back to 5 workers.")
		return 5
	}

	optimal := cores / 2
	if optimal < 1 {
		optimal = 1
	}
	if optimal > 16 {
		optimal = 16
	}
	log.Debugf("System has %d logical cores, using %d workers", cores, optimal)
	return optimal
}
