// Package fallback provides canned bunker data served when Discord is
// unreachable or rejects the configured credentials.
package fallback

import (
	"time"

	"github.com/raffaelramalhorosa/bunker-status/internal/models"
)

// Marker prefixes the source label of every canned snapshot.
const Marker = "Mock Data"

type entry struct {
	name   string
	active bool
	in     time.Duration
}

var entries = []entry{
	{"A1 Bunker", false, 48 * time.Hour},
	{"A3 Bunker", false, 12 * time.Hour},
	{"A4 Bunker", true, 30 * time.Minute},
	{"B0 Bunker", true, 15 * time.Minute},
	{"B1 Bunker", true, 5 * time.Minute},
	{"B2 Bunker", false, 18 * time.Hour},
	{"B3 Bunker", true, 45 * time.Minute},
	{"C0 Bunker", false, 10 * time.Hour},
	{"C1 Bunker", false, 3 * time.Hour},
	{"C3 Bunker", false, 6 * time.Hour},
	{"C4 Bunker", false, 9 * time.Hour},
	{"D1 Bunker", false, 6 * time.Hour},
	{"D2 Bunker", false, 8 * time.Hour},
	{"D4 Bunker", false, 18 * time.Hour},
	{"Z1 Bunker", false, 2 * time.Hour},
	{"Z2 Bunker", false, 2 * time.Hour},
	{"Z3 Bunker", false, 36 * time.Hour},
}

// Snapshot returns the canned data with timestamps relative to now and
// source set to "Mock Data (reason)".
func Snapshot(now time.Time, reason string) models.BunkerStatus {
	bunkers := make([]models.Bunker, len(entries))
	for i, e := range entries {
		bunkers[i] = models.Bunker{
			Name:      e.name,
			IsActive:  e.active,
			Timestamp: now.Add(e.in).UnixMilli(),
		}
	}
	return models.BunkerStatus{
		Bunkers:      bunkers,
		LastUpdate:   now.UnixMilli(),
		Source:       Marker + " (" + reason + ")",
		MessageCount: 3,
	}
}
