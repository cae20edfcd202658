package advisory

import (
	"context"
)

// ContentFetcher abstracts the search/unlock content-retrieval provider.
// Implementations degrade to a placeholder payload when their routing zones
// are not configured; they do not error for that case.
type ContentFetcher interface {
	SearchContent(ctx context.Context, query string) (RawPayload, error)
}

// WeatherFetcher abstracts the current-weather provider.
type WeatherFetcher interface {
	Current(ctx context.Context, lat, lon float64) (WeatherReport, error)
}

// SnapshotStore is the contract the file-backed store must satisfy for the
// aggregator. The full store exposes more (list/read/delete); the service
// only persists and reads back the newest unit per location.
type SnapshotStore interface {
	// Save persists a new, uniquely keyed unit and returns its storage key.
	Save(snap Snapshot, lat, lon float64) (string, error)
	// LatestForLocation returns the newest snapshot within tolerance of
	// (lat, lon), or (nil, nil) when none exists. A nil snapshot is the
	// routine "no data yet" signal, not a failure.
	LatestForLocation(lat, lon float64) (*Snapshot, error)
}
