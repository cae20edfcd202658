package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/farmsight/farmsight/internal/advisory"
)

// indexEntry is one persisted unit as seen by the in-memory index. The
// filename remains the only durable index; this cache is rebuilt from the
// directory listing at startup so reads don't re-list and re-parse it.
type indexEntry struct {
	lat    float64
	lon    float64
	tsMill int64
	key    string
}

// SnapshotStore persists composite records as timestamped, location-keyed
// JSON files. Units are immutable once written: a save never overwrites, it
// produces a new key.
type SnapshotStore struct {
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	index []indexEntry
}

// NewSnapshotStore opens (creating if needed) the data directory and rebuilds
// the location index from the files present.
func NewSnapshotStore(dir string, logger *zap.Logger) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &SnapshotStore{dir: dir, logger: logger}

	keys, err := s.ListAll()
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		if entry, ok := parseKey(key); ok {
			s.index = append(s.index, entry)
		}
	}
	logger.Info("snapshot index rebuilt", zap.Int("units", len(s.index)), zap.String("dir", dir))
	return s, nil
}

var keySanitizer = regexp.MustCompile(`[^0-9.-]`)

func sanitizeCoord(v float64) string {
	return keySanitizer.ReplaceAllString(strconv.FormatFloat(v, 'f', -1, 64), "")
}

// parseKey decodes "{lat}_{lon}_{millis}.json" into an index entry. Legacy
// report files share the directory but stay out of the location index.
func parseKey(key string) (indexEntry, bool) {
	if strings.HasSuffix(key, ".report.json") {
		return indexEntry{}, false
	}
	name := strings.TrimSuffix(key, ".json")
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return indexEntry{}, false
	}

	lat, err1 := strconv.ParseFloat(parts[0], 64)
	lon, err2 := strconv.ParseFloat(parts[1], 64)
	ts, err3 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return indexEntry{}, false
	}
	return indexEntry{lat: lat, lon: lon, tsMill: ts, key: key}, true
}

// Save writes the snapshot as pretty-printed JSON under a fresh key encoding
// sanitized coordinates and a millisecond timestamp, and returns that key.
func (s *SnapshotStore) Save(snap advisory.Snapshot, lat, lon float64) (string, error) {
	return s.save(snap, lat, lon, ".json", true)
}

// SaveRaw persists an arbitrary payload next to the snapshots. Used by the
// legacy pipeline, which writes its own report files. Reports carry a
// distinct suffix and never enter the location index.
func (s *SnapshotStore) SaveRaw(data any, lat, lon float64) (string, error) {
	return s.save(data, lat, lon, ".report.json", false)
}

func (s *SnapshotStore) save(data any, lat, lon float64, ext string, indexed bool) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}

	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	// Claim the key with an exclusive create, bumping the timestamp on each
	// collision: two saves in the same millisecond must not overwrite each
	// other, even when racing.
	now := time.Now().UnixMilli()
	var key string
	var f *os.File
	for {
		key = fmt.Sprintf("%s_%s_%d%s", sanitizeCoord(lat), sanitizeCoord(lon), now, ext)
		f, err = os.OpenFile(filepath.Join(s.dir, key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("creating snapshot file: %w", err)
		}
		now++
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing snapshot file: %w", err)
	}

	if indexed {
		s.mu.Lock()
		s.index = append(s.index, indexEntry{lat: lat, lon: lon, tsMill: now, key: key})
		s.mu.Unlock()
	}

	s.logger.Info("snapshot saved", zap.String("key", key), zap.Int("bytes", len(content)))
	return key, nil
}

// ListAll enumerates the storage keys of every persisted unit.
func (s *SnapshotStore) ListAll() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing data directory: %w", err)
	}

	var keys []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			keys = append(keys, e.Name())
		}
	}
	return keys, nil
}

// Read deserializes one unit. Absent or malformed units fail with a read error.
func (s *SnapshotStore) Read(key string) (advisory.Snapshot, error) {
	var snap advisory.Snapshot

	content, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		return snap, fmt.Errorf("reading snapshot %s: %w", key, err)
	}
	if err := json.Unmarshal(content, &snap); err != nil {
		return snap, fmt.Errorf("decoding snapshot %s: %w", key, err)
	}
	return snap, nil
}

// Delete removes one unit and drops it from the index.
func (s *SnapshotStore) Delete(key string) error {
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", key, err)
	}
	s.dropFromIndex(key)
	return nil
}

func (s *SnapshotStore) dropFromIndex(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.index {
		if e.key == key {
			s.index = append(s.index[:i], s.index[i+1:]...)
			return
		}
	}
}

// LatestForLocation returns the newest snapshot whose encoded coordinates
// match (lat, lon) within tolerance on both axes, or (nil, nil) when none
// exists. That nil is a routine "no data yet" signal, distinct from an I/O
// failure. Units that vanished or no longer parse are skipped silently and
// evicted from the index.
func (s *SnapshotStore) LatestForLocation(lat, lon float64) (*advisory.Snapshot, error) {
	s.mu.Lock()
	var matches []indexEntry
	for _, e := range s.index {
		if (advisory.Location{Lat: e.lat, Lon: e.lon}).Matches(lat, lon) {
			matches = append(matches, e)
		}
	}
	s.mu.Unlock()

	if len(matches) == 0 {
		return nil, nil
	}

	// Newest first; same-millisecond saves tie-break on key descending so
	// "latest" is deterministic.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].tsMill != matches[j].tsMill {
			return matches[i].tsMill > matches[j].tsMill
		}
		return matches[i].key > matches[j].key
	})

	for _, m := range matches {
		snap, err := s.Read(m.key)
		if err != nil {
			s.logger.Warn("skipping unreadable snapshot", zap.String("key", m.key), zap.Error(err))
			s.dropFromIndex(m.key)
			continue
		}
		return &snap, nil
	}
	return nil, nil
}
