package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chessreview/engine/internal/logging"
)

// FormatVersion is bumped whenever the classification output format changes;
// entries written under an older version are treated as misses and dropped
// on read.
const FormatVersion = 3

// DefaultMaxEntries bounds the store when the configuration does not.
const DefaultMaxEntries = 20

// Entry is the persisted cache record for one game.
type Entry struct {
	Result        json.RawMessage `json:"result"`
	AccessedAt    int64           `json:"accessedAtEpochMs"`
	FormatVersion int             `json:"formatVersion"`

	// seq orders entries for eviction; AccessedAt has millisecond
	// resolution, too coarse to break ties between back-to-back writes.
	seq uint64
}

// snapshot is the on-disk layout: a single versioned map keyed by game id.
type snapshot struct {
	FormatVersion int               `json:"formatVersion"`
	Entries       map[string]*Entry `json:"entries"`
}

// Store is a bounded, versioned analysis-result cache with oldest-access
// eviction and an optional JSON snapshot on disk. Storage failures are
// logged and swallowed; analysis results are still returned to callers,
// just not persisted.
type Store struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	maxEntries int
	nextSeq    uint64
	path       string
	logger     logging.ContextLogger
}

// Open creates a store backed by the snapshot file at path. An empty path
// means memory-only. A missing or unreadable snapshot starts the store
// empty.
func Open(path string, maxEntries int, logger logging.ContextLogger) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	s := &Store{
		entries:    make(map[string]*Entry),
		maxEntries: maxEntries,
		path:       path,
		logger:     logger,
	}
	s.load()
	return s
}

// Load retrieves a cached result into out. A miss is reported for absent
// keys and for entries written under a stale format version; stale entries
// are deleted as a side effect. A hit refreshes the access timestamp.
func (s *Store) Load(gameID string, out interface{}) bool {
	if gameID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[gameID]
	if !ok {
		return false
	}
	if e.FormatVersion != FormatVersion {
		delete(s.entries, gameID)
		s.logger.Debug("dropped stale cache entry", "gameId", gameID, "version", e.FormatVersion)
		return false
	}
	if err := json.Unmarshal(e.Result, out); err != nil {
		delete(s.entries, gameID)
		s.logger.Warn("failed to decode cache entry, dropping", "gameId", gameID, "error", err)
		return false
	}
	e.AccessedAt = time.Now().UnixMilli()
	e.seq = s.nextSeqLocked()
	return true
}

// Save upserts a result under the current format version, then evicts
// oldest-accessed entries until the store is within its cap.
func (s *Store) Save(gameID string, v interface{}) {
	if gameID == "" {
		// Ad hoc analyses are never persisted.
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("failed to encode result for cache", "gameId", gameID, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[gameID] = &Entry{
		Result:        raw,
		AccessedAt:    time.Now().UnixMilli(),
		FormatVersion: FormatVersion,
		seq:           s.nextSeqLocked(),
	}

	for len(s.entries) > s.maxEntries {
		s.evictOldestLocked()
	}
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close flushes the snapshot to disk.
func (s *Store) Close() error {
	return s.Flush()
}

// Flush writes the snapshot file, if a path was configured.
func (s *Store) Flush() error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	snap := snapshot{FormatVersion: FormatVersion, Entries: s.entries}
	data, err := json.Marshal(snap)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("failed to encode cache snapshot", "error", err)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Warn("failed to create cache directory", "error", err)
		return nil
	}
	// Write-then-rename so a crash mid-write cannot corrupt the snapshot.
	tmp := fmt.Sprintf("%s.tmp", s.path)
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		s.logger.Warn("failed to write cache snapshot", "error", err)
		return nil
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Warn("failed to move cache snapshot into place", "error", err)
	}
	return nil
}

func (s *Store) load() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read cache snapshot", "error", err)
		}
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("failed to parse cache snapshot, starting empty", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range snap.Entries {
		if e == nil || e.FormatVersion != FormatVersion {
			continue
		}
		s.entries[id] = e
	}
	// Rebuild eviction order from persisted access times.
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	for len(ids) > 0 {
		oldest := 0
		for i := range ids {
			if s.entries[ids[i]].AccessedAt < s.entries[ids[oldest]].AccessedAt {
				oldest = i
			}
		}
		s.entries[ids[oldest]].seq = s.nextSeqLocked()
		ids = append(ids[:oldest], ids[oldest+1:]...)
	}
}

func (s *Store) evictOldestLocked() {
	var victim string
	var victimSeq uint64
	first := true
	for id, e := range s.entries {
		if first || e.seq < victimSeq {
			victim = id
			victimSeq = e.seq
			first = false
		}
	}
	if !first {
		delete(s.entries, victim)
		s.logger.Debug("evicted cache entry", "gameId", victim)
	}
}

func (s *Store) nextSeqLocked() uint64 {
	s.nextSeq++
	return s.nextSeq
}
