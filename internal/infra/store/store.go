package store

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xavierca1/amo-sbp-bridge/internal/entity"
)

// FileStore persists the lead→intent mapping as a single JSON snapshot.
// Mutations are per-lead (Put/Delete) with the whole read-modify-write of
// the snapshot held under one file lock, so writers for different leads
// cannot erase each other's changes. At the expected scale (tens to low
// thousands of open intents) that beats carrying a database for one map.
//
// A snapshot that fails to parse is treated as an empty store: losing
// issued-link history is recoverable (the next webhook re-issues), while
// refusing to process leads is not.
type FileStore struct {
	path string

	fileMu sync.Mutex // serializes Load/Save against each other

	leadMu   sync.Mutex
	leadLock map[string]*sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:     path,
		leadLock: make(map[string]*sync.Mutex),
	}
}

// Load reads the persisted snapshot. Absent, empty or corrupt files yield
// an empty mapping; corruption is logged as a data-loss event and the file
// is reset so the next save starts clean.
func (s *FileStore) Load() map[string]entity.PaymentIntent {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	return s.load()
}

// load assumes fileMu is held.
func (s *FileStore) load() map[string]entity.PaymentIntent {
	payments := make(map[string]entity.PaymentIntent)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("❌ store: cannot read %s: %v (treating as empty)", s.path, err)
		}
		return payments
	}
	if len(data) == 0 {
		return payments
	}

	if err := json.Unmarshal(data, &payments); err != nil {
		log.Printf("❌ store: invalid JSON in %s: %v — resetting to empty (data loss)", s.path, err)
		if werr := s.write(map[string]entity.PaymentIntent{}); werr != nil {
			log.Printf("⚠️ store: failed to reset %s: %v", s.path, werr)
		}
		return make(map[string]entity.PaymentIntent)
	}
	return payments
}

// Save atomically replaces the snapshot with the full mapping. Runtime
// mutations go through Put/Delete; Save exists for seeding and migration.
func (s *FileStore) Save(payments map[string]entity.PaymentIntent) error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	return s.write(payments)
}

// Put upserts one intent. The read-modify-write of the snapshot happens
// entirely under fileMu, so a concurrent mutation of a different lead can
// never be erased by this write.
func (s *FileStore) Put(leadID string, intent entity.PaymentIntent) error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	payments := s.load()
	payments[leadID] = intent
	return s.write(payments)
}

// Delete removes one intent. Removing an absent lead is a no-op.
func (s *FileStore) Delete(leadID string) error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	payments := s.load()
	if _, ok := payments[leadID]; !ok {
		return nil
	}
	delete(payments, leadID)
	return s.write(payments)
}

// write assumes fileMu is held. Temp file + rename keeps a crash from ever
// leaving a half-written snapshot behind.
func (s *FileStore) write(payments map[string]entity.PaymentIntent) error {
	data, err := json.MarshalIndent(payments, "", "    ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".payments-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Prune returns a copy of the mapping without intents older than maxAge,
// regardless of status. Bounds growth from abandoned payment flows; the
// caller decides when to persist the result.
func (s *FileStore) Prune(payments map[string]entity.PaymentIntent, maxAge time.Duration) map[string]entity.PaymentIntent {
	now := time.Now()
	kept := make(map[string]entity.PaymentIntent, len(payments))
	for leadID, intent := range payments {
		if intent.Age(now) > maxAge {
			log.Printf("🧹 store: pruning intent for lead %s (order %s, age %s)",
				leadID, intent.OrderNumber, intent.Age(now).Round(time.Hour))
			continue
		}
		kept[leadID] = intent
	}
	return kept
}

// LockLead serializes the check-then-act business sequences for one lead
// across the reconciler, the callback path and the sweep; snapshot
// consistency itself comes from Put/Delete holding the file lock. Returns
// the unlock func.
// Locks are never evicted; the map is bounded by the number of distinct
// leads seen since start.
func (s *FileStore) LockLead(leadID string) func() {
	s.leadMu.Lock()
	mu, ok := s.leadLock[leadID]
	if !ok {
		mu = &sync.Mutex{}
		s.leadLock[leadID] = mu
	}
	s.leadMu.Unlock()

	mu.Lock()
	return mu.Unlock
}
