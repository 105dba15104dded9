package index

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"shipsnap/pkg/logger"
	"shipsnap/pkg/storage"
	"shipsnap/pkg/tracker"
)

// Document is the persisted index shape.
type Document struct {
	LastUpdated time.Time `json:"last_updated"`
	IDs         []string  `json:"ids"`
}

// Manager tracks which vessels already have photos stored, so repeat runs
// skip them. The persisted document is treated as append-only: Flush merges
// with whatever is in storage at flush time instead of overwriting.
type Manager struct {
	store storage.Store
	key   string
	log   logger.Logger

	mu      sync.Mutex
	known   map[string]bool
	pending map[string]bool
}

// NewManager creates an index manager persisting to key in store.
func NewManager(store storage.Store, key string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{
		store:   store,
		key:     key,
		log:     log,
		known:   make(map[string]bool),
		pending: make(map[string]bool),
	}
}

// Load reads the persisted index. A missing document starts an empty index;
// a corrupt one is logged and also starts empty rather than failing the run.
func (m *Manager) Load(ctx context.Context) error {
	obj, err := m.store.Get(ctx, m.key)
	if err != nil {
		if storage.IsNotFound(err) {
			m.log.Info("no existing index, starting empty")
			return nil
		}
		return fmt.Errorf("failed to load index: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(obj.Data, &doc); err != nil {
		m.log.WarnWithFields("index document is corrupt, starting empty", map[string]interface{}{
			"key":   m.key,
			"error": err.Error(),
		})
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range doc.IDs {
		if tracker.IsValidVesselID(id) {
			m.known[id] = true
		}
	}

	m.log.InfoWithFields("index loaded", map[string]interface{}{
		"vessels": len(m.known),
	})
	return nil
}

// Contains reports whether vesselID is already indexed or pending
func (m *Manager) Contains(vesselID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.known[vesselID] || m.pending[vesselID]
}

// MarkPending records vesselID for inclusion in the next Flush
func (m *Manager) MarkPending(vesselID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[vesselID] = true
}

// PendingCount returns the number of vessels awaiting a flush
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Flush persists the index. It re-reads the stored document first and unions
// it with the in-memory state, so concurrent writers only ever grow the set.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	union := make(map[string]bool, len(m.known)+len(m.pending))
	for id := range m.known {
		union[id] = true
	}
	for id := range m.pending {
		union[id] = true
	}
	m.mu.Unlock()

	if obj, err := m.store.Get(ctx, m.key); err == nil {
		var doc Document
		if err := json.Unmarshal(obj.Data, &doc); err == nil {
			for _, id := range doc.IDs {
				if tracker.IsValidVesselID(id) {
					union[id] = true
				}
			}
		}
	} else if !storage.IsNotFound(err) {
		return fmt.Errorf("failed to re-read index before flush: %w", err)
	}

	if err := m.persist(ctx, union); err != nil {
		return err
	}

	m.mu.Lock()
	m.known = union
	m.pending = make(map[string]bool)
	m.mu.Unlock()

	m.log.InfoWithFields("index flushed", map[string]interface{}{
		"vessels": len(union),
	})
	return nil
}

// Rebuild reconstructs the index from the per-vessel folders in storage,
// replacing both the in-memory set and the persisted document. It returns
// the rebuilt identifier list.
func (m *Manager) Rebuild(ctx context.Context, uploadPrefix string) ([]string, error) {
	folders, err := m.store.ListPrefixes(ctx, uploadPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan storage for rebuild: %w", err)
	}

	rebuilt := make(map[string]bool)
	for _, folder := range folders {
		id, ok := storage.VesselIDFromFolder(folder)
		if !ok || !tracker.IsValidVesselID(id) {
			m.log.DebugWithFields("skipping non-vessel folder", map[string]interface{}{
				"folder": folder,
			})
			continue
		}
		rebuilt[id] = true
	}

	if err := m.persist(ctx, rebuilt); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.known = rebuilt
	m.pending = make(map[string]bool)
	m.mu.Unlock()

	ids := sortedIDs(rebuilt)
	m.log.InfoWithFields("index rebuilt from storage", map[string]interface{}{
		"vessels": len(ids),
	})
	return ids, nil
}

func (m *Manager) persist(ctx context.Context, ids map[string]bool) error {
	doc := Document{
		LastUpdated: time.Now().UTC(),
		IDs:         sortedIDs(ids),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := m.store.Put(ctx, m.key, data, "application/json"); err != nil {
		return fmt.Errorf("failed to persist index: %w", err)
	}
	return nil
}

func sortedIDs(set map[string]bool) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
