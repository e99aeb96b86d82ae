package memory

import (
	"sync"
	"time"

	"cutout/internal/logger"
)

// Manager accounts for every Mat allocated through a safe.MemoryTracker and
// hands out Scopes that guarantee release.
type Manager struct {
	allocations map[uint64]*AllocationRecord
	mu          sync.RWMutex
	stats       Stats
	logger      logger.Logger
}

type AllocationRecord struct {
	Tag       string
	CreatedAt time.Time
	Size      int64
}

type Stats struct {
	TotalAllocated int64
	TotalReleased  int64
	ActiveMats     int64
	PeakActiveMats int64
	Allocations    int64
	// UntrackedReleases counts deallocations for ids the manager never saw.
	UntrackedReleases int64
}

func NewManager(log logger.Logger) *Manager {
	if log == nil {
		log = logger.NoOp{}
	}
	return &Manager{
		allocations: make(map[uint64]*AllocationRecord),
		logger:      log,
	}
}

func (m *Manager) TrackAllocation(id uint64, size int64, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.allocations[id] = &AllocationRecord{
		Tag:       tag,
		CreatedAt: time.Now(),
		Size:      size,
	}
	m.stats.TotalAllocated += size
	m.stats.Allocations++
	m.stats.ActiveMats++
	if m.stats.ActiveMats > m.stats.PeakActiveMats {
		m.stats.PeakActiveMats = m.stats.ActiveMats
	}
}

func (m *Manager) TrackDeallocation(id uint64, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.allocations[id]
	if !exists {
		m.stats.UntrackedReleases++
		m.logger.Warning("MemoryManager", "release of untracked Mat", map[string]interface{}{
			"id":  id,
			"tag": tag,
		})
		return
	}

	delete(m.allocations, id)
	m.stats.TotalReleased += record.Size
	m.stats.ActiveMats--
}

func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.stats
}

// Outstanding lists allocations that are still live, keyed by Mat id.
func (m *Manager) Outstanding() map[uint64]AllocationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[uint64]AllocationRecord, len(m.allocations))
	for id, record := range m.allocations {
		result[id] = *record
	}
	return result
}

// NewScope opens an ownership scope. Every Mat adopted by the scope is
// closed by Scope.Close unless it was released earlier.
func (m *Manager) NewScope(name string) *Scope {
	return &Scope{
		name:    name,
		manager: m,
	}
}
