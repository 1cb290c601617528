package store

import (
	"sort"
	"sync"
)

const outcomeSuccess = "success"

// MemoryStore is an in-memory implementation of [Store].
type MemoryStore struct {
	mu    sync.RWMutex
	stats map[string]*ChannelStats
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stats: make(map[string]*ChannelStats),
	}
}

// Record folds a into the tally for a.Key, creating it on first use.
func (m *MemoryStore) Record(a Attempt) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.stats[a.Key]
	if !ok {
		st = &ChannelStats{Key: a.Key, ChannelID: a.ChannelID}
		m.stats[a.Key] = st
	}

	if a.Outcome == outcomeSuccess {
		st.Sent++
		st.LastSuccessAt = a.At
	} else {
		st.Failed++
	}

	st.LastOutcome = a.Outcome
	st.LastStatusCode = a.StatusCode
	st.LastAttemptAt = a.At
	st.LastError = nil
	if a.Error != "" {
		msg := a.Error
		st.LastError = &msg
	}
}

// GetAll returns copies of every tally, ordered by key.
func (m *MemoryStore) GetAll() []ChannelStats {
	m.mu.RLock()
	results := make([]ChannelStats, 0, len(m.stats))
	for _, st := range m.stats {
		results = append(results, *st)
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	return results
}
