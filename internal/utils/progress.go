package utils

import (
	"sort"
	"sync"
	"time"
)

type ProgressEntry struct {
	Label      string
	Downloaded int64
	Total      int64
	TotalKnown bool
	Done       bool
	StartTime  time.Time
}

// ProgressRegistry is the shared label -> byte counter map. Concurrent chunk
// tasks only touch it through these methods.
type ProgressRegistry struct {
	mu      sync.Mutex
	entries map[string]*ProgressEntry
}

func NewProgressRegistry() *ProgressRegistry {
	return &ProgressRegistry{entries: make(map[string]*ProgressEntry)}
}

func (p *ProgressRegistry) Register(label string, total int64, known bool) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.entries[label]; ok {
		entry.Total = total
		entry.TotalKnown = known
		return
	}
	p.entries[label] = &ProgressEntry{Label: label, Total: total, TotalKnown: known, StartTime: time.Now()}
}

// Add increments the counter and returns the new value. Negative deltas are
// ignored so a counter never goes backwards.
func (p *ProgressRegistry) Add(label string, n int64) int64 {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.entries[label]
	if !ok {
		entry = &ProgressEntry{Label: label, StartTime: time.Now()}
		p.entries[label] = entry
	}
	if n > 0 {
		entry.Downloaded += n
	}
	return entry.Downloaded
}

func (p *ProgressRegistry) Finish(label string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.entries[label]; ok {
		entry.Done = true
	}
}

func (p *ProgressRegistry) Get(label string) (ProgressEntry, bool) {
	if p == nil {
		return ProgressEntry{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.entries[label]
	if !ok {
		return ProgressEntry{}, false
	}
	return *entry, true
}

// Snapshot returns copies of all entries sorted by label.
func (p *ProgressRegistry) Snapshot() []ProgressEntry {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ProgressEntry, 0, len(p.entries))
	for _, entry := range p.entries {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
