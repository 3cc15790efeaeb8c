// Package traffic keeps the raw network log view of the OCPP endpoint.
package traffic

import (
	"sync"
	"time"

	"charge-sentinel/internal/model"

	"github.com/sirupsen/logrus"
)

const DefaultMaxLogs = 5000

// Buffer is a capped, in-memory traffic log with live subscribers
type Buffer struct {
	mu      sync.RWMutex
	logs    []model.TrafficLog
	maxLogs int
	logger  *logrus.Logger
	subs    map[*Subscriber]bool
	subsMu  sync.RWMutex
}

type Subscriber struct {
	ID      string
	Channel chan model.TrafficLog
	Filter  LogFilter
}

func NewBuffer(maxLogs int, logger *logrus.Logger) *Buffer {
	if maxLogs <= 0 {
		maxLogs = DefaultMaxLogs
	}
	return &Buffer{
		logs:    make([]model.TrafficLog, 0),
		maxLogs: maxLogs,
		logger:  logger,
		subs:    make(map[*Subscriber]bool),
	}
}

// Add appends an entry, keeping only the newest maxLogs entries
func (b *Buffer) Add(entry model.TrafficLog) {
	b.mu.Lock()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	b.logs = append(b.logs, entry)
	if len(b.logs) > b.maxLogs {
		b.logs = b.logs[len(b.logs)-b.maxLogs:]
	}
	b.mu.Unlock()

	b.notifySubscribers(entry)
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.logs)
}

// List returns matching entries newest first. limit <= 0 means no limit.
func (b *Buffer) List(limit int, filter LogFilter) []model.TrafficLog {
	b.mu.RLock()
	defer b.mu.RUnlock()

	match := filter.Compile()
	result := make([]model.TrafficLog, 0)
	for i := len(b.logs) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		if match(b.logs[i]) {
			result = append(result, b.logs[i])
		}
	}
	return result
}

// Page returns one page (1-based) of matching entries newest first, plus the total match count
func (b *Buffer) Page(page, limit int, filter LogFilter) ([]model.TrafficLog, int) {
	all := b.List(0, filter)
	total := len(all)
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		return all, total
	}

	start := (page - 1) * limit
	if start >= total {
		return []model.TrafficLog{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total
}

func (b *Buffer) Get(id string) (model.TrafficLog, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i := range b.logs {
		if b.logs[i].ID == id {
			return b.logs[i], true
		}
	}
	return model.TrafficLog{}, false
}

type Stats struct {
	Total          int            `json:"total"`
	ProtocolCounts map[string]int `json:"protocolCounts"`
	StatusCounts   map[string]int `json:"statusCounts"`
}

func (b *Buffer) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := Stats{
		Total:          len(b.logs),
		ProtocolCounts: make(map[string]int),
		StatusCounts:   make(map[string]int),
	}
	for i := range b.logs {
		stats.ProtocolCounts[string(b.logs[i].Protocol)]++
		stats.StatusCounts[string(b.logs[i].Status)]++
	}
	return stats
}

func (b *Buffer) Subscribe(sub *Subscriber) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	b.subs[sub] = true
}

func (b *Buffer) Unsubscribe(sub *Subscriber) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	if b.subs[sub] {
		delete(b.subs, sub)
		close(sub.Channel)
	}
}

func (b *Buffer) notifySubscribers(entry model.TrafficLog) {
	b.subsMu.RLock()
	defer b.subsMu.RUnlock()

	for sub := range b.subs {
		if !sub.Filter.Compile()(entry) {
			continue
		}
		select {
		case sub.Channel <- entry:
		default:
			b.logger.Debugf("Traffic subscriber %s is full, dropping log %s", sub.ID, entry.ID)
		}
	}
}
