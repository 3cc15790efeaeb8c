package handlers

import (
	"sync"

	"charge-sentinel/internal/model"

	"github.com/sirupsen/logrus"
)

// IncidentSubscriber receives incidents matching its filter
type IncidentSubscriber struct {
	ID       string
	Channel  chan model.Incident
	Severity model.Severity
}

// Hub fans newly created incidents out to websocket subscribers. It is registered
// with the processor as a notifier.
type Hub struct {
	subs   map[*IncidentSubscriber]bool
	mu     sync.RWMutex
	logger *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		subs:   make(map[*IncidentSubscriber]bool),
		logger: logger,
	}
}

func (h *Hub) Name() string { return "websocket" }

func (h *Hub) Subscribe(sub *IncidentSubscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub] = true
}

func (h *Hub) Unsubscribe(sub *IncidentSubscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sub] {
		delete(h.subs, sub)
		close(sub.Channel)
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// SendIncident implements alert.Notifier. Slow subscribers miss incidents rather
// than block the processor.
func (h *Hub) SendIncident(incident model.Incident) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		if sub.Severity != "" && incident.Severity != sub.Severity {
			continue
		}
		select {
		case sub.Channel <- incident:
		default:
			h.logger.Debugf("Incident subscriber %s is full, dropping %s", sub.ID, incident.ID)
		}
	}
	return nil
}
