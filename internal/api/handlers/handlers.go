// Package handlers is the REST and websocket surface over the incident engine.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"charge-sentinel/internal/incident"
	"charge-sentinel/internal/model"
	"charge-sentinel/internal/pipeline"
	"charge-sentinel/internal/traffic"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

type Handlers struct {
	processor *pipeline.Processor
	store     *incident.Store
	traffic   *traffic.Buffer
	hub       *Hub
	rules     []model.Rule
	logger    *logrus.Logger
	upgrader  websocket.Upgrader
}

func NewHandlers(processor *pipeline.Processor, store *incident.Store, trafficBuf *traffic.Buffer, hub *Hub, rules []model.Rule, logger *logrus.Logger) *Handlers {
	return &Handlers{
		processor: processor,
		store:     store,
		traffic:   trafficBuf,
		hub:       hub,
		rules:     rules,
		logger:    logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				logger.Debugf("WebSocket origin check: %s", r.Header.Get("Origin"))
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Events handlers
func (h *Handlers) IngestEvent(w http.ResponseWriter, r *http.Request) {
	var event model.FlowEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.processor.Process(r.Context(), event)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidEvent) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to process event")
		return
	}

	status := http.StatusOK
	if result.Incident != nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (h *Handlers) GetEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.processor.Events())
}

func (h *Handlers) GetEventGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.processor.Groups())
}

// Incidents handlers
func (h *Handlers) GetIncidents(w http.ResponseWriter, r *http.Request) {
	filters := parseIncidentFilters(r)
	writeJSON(w, http.StatusOK, h.store.List(r.Context(), &filters))
}

func (h *Handlers) GetIncident(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	inc, ok := h.store.Get(r.Context(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "Incident not found")
		return
	}

	writeJSON(w, http.StatusOK, inc)
}

func (h *Handlers) GetIncidentStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats(r.Context()))
}

func (h *Handlers) ExportIncidents(w http.ResponseWriter, r *http.Request) {
	filters := parseIncidentFilters(r)
	records := h.store.ExportForTraining(r.Context(), &filters)

	filename := fmt.Sprintf("incidents-training-%s.json", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if err := incident.WriteJSON(w, records); err != nil {
		h.logger.Errorf("Incident export failed: %v", err)
	}
}

type statusUpdate struct {
	Status model.Status `json:"status"`
	Notes  string       `json:"notes,omitempty"`
}

func (h *Handlers) UpdateIncidentStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var update statusUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !update.Status.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid status %q", update.Status))
		return
	}

	inc, ok := h.store.UpdateStatus(r.Context(), id, update.Status, update.Notes)
	if !ok {
		writeError(w, http.StatusNotFound, "Incident not found")
		return
	}

	h.logger.Infof("Incident %s moved to %s", id, update.Status)
	writeJSON(w, http.StatusOK, inc)
}

func (h *Handlers) DeleteIncident(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if !h.store.Delete(r.Context(), id) {
		writeError(w, http.StatusNotFound, "Incident not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type patternRequest struct {
	IsNormal *bool `json:"isNormal,omitempty"`
}

// RecordPatterns saves the current non-anomalous groups as training incidents.
// An empty body records them as normal behaviour.
func (h *Handlers) RecordPatterns(w http.ResponseWriter, r *http.Request) {
	var req patternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	isNormal := true
	if req.IsNormal != nil {
		isNormal = *req.IsNormal
	}

	created := h.processor.RecordPatterns(r.Context(), isNormal)
	writeJSON(w, http.StatusCreated, created)
}

// Traffic handlers
func (h *Handlers) GetTraffic(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePaging(r)
	logs, total := h.traffic.Page(page, limit, parseTrafficFilter(r))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": logs,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (h *Handlers) GetTrafficStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.traffic.Stats())
}

func (h *Handlers) ExportTraffic(w http.ResponseWriter, r *http.Request) {
	logs := h.traffic.List(0, parseTrafficFilter(r))

	filename := fmt.Sprintf("traffic-logs-%s.json", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if err := traffic.ExportJSON(w, logs); err != nil {
		h.logger.Errorf("Traffic export failed: %v", err)
	}
}

// Rules handlers
func (h *Handlers) GetRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rules)
}

// Streaming handlers
func (h *Handlers) StreamIncidents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	sub := &IncidentSubscriber{
		ID:       generateID(),
		Channel:  make(chan model.Incident, 100),
		Severity: model.Severity(r.URL.Query().Get("severity")),
	}
	h.hub.Subscribe(sub)
	defer h.hub.Unsubscribe(sub)

	stream(conn, h.logger, func(send func(v interface{}) bool, done <-chan struct{}) {
		for {
			select {
			case <-done:
				return
			case inc, ok := <-sub.Channel:
				if !ok || !send(inc) {
					return
				}
			}
		}
	})
}

func (h *Handlers) StreamTraffic(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	sub := &traffic.Subscriber{
		ID:      generateID(),
		Channel: make(chan model.TrafficLog, 100),
		Filter:  parseTrafficFilter(r),
	}
	h.traffic.Subscribe(sub)
	defer h.traffic.Unsubscribe(sub)

	stream(conn, h.logger, func(send func(v interface{}) bool, done <-chan struct{}) {
		for {
			select {
			case <-done:
				return
			case entry, ok := <-sub.Channel:
				if !ok || !send(entry) {
					return
				}
			}
		}
	})
}

// stream sends the greeting, keeps the connection alive with pings and runs pump
// until the client goes away or pump returns
func stream(conn *websocket.Conn, logger *logrus.Logger, pump func(send func(v interface{}) bool, done <-chan struct{})) {
	var writeMu sync.Mutex
	send := func(v interface{}) bool {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(v); err != nil {
			logger.Debugf("WebSocket write error: %v", err)
			return false
		}
		return true
	}

	if !send(map[string]string{"type": "connected", "message": "WebSocket connection established"}) {
		return
	}

	done := make(chan struct{})
	once := &sync.Once{}
	closeDone := func() { once.Do(func() { close(done) }) }
	defer closeDone()

	go func() {
		defer closeDone()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
				writeMu.Unlock()
				if err != nil {
					closeDone()
					return
				}
			}
		}
	}()

	pump(send, done)
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

func generateID() string {
	return uuid.NewString()
}
