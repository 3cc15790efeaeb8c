// Package incident turns detected anomalies into durable incident records and
// exposes the query, statistics and export surface over them.
package incident

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"charge-sentinel/internal/model"
	"charge-sentinel/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxIncidents = 1000
	DefaultStoreKey     = "charge_sentinel_incidents"
)

// Store is the capped, newest-first incident collection. Every operation is a
// read-modify-write of the whole blob. The mutex serialises writers inside this
// process only; separate processes sharing a backend are last-writer-wins.
type Store struct {
	backend      storage.Backend
	maxIncidents int
	logger       *logrus.Logger
	mu           sync.Mutex
	now          func() time.Time
	newID        func() string
	onSave       func(size int)
}

func NewStore(backend storage.Backend, maxIncidents int, logger *logrus.Logger) *Store {
	if maxIncidents <= 0 {
		maxIncidents = DefaultMaxIncidents
	}
	return &Store{
		backend:      backend,
		maxIncidents: maxIncidents,
		logger:       logger,
		now:          time.Now,
		newID:        newIncidentID,
	}
}

func newIncidentID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "incident-" + id.String()
}

// SetSizeObserver registers a callback invoked with the stored size after each save
func (s *Store) SetSizeObserver(fn func(size int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSave = fn
}

func (s *Store) MaxIncidents() int {
	return s.maxIncidents
}

// Load returns all stored incidents, newest first. Storage failures are logged and
// yield an empty list.
func (s *Store) Load(ctx context.Context) []model.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Save sorts by timestamp descending, truncates to the cap and persists. Failures are
// logged and otherwise ignored.
func (s *Store) Save(ctx context.Context, incidents []model.Incident) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.save(ctx, incidents)
}

// Create assigns a fresh id, prepends the incident and saves
func (s *Store) Create(ctx context.Context, inc model.Incident) model.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()

	inc.ID = s.newID()
	incidents := s.load(ctx)
	incidents = append([]model.Incident{inc}, incidents...)
	s.save(ctx, incidents)
	return inc
}

// UpdateStatus changes the status of the incident with the given id. Notes replace
// the existing notes only when non-empty. Returns false when no incident matches.
func (s *Store) UpdateStatus(ctx context.Context, id string, status model.Status, notes string) (model.Incident, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	incidents := s.load(ctx)
	idx := indexOf(incidents, id)
	if idx < 0 {
		return model.Incident{}, false
	}

	inc := &incidents[idx]
	inc.Status = status
	applyStatusSideEffect(inc, s.now())
	if notes != "" {
		inc.Notes = notes
	}

	updated := *inc
	s.save(ctx, incidents)
	return updated, true
}

// applyStatusSideEffect runs the per-status action of a transition. Any status may
// follow any other; resolved and false_positive are not terminal.
func applyStatusSideEffect(inc *model.Incident, now time.Time) {
	switch inc.Status {
	case model.StatusResolved:
		t := now.UTC()
		inc.ResolvedAt = &t
	case model.StatusOpen, model.StatusInvestigating, model.StatusFalsePositive:
	}
}

// Delete removes the incident with the given id and reports whether it existed
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	incidents := s.load(ctx)
	kept := make([]model.Incident, 0, len(incidents))
	for _, inc := range incidents {
		if inc.ID != id {
			kept = append(kept, inc)
		}
	}
	if len(kept) == len(incidents) {
		return false
	}
	s.save(ctx, kept)
	return true
}

func (s *Store) Get(ctx context.Context, id string) (model.Incident, bool) {
	incidents := s.Load(ctx)
	idx := indexOf(incidents, id)
	if idx < 0 {
		return model.Incident{}, false
	}
	return incidents[idx], true
}

// List loads and filters. A nil filter returns everything.
func (s *Store) List(ctx context.Context, filters *Filters) []model.Incident {
	incidents := s.Load(ctx)
	if filters == nil {
		return incidents
	}
	return Filter(incidents, *filters)
}

func (s *Store) Stats(ctx context.Context) Stats {
	return ComputeStats(s.Load(ctx))
}

// ExportForTraining loads, optionally filters and projects to training records
func (s *Store) ExportForTraining(ctx context.Context, filters *Filters) []TrainingRecord {
	return ExportForTraining(s.List(ctx, filters))
}

func (s *Store) load(ctx context.Context) []model.Incident {
	data, err := s.backend.Read(ctx)
	if err != nil {
		s.logger.Errorf("Incident load failed: %v", err)
		return []model.Incident{}
	}
	if len(data) == 0 {
		return []model.Incident{}
	}

	var incidents []model.Incident
	if err := json.Unmarshal(data, &incidents); err != nil {
		s.logger.Errorf("Incident load failed, stored blob is corrupt: %v", err)
		return []model.Incident{}
	}
	if incidents == nil {
		incidents = []model.Incident{}
	}
	return incidents
}

func (s *Store) save(ctx context.Context, incidents []model.Incident) {
	sorted := make([]model.Incident, len(incidents))
	copy(sorted, incidents)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	if len(sorted) > s.maxIncidents {
		sorted = sorted[:s.maxIncidents]
	}

	data, err := json.Marshal(sorted)
	if err != nil {
		s.logger.Errorf("Incident save failed: %v", err)
		return
	}
	if err := s.backend.Write(ctx, data); err != nil {
		s.logger.Errorf("Incident save failed: %v", err)
		return
	}
	if s.onSave != nil {
		s.onSave(len(sorted))
	}
}

func indexOf(incidents []model.Incident, id string) int {
	for i := range incidents {
		if incidents[i].ID == id {
			return i
		}
	}
	return -1
}
