package incident

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"charge-sentinel/internal/model"
	"charge-sentinel/internal/storage"

	"github.com/sirupsen/logrus"
)

var baseTime = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestStore() *Store {
	return NewStore(storage.NewMemoryBackend(), DefaultMaxIncidents, testLogger())
}

func int64p(v int64) *int64 { return &v }

func burstEvents(action string, n int, spacing time.Duration, status model.EventStatus) []model.FlowEvent {
	events := make([]model.FlowEvent, n)
	for i := range events {
		events[i] = model.FlowEvent{
			ID:        fmt.Sprintf("evt-%d", i),
			Timestamp: baseTime.Add(time.Duration(i) * spacing),
			Action:    action,
			Status:    status,
			Duration:  int64p(100),
		}
	}
	return events
}

func anomalyOf(events []model.FlowEvent) model.FlowEvent {
	a := events[len(events)-1]
	a.IsAnomaly = true
	a.Status = model.EventStatusAnomaly
	a.AnomalyReason = fmt.Sprintf("%d %s requests within 1s (possible attack)", len(events), a.Action)
	a.AnomalyEvents = events
	return a
}

func sampleIncident(id string, ts time.Time, cat model.Category, sev model.Severity, st model.Status, ip string) model.Incident {
	return model.Incident{
		ID:        id,
		Timestamp: ts,
		Category:  cat,
		Severity:  sev,
		Status:    st,
		SourceIP:  ip,
		Pattern: model.Pattern{
			Action: "StartTransaction",
			Count:  1,
			Events: []model.EventSnapshot{{ID: id + "-e", Timestamp: ts, Action: "StartTransaction", Status: "success"}},
		},
		AITrainingData: model.TrainingData{
			Features: model.Features{RequestCount: 1, ActionTypes: []string{"StartTransaction"}},
			Label:    model.LabelAnomaly,
		},
	}
}

type failingBackend struct{}

func (failingBackend) Read(context.Context) ([]byte, error) { return nil, errors.New("read failed") }
func (failingBackend) Write(context.Context, []byte) error  { return errors.New("write failed") }
func (failingBackend) Close() error                         { return nil }
