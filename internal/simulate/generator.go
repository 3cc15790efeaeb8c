// Package simulate produces synthetic OCPP traffic for demos and soak tests.
package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"charge-sentinel/internal/model"

	"github.com/sirupsen/logrus"
)

var Actions = []string{
	"StartTransaction",
	"StopTransaction",
	"MeterValues",
	"Authorize",
	"StatusNotification",
	"Heartbeat",
}

// statusWeights gives success three times the weight of error or warning
var statusWeights = []model.EventStatus{
	model.EventStatusSuccess,
	model.EventStatusSuccess,
	model.EventStatusSuccess,
	model.EventStatusError,
	model.EventStatusWarning,
}

const (
	minDuration   = 50
	durationRange = 200
	minSize       = 500
	sizeRange     = 2000
)

// Generator emits random flow events. Safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	now    func() time.Time
	logger *logrus.Logger
}

func NewGenerator(seed int64, logger *logrus.Logger) *Generator {
	return &Generator{
		rng:    rand.New(rand.NewSource(seed)),
		now:    time.Now,
		logger: logger,
	}
}

// RandomEvent returns one event stamped with the current time
func (g *Generator) RandomEvent() model.FlowEvent {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now().UTC()
	action := Actions[g.rng.Intn(len(Actions))]
	status := statusWeights[g.rng.Intn(len(statusWeights))]
	duration := int64(g.rng.Intn(durationRange) + minDuration)
	size := int64(g.rng.Intn(sizeRange) + minSize)

	return model.FlowEvent{
		ID:        fmt.Sprintf("event-%d-%s", ts.UnixMilli(), g.suffix()),
		Timestamp: ts,
		Action:    action,
		Status:    status,
		Duration:  &duration,
		Size:      &size,
		Message:   message(action, status),
		RawData: map[string]interface{}{
			"action":    action,
			"status":    string(status),
			"timestamp": ts.Format(time.RFC3339Nano),
		},
	}
}

// Burst returns n successful events of one action spaced evenly from start
func (g *Generator) Burst(action string, n int, spacing time.Duration, start time.Time) []model.FlowEvent {
	events := make([]model.FlowEvent, 0, n)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * spacing).UTC()
		duration := int64(180)
		size := int64(1024)
		events = append(events, model.FlowEvent{
			ID:        fmt.Sprintf("burst-%s-%d-%d", action, start.UnixMilli(), i),
			Timestamp: ts,
			Action:    action,
			Status:    model.EventStatusSuccess,
			Duration:  &duration,
			Size:      &size,
			Message:   message(action, model.EventStatusSuccess),
		})
	}
	return events
}

// Run emits one random event per tick until ctx is cancelled
func (g *Generator) Run(ctx context.Context, interval time.Duration, sink func(model.FlowEvent)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	g.logger.Infof("Generating one OCPP event every %s", interval)
	emitted := 0
	for {
		select {
		case <-ctx.Done():
			g.logger.Infof("Generator stopped after %d events", emitted)
			return ctx.Err()
		case <-ticker.C:
			e := g.RandomEvent()
			g.logger.Debugf("Generated %s %s (%s)", e.ID, e.Action, e.Status)
			sink(e)
			emitted++
		}
	}
}

func (g *Generator) suffix() string {
	return strconv.FormatInt(g.rng.Int63n(1<<45), 36)
}

func message(action string, status model.EventStatus) string {
	switch status {
	case model.EventStatusError:
		return action + " failed"
	case model.EventStatusWarning:
		return action + " completed with warnings"
	default:
		return action + " completed successfully"
	}
}
