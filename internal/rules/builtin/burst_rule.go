package builtin

import (
	"context"
	"fmt"
	"time"

	"charge-sentinel/internal/model"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultBurstThreshold is the number of same-action events, candidate included,
	// that makes a burst.
	DefaultBurstThreshold = 5
	// DefaultBurstWindow is the trailing anomaly window.
	DefaultBurstWindow = 1000 * time.Millisecond
)

// DefaultRiskActions are the state-mutating OCPP operations eligible for burst detection.
// Read-only telemetry (MeterValues, Heartbeat, ...) is never counted.
var DefaultRiskActions = []string{"StartTransaction", "StopTransaction"}

// BurstRule flags a candidate when too many events of the same risk action land
// inside the trailing window ending at the candidate's timestamp.
//
// Detect scans the whole history on every call. A bounded deque per action would
// make it O(window) but history is already capped by the processor.
type BurstRule struct {
	name        string
	enabled     bool
	severity    string
	threshold   int
	window      time.Duration
	riskActions map[string]struct{}
	logger      *logrus.Logger
}

func NewBurstRule(enabled bool, severity string, threshold int, window time.Duration, riskActions []string, logger *logrus.Logger) *BurstRule {
	if threshold <= 0 {
		threshold = DefaultBurstThreshold
	}
	if window <= 0 {
		window = DefaultBurstWindow
	}
	if len(riskActions) == 0 {
		riskActions = DefaultRiskActions
	}
	actions := make(map[string]struct{}, len(riskActions))
	for _, a := range riskActions {
		actions[a] = struct{}{}
	}
	return &BurstRule{
		name:        "burst",
		enabled:     enabled,
		severity:    severity,
		threshold:   threshold,
		window:      window,
		riskActions: actions,
		logger:      logger,
	}
}

func (r *BurstRule) Name() string {
	return r.name
}

func (r *BurstRule) IsEnabled() bool {
	return r.enabled
}

func (r *BurstRule) Threshold() int {
	return r.threshold
}

func (r *BurstRule) Window() time.Duration {
	return r.window
}

// IsRiskAction reports whether action is in the rule's risk set
func (r *BurstRule) IsRiskAction(action string) bool {
	_, ok := r.riskActions[action]
	return ok
}

func (r *BurstRule) Evaluate(ctx context.Context, history []model.FlowEvent, candidate model.FlowEvent) *model.FlowEvent {
	if !r.enabled {
		return nil
	}
	anomaly, ok := r.Detect(history, candidate)
	if !ok {
		return nil
	}
	return &anomaly
}

// Detect returns an enriched copy of candidate when the matched history events plus
// the candidate reach the threshold inside [candidate-window, candidate].
func (r *BurstRule) Detect(history []model.FlowEvent, candidate model.FlowEvent) (model.FlowEvent, bool) {
	if !r.IsRiskAction(candidate.Action) {
		return model.FlowEvent{}, false
	}

	end := candidate.Timestamp
	start := end.Add(-r.window)

	var matched []model.FlowEvent
	for _, e := range history {
		if e.Action != candidate.Action {
			continue
		}
		if e.Timestamp.Before(start) || e.Timestamp.After(end) {
			continue
		}
		// earlier anomalies carry their own contributing set; keep the copy flat
		e.AnomalyEvents = nil
		matched = append(matched, e)
	}

	count := len(matched) + 1
	if count < r.threshold {
		return model.FlowEvent{}, false
	}

	anomaly := candidate
	anomaly.IsAnomaly = true
	anomaly.Status = model.EventStatusAnomaly
	anomaly.AnomalyReason = fmt.Sprintf("%d %s requests within %s (possible attack)", count, candidate.Action, formatWindow(r.window))
	anomaly.AnomalyEvents = append(matched, candidate)

	if r.logger != nil {
		r.logger.Warnf("[Burst] %s", anomaly.AnomalyReason)
	}
	return anomaly, true
}

func formatWindow(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", int(d/time.Second))
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}
