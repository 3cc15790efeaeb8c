package incident

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"charge-sentinel/internal/model"

	"github.com/sirupsen/logrus"
)

// Thresholds holds the severity and category heuristics. The defaults are the
// tuned production values; configuration may override any of them.
type Thresholds struct {
	CriticalCount   int     `yaml:"critical"`
	HighCount       int     `yaml:"high"`
	MediumCount     int     `yaml:"medium"`
	BruteForceCount int     `yaml:"brute_force_count"`
	RateLimitCount  int     `yaml:"rate_limit_count"`
	RateLimitWindow int64   `yaml:"rate_limit_window_ms"`
	ErrorRateCutoff float64 `yaml:"error_rate"`
	// ConfidenceDivisor is the contributing-event count that maps to confidence 1.0
	ConfidenceDivisor int     `yaml:"confidence_divisor"`
	PatternMinCount   int     `yaml:"pattern_min_count"`
	PatternConfidence float64 `yaml:"pattern_confidence"`
	DefaultTimeWindow int64   `yaml:"default_time_window_ms"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		CriticalCount:     20,
		HighCount:         10,
		MediumCount:       5,
		BruteForceCount:   10,
		RateLimitCount:    5,
		RateLimitWindow:   1000,
		ErrorRateCutoff:   0.5,
		ConfidenceDivisor: 20,
		PatternMinCount:   3,
		PatternConfidence: 0.7,
		DefaultTimeWindow: 1000,
	}
}

// withDefaults fills zero-valued fields from DefaultThresholds
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.CriticalCount <= 0 {
		t.CriticalCount = d.CriticalCount
	}
	if t.HighCount <= 0 {
		t.HighCount = d.HighCount
	}
	if t.MediumCount <= 0 {
		t.MediumCount = d.MediumCount
	}
	if t.BruteForceCount <= 0 {
		t.BruteForceCount = d.BruteForceCount
	}
	if t.RateLimitCount <= 0 {
		t.RateLimitCount = d.RateLimitCount
	}
	if t.RateLimitWindow <= 0 {
		t.RateLimitWindow = d.RateLimitWindow
	}
	if t.ErrorRateCutoff <= 0 {
		t.ErrorRateCutoff = d.ErrorRateCutoff
	}
	if t.ConfidenceDivisor <= 0 {
		t.ConfidenceDivisor = d.ConfidenceDivisor
	}
	if t.PatternMinCount <= 0 {
		t.PatternMinCount = d.PatternMinCount
	}
	if t.PatternConfidence <= 0 || t.PatternConfidence > 1 {
		t.PatternConfidence = d.PatternConfidence
	}
	if t.DefaultTimeWindow <= 0 {
		t.DefaultTimeWindow = d.DefaultTimeWindow
	}
	return t
}

// Factory builds incidents from detector and grouper output and persists them
type Factory struct {
	store       *Store
	thresholds  Thresholds
	riskActions map[string]bool
	logger      *logrus.Logger
	now         func() time.Time
}

func NewFactory(store *Store, thresholds Thresholds, riskActions []string, logger *logrus.Logger) *Factory {
	risk := make(map[string]bool, len(riskActions))
	for _, a := range riskActions {
		risk[a] = true
	}
	return &Factory{
		store:       store,
		thresholds:  thresholds.withDefaults(),
		riskActions: risk,
		logger:      logger,
		now:         time.Now,
	}
}

func (f *Factory) Thresholds() Thresholds {
	return f.thresholds
}

// FromAnomaly builds an incident for a detected anomaly and persists it
func (f *Factory) FromAnomaly(ctx context.Context, anomaly model.FlowEvent, sourceIP, port string) model.Incident {
	inc := f.BuildFromAnomaly(anomaly, sourceIP, port)
	created := f.store.Create(ctx, inc)
	f.logger.Infof("Incident %s created: %s %s (%s)", created.ID, created.Severity, created.Category, anomaly.Action)
	return created
}

// FromPattern persists a pattern incident for a group. Groups below the minimum
// size are ignored and reported with false.
func (f *Factory) FromPattern(ctx context.Context, group model.GroupedEvent, sourceIP, port string, isNormal bool) (model.Incident, bool) {
	inc, ok := f.BuildFromPattern(group, sourceIP, port, isNormal)
	if !ok {
		return model.Incident{}, false
	}
	created := f.store.Create(ctx, inc)
	f.logger.Debugf("Pattern incident %s created for %s (%d events)", created.ID, group.Action, group.TotalCount)
	return created, true
}

// BuildFromAnomaly is the pure part of FromAnomaly. The returned incident has no id.
func (f *Factory) BuildFromAnomaly(anomaly model.FlowEvent, sourceIP, port string) model.Incident {
	contributing := anomaly.AnomalyEvents
	if len(contributing) == 0 {
		contributing = []model.FlowEvent{anomaly}
	}
	count := len(contributing)
	timeWindow := f.anomalyWindow(anomaly, contributing[0])

	timestamp := anomaly.Timestamp
	if timestamp.IsZero() {
		timestamp = f.now().UTC()
	}

	description := anomaly.AnomalyReason
	if description == "" {
		description = "Suspicious behaviour pattern detected"
	}

	features := model.Features{
		RequestCount: count,
		TimeWindow:   timeWindow,
		ActionTypes:  distinctActions(contributing),
		AvgDuration:  avgDuration(contributing),
		ErrorRate:    statusRate(contributing, model.EventStatusError, model.EventStatusWarning),
	}

	return model.Incident{
		Timestamp:   timestamp,
		Category:    f.category(anomaly.Action, count, timeWindow, features.ErrorRate),
		Severity:    f.severity(count),
		Status:      model.StatusOpen,
		Title:       fmt.Sprintf("Anomaly detected: %s", anomaly.Action),
		Description: description,
		Reason:      anomaly.AnomalyReason,
		SourceIP:    sourceIP,
		Port:        port,
		Pattern: model.Pattern{
			Action:     anomaly.Action,
			Count:      count,
			TimeWindow: timeWindow,
			Events:     snapshots(contributing),
		},
		AITrainingData: model.TrainingData{
			Features:   features,
			Label:      model.LabelAnomaly,
			Confidence: math.Min(float64(count)/float64(f.thresholds.ConfidenceDivisor), 1),
		},
		Tags: []string{"auto-detected", "anomaly", strings.ToLower(anomaly.Action)},
	}
}

// BuildFromPattern is the pure part of FromPattern
func (f *Factory) BuildFromPattern(group model.GroupedEvent, sourceIP, port string, isNormal bool) (model.Incident, bool) {
	if group.TotalCount < f.thresholds.PatternMinCount || len(group.Events) == 0 {
		return model.Incident{}, false
	}

	timeWindow := group.LastTimestamp.Sub(group.FirstTimestamp).Milliseconds()
	if timeWindow < 0 {
		timeWindow = 0
	}

	label, kind, title, reason := model.LabelAnomaly, "suspicious", "Suspicious", "Suspicious behaviour pattern"
	if isNormal {
		label, kind, title, reason = model.LabelNormal, "normal", "Normal", "Normal user behaviour"
	}

	return model.Incident{
		Timestamp:   group.FirstTimestamp,
		Category:    model.CategorySuspiciousPattern,
		Severity:    model.SeverityLow,
		Status:      model.StatusOpen,
		Title:       fmt.Sprintf("%s behaviour pattern: %s", title, group.Action),
		Description: fmt.Sprintf("%d %s operations observed", group.TotalCount, group.Action),
		Reason:      reason,
		SourceIP:    sourceIP,
		Port:        port,
		Pattern: model.Pattern{
			Action:     group.Action,
			Count:      group.TotalCount,
			TimeWindow: timeWindow,
			Events:     snapshots(group.Events),
		},
		AITrainingData: model.TrainingData{
			Features: model.Features{
				RequestCount: group.TotalCount,
				TimeWindow:   timeWindow,
				ActionTypes:  []string{group.Action},
				AvgDuration:  avgDuration(group.Events),
				ErrorRate:    statusRate(group.Events, model.EventStatusError),
			},
			Label:      label,
			Confidence: f.thresholds.PatternConfidence,
		},
		Tags: []string{"pattern", kind, strings.ToLower(group.Action)},
	}, true
}

func (f *Factory) anomalyWindow(anomaly, first model.FlowEvent) int64 {
	if anomaly.Timestamp.IsZero() || first.Timestamp.IsZero() {
		return f.thresholds.DefaultTimeWindow
	}
	ms := anomaly.Timestamp.Sub(first.Timestamp).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

func (f *Factory) severity(count int) model.Severity {
	switch {
	case count >= f.thresholds.CriticalCount:
		return model.SeverityCritical
	case count >= f.thresholds.HighCount:
		return model.SeverityHigh
	case count >= f.thresholds.MediumCount:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// category applies the heuristics in priority order
func (f *Factory) category(action string, count int, timeWindow int64, errorRate float64) model.Category {
	switch {
	case f.riskActions[action] && count >= f.thresholds.BruteForceCount:
		return model.CategoryBruteForce
	case timeWindow < f.thresholds.RateLimitWindow && count >= f.thresholds.RateLimitCount:
		return model.CategoryRateLimit
	case errorRate > f.thresholds.ErrorRateCutoff:
		return model.CategorySuspiciousPattern
	default:
		return model.CategoryAnomaly
	}
}

func distinctActions(events []model.FlowEvent) []string {
	seen := make(map[string]bool, len(events))
	actions := make([]string, 0, 1)
	for _, e := range events {
		if !seen[e.Action] {
			seen[e.Action] = true
			actions = append(actions, e.Action)
		}
	}
	return actions
}

func avgDuration(events []model.FlowEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	var sum int64
	for _, e := range events {
		sum += e.DurationMillis()
	}
	return float64(sum) / float64(len(events))
}

func statusRate(events []model.FlowEvent, statuses ...model.EventStatus) float64 {
	if len(events) == 0 {
		return 0
	}
	hits := 0
	for _, e := range events {
		for _, s := range statuses {
			if e.Status == s {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(events))
}

func snapshots(events []model.FlowEvent) []model.EventSnapshot {
	out := make([]model.EventSnapshot, len(events))
	for i, e := range events {
		out[i] = e.Snapshot()
	}
	return out
}
