package incident

import (
	"context"
	"testing"
	"time"

	"charge-sentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var riskActions = []string{"StartTransaction", "StopTransaction"}

func newTestFactory() (*Factory, *Store) {
	store := newTestStore()
	return NewFactory(store, DefaultThresholds(), riskActions, testLogger()), store
}

func TestFactory_FromAnomalyBruteForce(t *testing.T) {
	ctx := context.Background()
	factory, store := newTestFactory()

	// 12 events, 11 gaps of 72ms = 792ms span
	events := burstEvents("StartTransaction", 12, 72*time.Millisecond, model.EventStatusSuccess)
	inc := factory.FromAnomaly(ctx, anomalyOf(events), "192.168.1.100", "8080")

	assert.Equal(t, model.SeverityHigh, inc.Severity)
	assert.Equal(t, model.CategoryBruteForce, inc.Category)
	assert.InDelta(t, 0.6, inc.AITrainingData.Confidence, 1e-9)
	assert.Equal(t, model.LabelAnomaly, inc.AITrainingData.Label)
	assert.Equal(t, model.StatusOpen, inc.Status)
	assert.Equal(t, []string{"auto-detected", "anomaly", "starttransaction"}, inc.Tags)
	assert.Equal(t, int64(792), inc.Pattern.TimeWindow)
	assert.Equal(t, 12, inc.Pattern.Count)
	assert.Len(t, inc.Pattern.Events, 12)
	assert.Equal(t, "192.168.1.100", inc.SourceIP)
	assert.Equal(t, "8080", inc.Port)
	assert.Equal(t, []string{"StartTransaction"}, inc.AITrainingData.Features.ActionTypes)
	assert.InDelta(t, 100.0, inc.AITrainingData.Features.AvgDuration, 1e-9)
	assert.Zero(t, inc.AITrainingData.Features.ErrorRate)

	stored, ok := store.Get(ctx, inc.ID)
	require.True(t, ok)
	assert.Equal(t, inc.Category, stored.Category)
}

func TestFactory_Severity(t *testing.T) {
	factory, _ := newTestFactory()
	tests := []struct {
		name  string
		count int
		want  model.Severity
	}{
		{"single", 1, model.SeverityLow},
		{"four", 4, model.SeverityLow},
		{"five", 5, model.SeverityMedium},
		{"ten", 10, model.SeverityHigh},
		{"nineteen", 19, model.SeverityHigh},
		{"twenty", 20, model.SeverityCritical},
		{"thirty", 30, model.SeverityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := burstEvents("StopTransaction", tt.count, 10*time.Millisecond, model.EventStatusSuccess)
			inc := factory.BuildFromAnomaly(anomalyOf(events), "", "")
			assert.Equal(t, tt.want, inc.Severity)
			assert.LessOrEqual(t, inc.AITrainingData.Confidence, 1.0)
			assert.GreaterOrEqual(t, inc.AITrainingData.Confidence, 0.0)
		})
	}
}

func TestFactory_Category(t *testing.T) {
	factory, _ := newTestFactory()

	t.Run("rate limit for non risk action", func(t *testing.T) {
		events := burstEvents("MeterValues", 12, 50*time.Millisecond, model.EventStatusSuccess)
		inc := factory.BuildFromAnomaly(anomalyOf(events), "", "")
		assert.Equal(t, model.CategoryRateLimit, inc.Category)
	})

	t.Run("rate limit below brute force count", func(t *testing.T) {
		events := burstEvents("StartTransaction", 6, 100*time.Millisecond, model.EventStatusSuccess)
		inc := factory.BuildFromAnomaly(anomalyOf(events), "", "")
		assert.Equal(t, model.CategoryRateLimit, inc.Category)
		assert.Equal(t, model.SeverityMedium, inc.Severity)
	})

	t.Run("suspicious when mostly failing over a long window", func(t *testing.T) {
		events := burstEvents("Authorize", 4, time.Second, model.EventStatusError)
		events[0].Status = model.EventStatusWarning
		inc := factory.BuildFromAnomaly(anomalyOf(events), "", "")
		assert.Equal(t, model.CategorySuspiciousPattern, inc.Category)
		assert.InDelta(t, 1.0, inc.AITrainingData.Features.ErrorRate, 1e-9)
	})

	t.Run("plain anomaly", func(t *testing.T) {
		events := burstEvents("Authorize", 3, time.Second, model.EventStatusSuccess)
		inc := factory.BuildFromAnomaly(anomalyOf(events), "", "")
		assert.Equal(t, model.CategoryAnomaly, inc.Category)
	})
}

func TestFactory_FromAnomalyWithoutContributingEvents(t *testing.T) {
	factory, _ := newTestFactory()
	event := model.FlowEvent{ID: "solo", Timestamp: baseTime, Action: "Heartbeat", Status: model.EventStatusAnomaly}

	inc := factory.BuildFromAnomaly(event, "", "")
	assert.Equal(t, 1, inc.Pattern.Count)
	require.Len(t, inc.Pattern.Events, 1)
	assert.Equal(t, "solo", inc.Pattern.Events[0].ID)
	assert.Equal(t, int64(0), inc.Pattern.TimeWindow)
	assert.Equal(t, model.SeverityLow, inc.Severity)
	assert.InDelta(t, 0.05, inc.AITrainingData.Confidence, 1e-9)
	assert.Zero(t, inc.AITrainingData.Features.AvgDuration)
	assert.NotEmpty(t, inc.Description)
}

func TestFactory_MissingTimestampUsesDefaultWindow(t *testing.T) {
	factory, _ := newTestFactory()
	fixed := baseTime.Add(time.Hour)
	factory.now = func() time.Time { return fixed }

	inc := factory.BuildFromAnomaly(model.FlowEvent{ID: "x", Action: "Authorize"}, "", "")
	assert.Equal(t, int64(1000), inc.Pattern.TimeWindow)
	assert.True(t, fixed.Equal(inc.Timestamp))
}

func TestFactory_FromPattern(t *testing.T) {
	ctx := context.Background()
	factory, store := newTestFactory()

	events := burstEvents("MeterValues", 4, 2*time.Second, model.EventStatusSuccess)
	events[1].Status = model.EventStatusError
	events[2].Status = model.EventStatusWarning
	group := model.GroupedEvent{
		ID:             "group-MeterValues-evt-0",
		Action:         "MeterValues",
		Status:         model.EventStatusError,
		Events:         events,
		FirstTimestamp: events[0].Timestamp,
		LastTimestamp:  events[3].Timestamp,
		TotalCount:     4,
	}

	inc, ok := factory.FromPattern(ctx, group, "10.1.1.1", "9000", true)
	require.True(t, ok)
	assert.Equal(t, model.CategorySuspiciousPattern, inc.Category)
	assert.Equal(t, model.SeverityLow, inc.Severity)
	assert.Equal(t, model.LabelNormal, inc.AITrainingData.Label)
	assert.InDelta(t, 0.7, inc.AITrainingData.Confidence, 1e-9)
	assert.Equal(t, int64(6000), inc.Pattern.TimeWindow)
	assert.InDelta(t, 0.25, inc.AITrainingData.Features.ErrorRate, 1e-9)
	assert.Equal(t, []string{"pattern", "normal", "metervalues"}, inc.Tags)
	assert.True(t, group.FirstTimestamp.Equal(inc.Timestamp))
	assert.Len(t, store.Load(ctx), 1)

	suspicious, ok := factory.BuildFromPattern(group, "", "", false)
	require.True(t, ok)
	assert.Equal(t, model.LabelAnomaly, suspicious.AITrainingData.Label)
	assert.Contains(t, suspicious.Tags, "suspicious")
}

func TestFactory_FromPatternIgnoresSmallGroups(t *testing.T) {
	ctx := context.Background()
	factory, store := newTestFactory()

	events := burstEvents("Heartbeat", 2, time.Second, model.EventStatusSuccess)
	group := model.GroupedEvent{Action: "Heartbeat", Events: events, TotalCount: 2,
		FirstTimestamp: events[0].Timestamp, LastTimestamp: events[1].Timestamp}

	_, ok := factory.FromPattern(ctx, group, "", "", true)
	assert.False(t, ok)
	assert.Empty(t, store.Load(ctx))
}

func TestThresholds_WithDefaults(t *testing.T) {
	th := Thresholds{HighCount: 8}.withDefaults()
	assert.Equal(t, 8, th.HighCount)
	assert.Equal(t, 20, th.CriticalCount)
	assert.InDelta(t, 0.5, th.ErrorRateCutoff, 1e-9)
}
