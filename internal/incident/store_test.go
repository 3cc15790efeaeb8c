package incident

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"charge-sentinel/internal/model"
	"charge-sentinel/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveKeepsNewestThousand(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	incidents := make([]model.Incident, 1005)
	for i := range incidents {
		// oldest first, so truncation must reorder before cutting
		incidents[i] = sampleIncident(fmt.Sprintf("inc-%04d", i), baseTime.Add(time.Duration(i)*time.Second),
			model.CategoryAnomaly, model.SeverityLow, model.StatusOpen, "10.0.0.1")
	}
	store.Save(ctx, incidents)

	loaded := store.Load(ctx)
	require.Len(t, loaded, DefaultMaxIncidents)
	assert.Equal(t, "inc-1004", loaded[0].ID)
	assert.Equal(t, "inc-0005", loaded[len(loaded)-1].ID)
	for i := 1; i < len(loaded); i++ {
		assert.False(t, loaded[i].Timestamp.After(loaded[i-1].Timestamp), "not newest first at %d", i)
	}
	assert.Equal(t, "inc-0000", incidents[0].ID, "caller slice must not be reordered")
}

func TestStore_CreateAssignsUniqueIDs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		inc := store.Create(ctx, sampleIncident("", baseTime.Add(time.Duration(i)*time.Millisecond),
			model.CategoryAnomaly, model.SeverityLow, model.StatusOpen, "10.0.0.1"))
		assert.True(t, strings.HasPrefix(inc.ID, "incident-"))
		assert.False(t, seen[inc.ID], "duplicate id %s", inc.ID)
		seen[inc.ID] = true
	}

	loaded := store.Load(ctx)
	assert.Len(t, loaded, 50)
}

func TestStore_CreateOverridesCallerID(t *testing.T) {
	store := newTestStore()
	inc := store.Create(context.Background(), sampleIncident("mine", baseTime,
		model.CategoryAnomaly, model.SeverityLow, model.StatusOpen, "10.0.0.1"))
	assert.NotEqual(t, "mine", inc.ID)
}

func TestStore_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	fixed := baseTime.Add(time.Hour)
	store.now = func() time.Time { return fixed }

	inc := store.Create(ctx, sampleIncident("", baseTime, model.CategoryAnomaly, model.SeverityLow, model.StatusOpen, "10.0.0.1"))

	updated, ok := store.UpdateStatus(ctx, inc.ID, model.StatusInvestigating, "looking")
	require.True(t, ok)
	assert.Equal(t, model.StatusInvestigating, updated.Status)
	assert.Equal(t, "looking", updated.Notes)
	assert.Nil(t, updated.ResolvedAt)

	updated, ok = store.UpdateStatus(ctx, inc.ID, model.StatusResolved, "")
	require.True(t, ok)
	assert.Equal(t, model.StatusResolved, updated.Status)
	assert.Equal(t, "looking", updated.Notes, "empty notes keep the previous value")
	require.NotNil(t, updated.ResolvedAt)
	assert.True(t, fixed.Equal(*updated.ResolvedAt))

	got, ok := store.Get(ctx, inc.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)

	reopened, ok := store.UpdateStatus(ctx, inc.ID, model.StatusOpen, "")
	require.True(t, ok)
	assert.Equal(t, model.StatusOpen, reopened.Status)
}

func TestStore_UpdateStatusUnknownID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	store.Create(ctx, sampleIncident("", baseTime, model.CategoryAnomaly, model.SeverityLow, model.StatusOpen, "10.0.0.1"))

	_, ok := store.UpdateStatus(ctx, "incident-missing", model.StatusResolved, "")
	assert.False(t, ok)
	assert.Equal(t, model.StatusOpen, store.Load(ctx)[0].Status)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	a := store.Create(ctx, sampleIncident("", baseTime, model.CategoryAnomaly, model.SeverityLow, model.StatusOpen, "10.0.0.1"))
	b := store.Create(ctx, sampleIncident("", baseTime.Add(time.Second), model.CategoryAnomaly, model.SeverityLow, model.StatusOpen, "10.0.0.1"))

	assert.True(t, store.Delete(ctx, a.ID))
	assert.False(t, store.Delete(ctx, a.ID))

	loaded := store.Load(ctx)
	require.Len(t, loaded, 1)
	assert.Equal(t, b.ID, loaded[0].ID)
}

func TestStore_CorruptBlobLoadsEmpty(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Write(ctx, []byte("{not json")))

	store := NewStore(backend, 10, testLogger())
	assert.Empty(t, store.Load(ctx))
}

func TestStore_BackendFailures(t *testing.T) {
	ctx := context.Background()
	store := NewStore(failingBackend{}, 10, testLogger())

	assert.NotNil(t, store.Load(ctx))
	assert.Empty(t, store.Load(ctx))
	assert.NotPanics(t, func() {
		store.Save(ctx, []model.Incident{sampleIncident("x", baseTime, model.CategoryAnomaly, model.SeverityLow, model.StatusOpen, "")})
	})
	assert.False(t, store.Delete(ctx, "x"))
}

func TestStore_SizeObserver(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemoryBackend(), 2, testLogger())

	var sizes []int
	store.SetSizeObserver(func(n int) { sizes = append(sizes, n) })
	for i := 0; i < 3; i++ {
		store.Create(ctx, sampleIncident("", baseTime.Add(time.Duration(i)*time.Second),
			model.CategoryAnomaly, model.SeverityLow, model.StatusOpen, ""))
	}
	assert.Equal(t, []int{1, 2, 2}, sizes)
}

func TestStore_ListAndExport(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	store.Save(ctx, []model.Incident{
		sampleIncident("a", baseTime, model.CategoryAnomaly, model.SeverityCritical, model.StatusOpen, "10.0.0.1"),
		sampleIncident("b", baseTime.Add(time.Second), model.CategoryRateLimit, model.SeverityLow, model.StatusOpen, "10.0.0.2"),
		sampleIncident("c", baseTime.Add(2*time.Second), model.CategoryBruteForce, model.SeverityCritical, model.StatusResolved, "10.0.0.1"),
	})

	assert.Len(t, store.List(ctx, nil), 3)
	critical := store.List(ctx, &Filters{Severity: []model.Severity{model.SeverityCritical}})
	require.Len(t, critical, 2)
	assert.Equal(t, "c", critical[0].ID)

	records := store.ExportForTraining(ctx, &Filters{SourceIP: "10.0.0.2"})
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].IncidentID)

	stats := store.Stats(ctx)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Critical)
}
