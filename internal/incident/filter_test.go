package incident

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"charge-sentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterFixture() []model.Incident {
	return []model.Incident{
		sampleIncident("a", baseTime, model.CategoryBruteForce, model.SeverityCritical, model.StatusOpen, "10.0.0.1"),
		sampleIncident("b", baseTime.Add(time.Minute), model.CategoryRateLimit, model.SeverityMedium, model.StatusInvestigating, "10.0.0.2"),
		sampleIncident("c", baseTime.Add(2*time.Minute), model.CategoryAnomaly, model.SeverityLow, model.StatusResolved, "10.0.0.1"),
		sampleIncident("d", baseTime.Add(3*time.Minute), model.CategoryBruteForce, model.SeverityHigh, model.StatusFalsePositive, "10.0.0.10"),
	}
}

func ids(incidents []model.Incident) []string {
	out := make([]string, len(incidents))
	for i, inc := range incidents {
		out[i] = inc.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	incidents := filterFixture()
	tests := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{"empty", Filters{}, []string{"a", "b", "c", "d"}},
		{"category", Filters{Category: []model.Category{model.CategoryBruteForce}}, []string{"a", "d"}},
		{"severity set", Filters{Severity: []model.Severity{model.SeverityLow, model.SeverityMedium}}, []string{"b", "c"}},
		{"status", Filters{Status: []model.Status{model.StatusResolved}}, []string{"c"}},
		{"source ip exact", Filters{SourceIP: "10.0.0.1"}, []string{"a", "c"}},
		{"unknown values ignored", Filters{Category: []model.Category{"bogus"}}, []string{"a", "b", "c", "d"}},
		{"unknown mixed with known", Filters{Severity: []model.Severity{"bogus", model.SeverityHigh}}, []string{"d"}},
		{"date range inclusive", Filters{DateRange: &DateRange{Start: baseTime.Add(time.Minute), End: baseTime.Add(2 * time.Minute)}}, []string{"b", "c"}},
		{"open start", Filters{DateRange: &DateRange{End: baseTime}}, []string{"a"}},
		{"open end", Filters{DateRange: &DateRange{Start: baseTime.Add(3 * time.Minute)}}, []string{"d"}},
		{"inverted range ignored", Filters{DateRange: &DateRange{Start: baseTime.Add(time.Hour), End: baseTime}}, []string{"a", "b", "c", "d"}},
		{"combined", Filters{Category: []model.Category{model.CategoryBruteForce}, SourceIP: "10.0.0.1"}, []string{"a"}},
		{"no match", Filters{SourceIP: "172.16.0.1"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(incidents, tt.filters)))
		})
	}
}

func TestFilters_IsEmpty(t *testing.T) {
	assert.True(t, Filters{}.IsEmpty())
	assert.False(t, Filters{SourceIP: "x"}.IsEmpty())
}

func randomIncidents(r *rand.Rand, n int) []model.Incident {
	ips := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
	out := make([]model.Incident, n)
	for i := range out {
		out[i] = sampleIncident(fmt.Sprintf("r-%d", i),
			baseTime.Add(time.Duration(r.Intn(3600))*time.Second),
			model.Categories[r.Intn(len(model.Categories))],
			model.Severities[r.Intn(len(model.Severities))],
			model.Statuses[r.Intn(len(model.Statuses))],
			ips[r.Intn(len(ips))])
	}
	return out
}

func randomFilters(r *rand.Rand) Filters {
	var f Filters
	if r.Intn(2) == 0 {
		f.Category = []model.Category{model.Categories[r.Intn(len(model.Categories))]}
	}
	if r.Intn(2) == 0 {
		f.Severity = []model.Severity{model.Severities[r.Intn(len(model.Severities))], model.Severities[r.Intn(len(model.Severities))]}
	}
	if r.Intn(2) == 0 {
		f.Status = []model.Status{model.Statuses[r.Intn(len(model.Statuses))]}
	}
	if r.Intn(3) == 0 {
		f.SourceIP = "10.0.0.2"
	}
	if r.Intn(3) == 0 {
		start := baseTime.Add(time.Duration(r.Intn(1800)) * time.Second)
		f.DateRange = &DateRange{Start: start, End: start.Add(30 * time.Minute)}
	}
	return f
}

// adding criteria never grows the result
func TestFilter_Monotonic(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	incidents := randomIncidents(r, 300)

	for i := 0; i < 200; i++ {
		base := randomFilters(r)
		extra := randomFilters(r)

		combined := base
		if len(combined.Category) == 0 {
			combined.Category = extra.Category
		}
		if len(combined.Severity) == 0 {
			combined.Severity = extra.Severity
		}
		if len(combined.Status) == 0 {
			combined.Status = extra.Status
		}
		if combined.SourceIP == "" {
			combined.SourceIP = extra.SourceIP
		}
		if combined.DateRange == nil {
			combined.DateRange = extra.DateRange
		}

		narrow := Filter(incidents, combined)
		wide := Filter(incidents, base)
		require.LessOrEqual(t, len(narrow), len(wide))

		pred := base.Compile()
		for _, inc := range narrow {
			assert.True(t, pred(inc))
		}
	}
}
