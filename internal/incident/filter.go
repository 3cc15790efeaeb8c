package incident

import (
	"time"

	"charge-sentinel/internal/model"
)

// DateRange bounds are inclusive. A zero bound is open.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Filters is a sparse set of criteria. Absent or empty dimensions accept everything.
type Filters struct {
	Category  []model.Category `json:"category,omitempty"`
	Severity  []model.Severity `json:"severity,omitempty"`
	Status    []model.Status   `json:"status,omitempty"`
	SourceIP  string           `json:"sourceIP,omitempty"`
	DateRange *DateRange       `json:"dateRange,omitempty"`
}

// IsEmpty reports whether no criterion is set
func (f Filters) IsEmpty() bool {
	return len(f.Category) == 0 && len(f.Severity) == 0 && len(f.Status) == 0 &&
		f.SourceIP == "" && f.DateRange == nil
}

type Predicate func(model.Incident) bool

// Compile turns the criteria into a single predicate, the AND of one predicate per
// dimension. Unknown enum values are dropped; a dimension left empty after that
// accepts everything.
func (f Filters) Compile() Predicate {
	preds := []Predicate{
		setPredicate(f.Category, model.Category.Valid, func(i model.Incident) model.Category { return i.Category }),
		setPredicate(f.Severity, model.Severity.Valid, func(i model.Incident) model.Severity { return i.Severity }),
		setPredicate(f.Status, model.Status.Valid, func(i model.Incident) model.Status { return i.Status }),
		sourceIPPredicate(f.SourceIP),
		dateRangePredicate(f.DateRange),
	}
	return func(inc model.Incident) bool {
		for _, p := range preds {
			if !p(inc) {
				return false
			}
		}
		return true
	}
}

// Filter returns the incidents matching every criterion, preserving order
func Filter(incidents []model.Incident, f Filters) []model.Incident {
	pred := f.Compile()
	out := make([]model.Incident, 0, len(incidents))
	for _, inc := range incidents {
		if pred(inc) {
			out = append(out, inc)
		}
	}
	return out
}

func acceptAll(model.Incident) bool { return true }

func setPredicate[T comparable](values []T, valid func(T) bool, field func(model.Incident) T) Predicate {
	set := make(map[T]bool, len(values))
	for _, v := range values {
		if valid(v) {
			set[v] = true
		}
	}
	if len(set) == 0 {
		return acceptAll
	}
	return func(inc model.Incident) bool {
		return set[field(inc)]
	}
}

func sourceIPPredicate(ip string) Predicate {
	if ip == "" {
		return acceptAll
	}
	return func(inc model.Incident) bool {
		return inc.SourceIP == ip
	}
}

// dateRangePredicate treats an inverted range as malformed and accepts everything
func dateRangePredicate(r *DateRange) Predicate {
	if r == nil || (r.Start.IsZero() && r.End.IsZero()) {
		return acceptAll
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return acceptAll
	}
	start, end := r.Start, r.End
	return func(inc model.Incident) bool {
		if !start.IsZero() && inc.Timestamp.Before(start) {
			return false
		}
		if !end.IsZero() && inc.Timestamp.After(end) {
			return false
		}
		return true
	}
}
