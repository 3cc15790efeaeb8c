package incident

import "charge-sentinel/internal/model"

// Stats is a rollup over a list of incidents. Open counts open and investigating.
type Stats struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"byCategory"`
	BySeverity map[string]int `json:"bySeverity"`
	ByStatus   map[string]int `json:"byStatus"`
	Open       int            `json:"open"`
	Critical   int            `json:"critical"`
}

func ComputeStats(incidents []model.Incident) Stats {
	stats := Stats{
		Total:      len(incidents),
		ByCategory: make(map[string]int),
		BySeverity: make(map[string]int),
		ByStatus:   make(map[string]int),
	}
	for _, inc := range incidents {
		stats.ByCategory[string(inc.Category)]++
		stats.BySeverity[string(inc.Severity)]++
		stats.ByStatus[string(inc.Status)]++
		if inc.Status.Active() {
			stats.Open++
		}
		if inc.Severity == model.SeverityCritical {
			stats.Critical++
		}
	}
	return stats
}
