package traffic

import (
	"strings"

	"charge-sentinel/internal/model"
)

// All disables a protocol or status filter
const All = "all"

// LogFilter mirrors the traffic table controls. Empty or "all" disables a dimension.
type LogFilter struct {
	Protocol string `json:"protocol,omitempty"`
	Status   string `json:"status,omitempty"`
	Search   string `json:"search,omitempty"`
}

func (f LogFilter) Compile() func(model.TrafficLog) bool {
	protocol := f.Protocol
	status := f.Status
	search := strings.ToLower(strings.TrimSpace(f.Search))

	return func(l model.TrafficLog) bool {
		if protocol != "" && protocol != All && string(l.Protocol) != protocol {
			return false
		}
		if status != "" && status != All && string(l.Status) != status {
			return false
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(l.SourceIP), search) &&
			!strings.Contains(strings.ToLower(l.DestinationIP), search) &&
			!strings.Contains(strings.ToLower(l.Action), search) {
			return false
		}
		return true
	}
}

// Filter returns the logs that match, preserving order
func Filter(logs []model.TrafficLog, f LogFilter) []model.TrafficLog {
	match := f.Compile()
	out := make([]model.TrafficLog, 0, len(logs))
	for _, l := range logs {
		if match(l) {
			out = append(out, l)
		}
	}
	return out
}
