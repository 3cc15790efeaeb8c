package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"charge-sentinel/internal/incident"
	"charge-sentinel/internal/model"
	"charge-sentinel/internal/traffic"
)

// parseIncidentFilters reads category, severity, status, source_ip, start and end.
// Malformed values are ignored rather than rejected.
func parseIncidentFilters(r *http.Request) incident.Filters {
	q := r.URL.Query()
	filters := incident.Filters{
		SourceIP: strings.TrimSpace(q.Get("source_ip")),
	}

	for _, v := range splitList(q.Get("category")) {
		if c := model.Category(v); c.Valid() {
			filters.Category = append(filters.Category, c)
		}
	}
	for _, v := range splitList(q.Get("severity")) {
		if s := model.Severity(v); s.Valid() {
			filters.Severity = append(filters.Severity, s)
		}
	}
	for _, v := range splitList(q.Get("status")) {
		if s := model.Status(v); s.Valid() {
			filters.Status = append(filters.Status, s)
		}
	}

	start, startOK := parseTime(q.Get("start"))
	end, endOK := parseTime(q.Get("end"))
	if startOK || endOK {
		filters.DateRange = &incident.DateRange{Start: start, End: end}
	}

	return filters
}

func parseTrafficFilter(r *http.Request) traffic.LogFilter {
	q := r.URL.Query()
	return traffic.LogFilter{
		Protocol: q.Get("protocol"),
		Status:   q.Get("status"),
		Search:   q.Get("search"),
	}
}

func parsePaging(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	return page, limit
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
