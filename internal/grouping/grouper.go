// Package grouping aggregates a flat event stream into per-action display groups.
package grouping

import (
	"sort"

	"charge-sentinel/internal/model"
)

// Group partitions events by action. Events already flagged as anomalous become their
// own singleton group. Output is ordered by each group's first timestamp; ties keep the
// order in which groups were first seen. Every input event appears in exactly one group.
func Group(events []model.FlowEvent) []model.GroupedEvent {
	partitions := make(map[string][]model.FlowEvent)
	var order []string
	var anomalies []model.GroupedEvent

	for _, e := range events {
		if e.IsFlaggedAnomaly() {
			anomalies = append(anomalies, model.GroupedEvent{
				ID:             e.ID,
				Action:         e.Action,
				Status:         model.EventStatusAnomaly,
				Events:         []model.FlowEvent{e},
				FirstTimestamp: e.Timestamp,
				LastTimestamp:  e.Timestamp,
				TotalCount:     1,
				IsAnomaly:      true,
				AnomalyReason:  e.AnomalyReason,
			})
			continue
		}
		if _, ok := partitions[e.Action]; !ok {
			order = append(order, e.Action)
		}
		partitions[e.Action] = append(partitions[e.Action], e)
	}

	groups := make([]model.GroupedEvent, 0, len(order)+len(anomalies))
	for _, action := range order {
		members := partitions[action]
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].Timestamp.Before(members[j].Timestamp)
		})
		first, last := members[0], members[len(members)-1]
		groups = append(groups, model.GroupedEvent{
			ID:             "group-" + action + "-" + first.ID,
			Action:         action,
			Status:         rollUpStatus(members),
			Events:         members,
			FirstTimestamp: first.Timestamp,
			LastTimestamp:  last.Timestamp,
			TotalCount:     len(members),
		})
	}
	groups = append(groups, anomalies...)

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].FirstTimestamp.Before(groups[j].FirstTimestamp)
	})
	return groups
}

// rollUpStatus returns the worst status seen: error > warning > success.
func rollUpStatus(events []model.FlowEvent) model.EventStatus {
	status := model.EventStatusSuccess
	for _, e := range events {
		switch e.Status {
		case model.EventStatusError:
			return model.EventStatusError
		case model.EventStatusWarning:
			status = model.EventStatusWarning
		}
	}
	return status
}
