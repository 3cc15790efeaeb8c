package incident

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"charge-sentinel/internal/model"
)

type TrainingMetadata struct {
	SourceIP string         `json:"sourceIP"`
	Category model.Category `json:"category"`
	Severity model.Severity `json:"severity"`
}

// TrainingRecord is the flattened row handed to the offline classifier
type TrainingRecord struct {
	IncidentID string           `json:"incidentId"`
	Timestamp  time.Time        `json:"timestamp"`
	Features   model.Features   `json:"features"`
	Label      model.Label      `json:"label"`
	Metadata   TrainingMetadata `json:"metadata"`
}

// ExportForTraining projects each incident to a training record. No filtering.
func ExportForTraining(incidents []model.Incident) []TrainingRecord {
	records := make([]TrainingRecord, len(incidents))
	for i, inc := range incidents {
		records[i] = TrainingRecord{
			IncidentID: inc.ID,
			Timestamp:  inc.Timestamp,
			Features:   inc.AITrainingData.Features,
			Label:      inc.AITrainingData.Label,
			Metadata: TrainingMetadata{
				SourceIP: inc.SourceIP,
				Category: inc.Category,
				Severity: inc.Severity,
			},
		}
	}
	return records
}

// WriteJSON writes v as two-space indented JSON
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}
