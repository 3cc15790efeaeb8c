package traffic

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"charge-sentinel/internal/model"
)

// Endpoint identifies the two sides of the monitored OCPP connection
type Endpoint struct {
	SourceIP      string
	DestinationIP string
	Port          int
}

// FromEvent renders a flow event as a traffic log row. Anomalies show as suspicious.
func FromEvent(e model.FlowEvent, ep Endpoint) model.TrafficLog {
	status := model.TrafficSuccess
	switch e.Status {
	case model.EventStatusError:
		status = model.TrafficError
	case model.EventStatusWarning:
		status = model.TrafficWarning
	case model.EventStatusAnomaly:
		status = model.TrafficSuspicious
	case model.EventStatusSuccess:
	}
	if e.IsAnomaly {
		status = model.TrafficSuspicious
	}

	var size int64
	if e.Size != nil {
		size = *e.Size
	}
	message := e.Message
	if message == "" && e.AnomalyReason != "" {
		message = e.AnomalyReason
	}

	return model.TrafficLog{
		ID:            e.ID,
		Timestamp:     e.Timestamp,
		SourceIP:      ep.SourceIP,
		DestinationIP: ep.DestinationIP,
		Port:          ep.Port,
		Protocol:      model.ProtocolOCPP,
		Method:        "CALL",
		Action:        e.Action,
		Status:        status,
		Size:          size,
		Duration:      e.Duration,
		Message:       message,
	}
}

// ParsePort converts a configured port string, returning 0 when it is not numeric
func ParsePort(port string) int {
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 {
		return 0
	}
	return p
}

// ExportJSON writes logs as two-space indented JSON
func ExportJSON(w io.Writer, logs []model.TrafficLog) error {
	if logs == nil {
		logs = []model.TrafficLog{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(logs); err != nil {
		return fmt.Errorf("failed to encode traffic logs: %w", err)
	}
	return nil
}
