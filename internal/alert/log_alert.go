package alert

import (
	"charge-sentinel/internal/model"

	"github.com/sirupsen/logrus"
)

// LogNotifier writes incidents to the local log
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger,
	}
}

func (ln *LogNotifier) Name() string { return "log" }

// SendIncident implements Notifier
func (ln *LogNotifier) SendIncident(incident model.Incident) error {
	ln.logger.WithFields(logrus.Fields{
		"incident_id": incident.ID,
		"category":    incident.Category,
		"source_ip":   incident.SourceIP,
		"count":       incident.Pattern.Count,
	}).Warnf("INCIDENT [%s] %s: %s", incident.Severity, incident.Title, incident.Reason)
	return nil
}
