package alert

import (
	"encoding/json"
	"fmt"
	"time"

	"charge-sentinel/internal/model"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const DefaultIncidentSubject = "charge_sentinel.incidents"

// msgPublisher is the part of *nats.Conn the notifier needs
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
	Close()
}

// NATSNotifier publishes each incident as JSON on a subject
type NATSNotifier struct {
	conn    msgPublisher
	subject string
	logger  *logrus.Logger
}

func NewNATSNotifier(url, subject string, logger *logrus.Logger) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("charge-sentinel"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	logger.Infof("Connected to NATS at %s", url)
	return newNATSNotifier(conn, subject, logger), nil
}

func newNATSNotifier(conn msgPublisher, subject string, logger *logrus.Logger) *NATSNotifier {
	if subject == "" {
		subject = DefaultIncidentSubject
	}
	return &NATSNotifier{
		conn:    conn,
		subject: subject,
		logger:  logger,
	}
}

func (nn *NATSNotifier) Name() string { return "nats" }

// SendIncident implements Notifier
func (nn *NATSNotifier) SendIncident(incident model.Incident) error {
	data, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident: %w", err)
	}

	msg := nats.NewMsg(nn.subject)
	msg.Data = data
	msg.Header.Set("x-incident-id", incident.ID)
	msg.Header.Set("x-severity", string(incident.Severity))
	msg.Header.Set("x-category", string(incident.Category))

	if err := nn.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish incident %s: %w", incident.ID, err)
	}

	nn.logger.Debugf("Published incident %s to %s", incident.ID, nn.subject)
	return nil
}

func (nn *NATSNotifier) Close() {
	if nn.conn != nil {
		nn.conn.Close()
	}
}
