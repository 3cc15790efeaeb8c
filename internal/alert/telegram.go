package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"

	"charge-sentinel/internal/model"

	"github.com/sirupsen/logrus"
)

const (
	DefaultTelegramAPI = "https://api.telegram.org"
	telegramMaxRetries = 3
)

type TelegramNotifier struct {
	botToken        string
	chatID          string
	parseMode       string
	enabled         bool
	apiBase         string
	retryDelay      time.Duration
	messageTemplate *template.Template
	client          *http.Client
	logger          *logrus.Logger
}

type TelegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type TelegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func NewTelegramNotifier(botToken, chatID, parseMode string, enabled bool, logger *logrus.Logger) *TelegramNotifier {
	return NewTelegramNotifierWithTemplate(botToken, chatID, parseMode, enabled, "", logger)
}

func NewTelegramNotifierWithTemplate(botToken, chatID, parseMode string, enabled bool, messageTemplate string, logger *logrus.Logger) *TelegramNotifier {
	tn := &TelegramNotifier{
		botToken:   botToken,
		chatID:     chatID,
		parseMode:  parseMode,
		enabled:    enabled,
		apiBase:    DefaultTelegramAPI,
		retryDelay: time.Second,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}

	if strings.TrimSpace(messageTemplate) != "" {
		funcMap := template.FuncMap{
			"formatTime": func(t time.Time, layout string) string {
				return t.Format(layout)
			},
			"upper": strings.ToUpper,
		}
		tmpl, err := template.New("telegram_message").Funcs(funcMap).Parse(messageTemplate)
		if err != nil {
			logger.Warnf("Failed to parse Telegram message template: %v, using default format", err)
		} else {
			tn.messageTemplate = tmpl
		}
	}

	return tn
}

// WithAPIBase points the notifier at a different Bot API host
func (tn *TelegramNotifier) WithAPIBase(base string, retryDelay time.Duration) *TelegramNotifier {
	tn.apiBase = strings.TrimRight(base, "/")
	tn.retryDelay = retryDelay
	return tn
}

func (tn *TelegramNotifier) Name() string { return "telegram" }

// SendIncident implements Notifier. Delivery is attempted three times with a linear backoff.
func (tn *TelegramNotifier) SendIncident(incident model.Incident) error {
	if !tn.enabled {
		tn.logger.Debug("Telegram notifier is disabled, skipping incident")
		return nil
	}

	message := tn.formatIncidentMessage(incident)

	for i := 0; i < telegramMaxRetries; i++ {
		err := tn.sendMessage(message)
		if err == nil {
			return nil
		}

		tn.logger.Warnf("Failed to send incident (attempt %d/%d): %v", i+1, telegramMaxRetries, err)

		if i < telegramMaxRetries-1 {
			time.Sleep(time.Duration(i+1) * tn.retryDelay)
		}
	}

	return fmt.Errorf("failed to send incident %s after %d attempts", incident.ID, telegramMaxRetries)
}

func (tn *TelegramNotifier) formatIncidentMessage(incident model.Incident) string {
	if tn.messageTemplate != nil {
		var buf bytes.Buffer
		err := tn.messageTemplate.Execute(&buf, incident)
		if err != nil {
			tn.logger.Warnf("Failed to execute message template: %v, using default format", err)
		} else {
			return buf.String()
		}
	}

	endpoint := incident.SourceIP
	if endpoint == "" {
		endpoint = "unknown"
	}
	if incident.Port != "" {
		endpoint += ":" + incident.Port
	}

	return fmt.Sprintf("INCIDENT OPENED: %s\n\n"+
		"id: %s\n"+
		"time: %s\n"+
		"severity: %s\n"+
		"category: %s\n"+
		"station: %s\n"+
		"requests: %d in %dms\n"+
		"reason: %s",
		incident.Title,
		incident.ID,
		incident.Timestamp.Format("2006-01-02 15:04:05"),
		incident.Severity,
		incident.Category,
		endpoint,
		incident.Pattern.Count,
		incident.Pattern.TimeWindow,
		incident.Reason)
}

func (tn *TelegramNotifier) sendMessage(text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", tn.apiBase, tn.botToken)

	// Markdown modes reject unescaped characters common in reasons
	parseMode := ""
	if tn.parseMode != "" && tn.parseMode != "Markdown" && tn.parseMode != "MarkdownV2" {
		parseMode = tn.parseMode
	}

	message := TelegramMessage{
		ChatID:    tn.chatID,
		Text:      text,
		ParseMode: parseMode,
	}

	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := tn.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var telegramResp TelegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&telegramResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !telegramResp.OK {
		return fmt.Errorf("telegram API error: %s", telegramResp.Description)
	}

	tn.logger.Infof("Incident sent to Telegram successfully")
	return nil
}

func (tn *TelegramNotifier) SendTestMessage() error {
	if !tn.enabled {
		return fmt.Errorf("telegram notifier is disabled")
	}

	return tn.sendMessage("Test Message\n\nCharge sentinel is working correctly!")
}

func (tn *TelegramNotifier) IsEnabled() bool {
	return tn.enabled
}
