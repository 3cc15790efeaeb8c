package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"charge-sentinel/internal/rules"
	"charge-sentinel/internal/rules/builtin"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const envPrefix = "CHARGE_SENTINEL_"

// LoadConfig reads filename (default configs/charge_sentinel.yaml), applies
// CHARGE_SENTINEL_* environment overrides and fills defaults. A missing file
// yields DefaultConfig with the overrides applied.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		filename = DefaultConfigPath
	}

	loadDotEnv()

	config := DefaultConfig()
	data, err := os.ReadFile(filename)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	default:
		config = &Config{}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config file %s: %w", filename, err)
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// loadDotEnv loads the first .env it finds. Variables already set in the process win.
func loadDotEnv() {
	for _, path := range []string{".env", "../.env"} {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"SOURCE_IP":          &c.Application.SourceIP,
		"DESTINATION_IP":     &c.Application.DestinationIP,
		"PORT":               &c.Application.Port,
		"STORE_BACKEND":      &c.Incidents.Backend,
		"STORE_FILE":         &c.Incidents.FilePath,
		"STORE_KEY":          &c.Incidents.StoreKey,
		"REDIS_URL":          &c.Incidents.RedisURL,
		"POSTGRES_DSN":       &c.Incidents.PostgresDSN,
		"NATS_URL":           &c.Alerting.NATS.URL,
		"TELEGRAM_BOT_TOKEN": &c.Alerting.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Alerting.Telegram.ChatID,
		"API_PORT":           &c.API.Port,
		"PROMETHEUS_PORT":    &c.Prometheus.Port,
		"LOG_LEVEL":          &c.Logging.Level,
		"LOG_FORMAT":         &c.Logging.Format,
	}
	for key, field := range overrides {
		if value, ok := os.LookupEnv(envPrefix + key); ok && value != "" {
			*field = value
		}
	}
}

var validBackends = map[string]bool{"memory": true, "file": true, "redis": true, "postgres": true}

// Validate fills defaults and rejects unusable storage or alerting settings
func (c *Config) Validate() error {
	d := DefaultConfig()

	if c.Application.SourceIP == "" {
		c.Application.SourceIP = d.Application.SourceIP
	}
	if c.Application.DestinationIP == "" {
		c.Application.DestinationIP = d.Application.DestinationIP
	}
	if c.Application.Port == "" {
		c.Application.Port = d.Application.Port
	}
	if c.Application.MonitoringIntervalMS <= 0 {
		c.Application.MonitoringIntervalMS = d.Application.MonitoringIntervalMS
	}
	if c.Application.MaxHistory <= 0 {
		c.Application.MaxHistory = d.Application.MaxHistory
	}

	if len(c.Rules) == 0 {
		c.Rules = d.Rules
	}
	for i := range c.Rules {
		if c.Rules[i].Severity == "" {
			c.Rules[i].Severity = "MEDIUM"
		}
	}

	if c.Incidents.MaxIncidents <= 0 {
		c.Incidents.MaxIncidents = d.Incidents.MaxIncidents
	}
	if c.Incidents.StoreKey == "" {
		c.Incidents.StoreKey = d.Incidents.StoreKey
	}
	c.Incidents.Backend = strings.ToLower(c.Incidents.Backend)
	if c.Incidents.Backend == "" {
		c.Incidents.Backend = d.Incidents.Backend
	}
	if !validBackends[c.Incidents.Backend] {
		return fmt.Errorf("unknown incident backend %q", c.Incidents.Backend)
	}
	switch c.Incidents.Backend {
	case "file":
		if c.Incidents.FilePath == "" {
			c.Incidents.FilePath = d.Incidents.FilePath
		}
	case "redis":
		if c.Incidents.RedisURL == "" {
			return fmt.Errorf("redis backend requires incidents.redis_url")
		}
	case "postgres":
		if c.Incidents.PostgresDSN == "" {
			return fmt.Errorf("postgres backend requires incidents.postgres_dsn")
		}
	}

	if c.Traffic.MaxLogs <= 0 {
		c.Traffic.MaxLogs = d.Traffic.MaxLogs
	}

	if c.Alerting.NATS.Subject == "" {
		c.Alerting.NATS.Subject = d.Alerting.NATS.Subject
	}
	if c.Alerting.Channels.NATS && c.Alerting.NATS.URL == "" {
		return fmt.Errorf("nats channel requires alerting.nats.url")
	}
	if c.Alerting.Channels.Telegram && c.Alerting.Telegram.Enabled &&
		(c.Alerting.Telegram.BotToken == "" || c.Alerting.Telegram.ChatID == "") {
		return fmt.Errorf("telegram channel requires bot_token and chat_id")
	}

	if c.Prometheus.Port == "" {
		c.Prometheus.Port = d.Prometheus.Port
	}
	if c.API.Port == "" {
		c.API.Port = d.API.Port
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = d.API.AllowedOrigins
	}

	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}

	return nil
}

// RegisterBuiltinRules builds and registers every enabled rule named in the config
func RegisterBuiltinRules(engine *rules.Engine, config *Config, logger *logrus.Logger) {
	for _, ruleConfig := range config.Rules {
		if !ruleConfig.Enabled {
			continue
		}

		switch ruleConfig.Name {
		case "burst":
			threshold := ruleConfig.IntThreshold("count", builtin.DefaultBurstThreshold)
			windowMS := ruleConfig.IntThreshold("window_ms", int(builtin.DefaultBurstWindow/time.Millisecond))
			actions := ruleConfig.StringListCondition("actions")

			burstRule := builtin.NewBurstRule(ruleConfig.Enabled, ruleConfig.Severity, threshold,
				time.Duration(windowMS)*time.Millisecond, actions, logger)
			engine.RegisterRule(burstRule)
			logger.Infof("Burst rule: %d events within %dms (actions: %v)", burstRule.Threshold(), windowMS, actions)

		default:
			logger.Warnf("Unknown rule type: %s", ruleConfig.Name)
		}
	}
}
