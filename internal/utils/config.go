package utils

import (
	"fmt"
	"os"
	"time"

	"charge-sentinel/internal/incident"
	"charge-sentinel/internal/model"
	"charge-sentinel/internal/rules/builtin"
	"charge-sentinel/internal/storage"
	"charge-sentinel/internal/traffic"

	"gopkg.in/yaml.v3"
)

const DefaultConfigPath = "configs/charge_sentinel.yaml"

type Config struct {
	Application ApplicationConfig `yaml:"application"`
	Rules       []model.Rule      `yaml:"rules"`
	Incidents   IncidentsConfig   `yaml:"incidents"`
	Traffic     TrafficConfig     `yaml:"traffic"`
	Alerting    AlertingConfig    `yaml:"alerting"`
	Prometheus  PrometheusConfig  `yaml:"prometheus"`
	API         APIConfig         `yaml:"api"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ApplicationConfig describes the monitored charge point endpoint
type ApplicationConfig struct {
	SourceIP             string `yaml:"source_ip"`
	DestinationIP        string `yaml:"destination_ip"`
	Port                 string `yaml:"port"`
	MonitoringIntervalMS int    `yaml:"monitoring_interval_ms"`
	MaxHistory           int    `yaml:"max_history"`
	SimulationSeed       int64  `yaml:"simulation_seed"`
}

type IncidentsConfig struct {
	MaxIncidents int                 `yaml:"max_incidents"`
	StoreKey     string              `yaml:"store_key"`
	Backend      string              `yaml:"backend"`
	FilePath     string              `yaml:"file_path"`
	RedisURL     string              `yaml:"redis_url"`
	PostgresDSN  string              `yaml:"postgres_dsn"`
	Thresholds   incident.Thresholds `yaml:"thresholds"`
}

type TrafficConfig struct {
	MaxLogs int `yaml:"max_logs"`
}

type AlertingConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Channels AlertChannels  `yaml:"channels"`
	NATS     NATSConfig     `yaml:"nats"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type AlertChannels struct {
	Log      bool `yaml:"log"`
	NATS     bool `yaml:"nats"`
	Telegram bool `yaml:"telegram"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type TelegramConfig struct {
	BotToken        string `yaml:"bot_token"`
	ChatID          string `yaml:"chat_id"`
	ParseMode       string `yaml:"parse_mode"`
	Enabled         bool   `yaml:"enabled"`
	MessageTemplate string `yaml:"message_template,omitempty"`
}

type PrometheusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"`
}

type APIConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			SourceIP:             "192.168.1.100",
			DestinationIP:        "192.168.1.50",
			Port:                 "8080",
			MonitoringIntervalMS: 2000,
			MaxHistory:           500,
			SimulationSeed:       1,
		},
		Rules: []model.Rule{defaultBurstRule()},
		Incidents: IncidentsConfig{
			MaxIncidents: incident.DefaultMaxIncidents,
			StoreKey:     incident.DefaultStoreKey,
			Backend:      "memory",
			FilePath:     "data/incidents.json",
			Thresholds:   incident.DefaultThresholds(),
		},
		Traffic: TrafficConfig{
			MaxLogs: traffic.DefaultMaxLogs,
		},
		Alerting: AlertingConfig{
			Enabled: true,
			Channels: AlertChannels{
				Log: true,
			},
			NATS: NATSConfig{
				URL:     "nats://localhost:4222",
				Subject: "charge_sentinel.incidents",
			},
			Telegram: TelegramConfig{
				ParseMode: "HTML",
			},
		},
		Prometheus: PrometheusConfig{
			Enabled: true,
			Port:    "9102",
		},
		API: APIConfig{
			Port:           "5001",
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

func defaultBurstRule() model.Rule {
	actions := make([]interface{}, len(builtin.DefaultRiskActions))
	for i, a := range builtin.DefaultRiskActions {
		actions[i] = a
	}
	return model.Rule{
		Name:        "burst",
		Enabled:     true,
		Severity:    "HIGH",
		Description: "Too many state-changing requests from one charge point inside the window",
		Type:        "burst",
		Thresholds: map[string]interface{}{
			"count":     builtin.DefaultBurstThreshold,
			"window_ms": int(builtin.DefaultBurstWindow / time.Millisecond),
		},
		Conditions: []model.Condition{
			{Field: "actions", Operator: "in", Value: actions},
		},
	}
}

func (c *Config) MonitoringInterval() time.Duration {
	return time.Duration(c.Application.MonitoringIntervalMS) * time.Millisecond
}

func (c *Config) BackendOptions() storage.Options {
	return storage.Options{
		Kind:        c.Incidents.Backend,
		Key:         c.Incidents.StoreKey,
		FilePath:    c.Incidents.FilePath,
		RedisURL:    c.Incidents.RedisURL,
		PostgresDSN: c.Incidents.PostgresDSN,
	}
}

func (c *Config) Endpoint() traffic.Endpoint {
	return traffic.Endpoint{
		SourceIP:      c.Application.SourceIP,
		DestinationIP: c.Application.DestinationIP,
		Port:          traffic.ParsePort(c.Application.Port),
	}
}

func (c *Config) GetRuleConfigByName(name string) (*model.Rule, bool) {
	for i := range c.Rules {
		if c.Rules[i].Name == name {
			return &c.Rules[i], true
		}
	}
	return nil, false
}

func (c *Config) IsRuleEnabled(name string) bool {
	rule, exists := c.GetRuleConfigByName(name)
	return exists && rule.Enabled
}

// RiskActions returns the burst rule's action list, falling back to the defaults
func (c *Config) RiskActions() []string {
	if rule, ok := c.GetRuleConfigByName("burst"); ok {
		if actions := rule.StringListCondition("actions"); len(actions) > 0 {
			return actions
		}
	}
	return builtin.DefaultRiskActions
}

// SaveConfig writes the configuration as YAML
func (c *Config) SaveConfig(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}

	return nil
}
