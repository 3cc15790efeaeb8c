package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"charge-sentinel/internal/model"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a rules file
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

type ruleFile struct {
	Rules []model.Rule `yaml:"rules" json:"rules"`
}

// LoadRules reads a rules file. The extension picks the format; anything else is
// sniffed, JSON when the content starts with '{'.
func LoadRules(filename string) ([]model.Rule, error) {
	if filename == "" {
		return nil, fmt.Errorf("rules file path is empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	rules, err := ParseRules(data, formatOf(filename, data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return rules, nil
}

// ParseRules decodes and validates a rules document
func ParseRules(data []byte, format Format) ([]model.Rule, error) {
	var file ruleFile
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse JSON rules: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse YAML rules: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported rules format %q", format)
	}

	if err := validateRules(file.Rules); err != nil {
		return nil, err
	}
	return file.Rules, nil
}

func formatOf(filename string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return FormatJSON
	}
	return FormatYAML
}

// validateRules requires unique non-empty names and non-negative numeric thresholds.
// Severities are upper-cased.
func validateRules(rules []model.Rule) error {
	seen := make(map[string]bool, len(rules))
	for i := range rules {
		r := &rules[i]
		if r.Name == "" {
			return fmt.Errorf("rule %d has no name", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate rule %q", r.Name)
		}
		seen[r.Name] = true

		r.Severity = strings.ToUpper(r.Severity)
		for key := range r.Thresholds {
			if r.IntThreshold(key, 0) < 0 {
				return fmt.Errorf("rule %q: threshold %s must not be negative", r.Name, key)
			}
		}
	}
	return nil
}
