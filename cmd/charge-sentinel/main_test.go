package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"charge-sentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFlag(t *testing.T) {
	assert.Nil(t, splitFlag(""))
	assert.Equal(t, []string{"high", "critical"}, splitFlag(" HIGH, ,critical "))
}

func TestCLIFilters(t *testing.T) {
	filterSeverity, filterCategory, filterStatus, filterSource = "high", "brute_force,anomaly", "", "10.0.0.1"
	t.Cleanup(func() { filterSeverity, filterCategory, filterStatus, filterSource = "", "", "", "" })

	f := cliFilters()
	assert.Equal(t, []model.Severity{model.SeverityHigh}, f.Severity)
	assert.Equal(t, []model.Category{model.CategoryBruteForce, model.CategoryAnomaly}, f.Category)
	assert.Empty(t, f.Status)
	assert.Equal(t, "10.0.0.1", f.SourceIP)
}

func TestPrintIncidents(t *testing.T) {
	var buf bytes.Buffer
	printIncidents(&buf, nil)
	assert.Equal(t, "No incidents\n", buf.String())

	buf.Reset()
	printIncidents(&buf, []model.Incident{{
		ID:        "incident-1",
		Timestamp: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		Severity:  model.SeverityHigh,
		Category:  model.CategoryBruteForce,
		Status:    model.StatusOpen,
		Title:     "Anomaly detected: StartTransaction",
	}})
	out := buf.String()
	assert.Contains(t, out, "SEVERITY")
	assert.Contains(t, out, "incident-1")
	assert.Contains(t, out, "2025-03-14 09:00:00")
}

func TestIncidentCommandsAgainstFileBackend(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	storePath := filepath.Join(dir, "incidents.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte("incidents:\n  backend: file\n  file_path: "+storePath+"\nlogging:\n  level: ERROR\n"), 0o644))
	require.NoError(t, os.WriteFile(storePath, []byte(`[{"id":"incident-1","timestamp":"2025-03-14T09:00:00Z","category":"brute_force","severity":"high","status":"open","title":"Anomaly detected: StartTransaction"}]`), 0o644))

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
		err := rootCmd.Execute()
		return out.String(), err
	}

	out, err := run("incidents", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "incident-1")

	out, err = run("incidents", "resolve", "incident-1")
	require.NoError(t, err)
	assert.Contains(t, out, "incident-1 is now resolved")

	out, err = run("stats")
	require.NoError(t, err)
	assert.Contains(t, out, `"resolved": 1`)

	_, err = run("incidents", "delete", "missing")
	assert.Error(t, err)

	out, err = run("incidents", "delete", "incident-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted incident-1")
}

func TestLoadConfigWithRulesFile(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(rulesPath, []byte(`{"rules":[{"name":"burst","enabled":true,"thresholds":{"count":8}}]}`), 0o644))

	configFile, rulesFile, logLevel = filepath.Join(dir, "absent.yaml"), rulesPath, "debug"
	t.Cleanup(func() { configFile, rulesFile, logLevel = "", "", "" })

	config, logger, err := loadConfig()
	require.NoError(t, err)
	require.Len(t, config.Rules, 1)
	assert.Equal(t, 8, config.Rules[0].IntThreshold("count", 0))
	assert.Equal(t, "MEDIUM", config.Rules[0].Severity)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.NotNil(t, logger)
}
