package incident

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"testing"

	"charge-sentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportForTraining(t *testing.T) {
	incidents := filterFixture()
	records := ExportForTraining(incidents)

	require.Len(t, records, len(incidents))
	assert.Equal(t, "a", records[0].IncidentID)
	assert.Equal(t, "10.0.0.1", records[0].Metadata.SourceIP)
	assert.Equal(t, model.CategoryBruteForce, records[0].Metadata.Category)
	assert.Equal(t, model.SeverityCritical, records[0].Metadata.Severity)
	assert.Equal(t, model.LabelAnomaly, records[0].Label)
	assert.Equal(t, incidents[0].AITrainingData.Features, records[0].Features)

	assert.Empty(t, ExportForTraining(nil))
}

func TestExportForTraining_CriticalOnly(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	incidents := randomIncidents(r, 120)

	critical := 0
	for _, inc := range incidents {
		if inc.Severity == model.SeverityCritical {
			critical++
		}
	}

	records := ExportForTraining(Filter(incidents, Filters{Severity: []model.Severity{model.SeverityCritical}}))
	assert.Len(t, records, critical)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, ExportForTraining(filterFixture()[:1])))

	assert.Contains(t, buf.String(), "\n  {\n    \"incidentId\": \"a\"")

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded, 1)
	assert.Contains(t, decoded[0], "metadata")
}
