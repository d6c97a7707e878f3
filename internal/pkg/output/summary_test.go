package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dispatchSummary() *SummaryInfo {
	s := NewSummaryInfo()
	s.AddMetric("Доставок", "2", "")
	s.AddMetric("Получателей", "5", "чел")
	s.AddWarning("канал email пропущен")
	return s
}

func TestSummaryInfo_Add(t *testing.T) {
	s := dispatchSummary()

	require.Len(t, s.KeyMetrics, 2)
	assert.Equal(t, KeyMetric{Name: "Получателей", Value: "5", Unit: "чел"}, s.KeyMetrics[1])
	assert.Equal(t, 1, s.WarningsCount)
	assert.Equal(t, []string{"канал email пропущен"}, s.Warnings)

	empty, err := json.Marshal(&SummaryInfo{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"warnings_count":0}`, string(empty))
}

func TestJSONWriter_SummaryInMetadata(t *testing.T) {
	meta := &Metadata{DurationMs: 12, TraceID: "t1", APIVersion: APIVersion}
	result := &Result{Status: StatusSuccess, Command: "fire", Summary: dispatchSummary(), Metadata: meta}

	var buf bytes.Buffer
	require.NoError(t, NewJSONWriter().Write(&buf, result))

	var parsed struct {
		Summary  any `json:"summary"`
		Metadata struct {
			Summary *SummaryInfo `json:"summary"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Nil(t, parsed.Summary, "summary выводится только внутри metadata")
	require.NotNil(t, parsed.Metadata.Summary)
	assert.Equal(t, "Доставок", parsed.Metadata.Summary.KeyMetrics[0].Name)
	assert.Nil(t, meta.Summary, "входной Metadata не изменяется")
}

func TestJSONWriter_SummaryWithoutMetadata(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONWriter().Write(&buf, &Result{Status: StatusSuccess, Command: "fire", Summary: dispatchSummary()}))
	assert.NotContains(t, buf.String(), "summary")
	assert.NotContains(t, buf.String(), "metadata")
}

func TestTextWriter_Summary(t *testing.T) {
	result := &Result{
		Status:   StatusSuccess,
		Command:  "fire",
		Summary:  dispatchSummary(),
		Metadata: &Metadata{DurationMs: 1500, APIVersion: APIVersion},
	}

	var buf bytes.Buffer
	require.NoError(t, NewTextWriter().Write(&buf, result))

	out := buf.String()
	assert.Contains(t, out, "📊 Сводка")
	assert.Contains(t, out, "⏱️  Время выполнения: 1.5с")
	assert.Contains(t, out, "📈 Доставок: 2\n")
	assert.Contains(t, out, "📈 Получателей: 5 чел")
	assert.Contains(t, out, "⚠️  Предупреждений: 1")
	assert.Contains(t, out, "• канал email пропущен")
}

func TestTextWriter_SummaryAbsent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTextWriter().Write(&buf, &Result{Status: StatusSuccess, Command: "alerts"}))

	out := buf.String()
	assert.Contains(t, out, "📊 Сводка")
	assert.NotContains(t, out, "⏱️")
	assert.NotContains(t, out, "📈")
	assert.NotContains(t, out, "⚠️")
}

func TestFormatDuration(t *testing.T) {
	tests := map[int64]string{
		500:    "500мс",
		1000:   "1.0с",
		2500:   "2.5с",
		60000:  "1м 0с",
		125000: "2м 5с",
	}
	for ms, want := range tests {
		assert.Equal(t, want, formatDuration(ms), "%d мс", ms)
	}
}
