package output

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONWriter_ImplementsWriter(_ *testing.T) {
	var _ Writer = (*JSONWriter)(nil)
}

// loadSchema загружает JSON Schema результата команды.
func loadSchema(t *testing.T) *jsonschema.Schema {
	t.Helper()
	schemaPath := filepath.Join("testdata", "schema", "result.schema.json")
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaPath)
	require.NoError(t, err, "не удалось загрузить JSON Schema")
	return schema
}

func writeJSON(t *testing.T, result *Result) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, NewJSONWriter().Write(&buf, result))
	return buf.Bytes()
}

func validate(t *testing.T, schema *jsonschema.Schema, data []byte) error {
	t.Helper()
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	require.NoError(t, err)
	return schema.Validate(inst)
}

func TestJSONWriter_Write_SuccessResult(t *testing.T) {
	result := &Result{
		Status:  StatusSuccess,
		Command: "fire",
		Data:    map[string]string{"alert": "build_failed"},
		Metadata: &Metadata{
			DurationMs: 150,
			APIVersion: APIVersion,
		},
	}

	assert.JSONEq(t, `{
		"status": "success",
		"command": "fire",
		"data": {"alert": "build_failed"},
		"metadata": {"duration_ms": 150, "api_version": "v1"}
	}`, string(writeJSON(t, result)))
}

func TestJSONWriter_Write_SchemaValidation(t *testing.T) {
	schema := loadSchema(t)

	tests := []struct {
		name   string
		result *Result
	}{
		{
			name: "success",
			result: &Result{
				Status:   StatusSuccess,
				Command:  "fire",
				Data:     map[string]int{"channels": 2},
				Metadata: &Metadata{DurationMs: 150, TraceID: "abc", APIVersion: APIVersion},
			},
		},
		{
			name: "error",
			result: &Result{
				Status:   StatusError,
				Command:  "fire",
				Error:    &ErrorInfo{Code: "ALERT.NOT_FOUND", Message: "алерт не зарегистрирован"},
				Metadata: &Metadata{DurationMs: 5, APIVersion: APIVersion},
			},
		},
		{
			name:   "minimal",
			result: &Result{Status: StatusSuccess, Command: "version"},
		},
		{
			name: "dry run",
			result: &Result{
				Status:  StatusSuccess,
				Command: "plan",
				DryRun:  true,
				Plan: &DryRunPlan{
					Command: "plan",
					Alert:   "build_failed",
					Steps: []PlanStep{
						{Order: 1, Operation: "Доставка через log", Parameters: map[string]any{"recipients": 2}},
						{Order: 2, Operation: "Доставка через email", Skipped: true, SkipReason: "нет получателей"},
					},
					ValidationPassed: true,
				},
				Metadata: &Metadata{DurationMs: 1, APIVersion: APIVersion},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, validate(t, schema, writeJSON(t, tt.result)))
		})
	}
}

func TestJSONWriter_Write_SchemaRejectsUnknownStatus(t *testing.T) {
	schema := loadSchema(t)
	data := writeJSON(t, &Result{Status: "partial", Command: "fire"})
	assert.Error(t, validate(t, schema, data))
}

func TestJSONWriter_Write_DryRunFalseOmitted(t *testing.T) {
	data := writeJSON(t, &Result{Status: StatusSuccess, Command: "fire"})
	assert.NotContains(t, string(data), "dry_run")
	assert.NotContains(t, string(data), "plan")
}

func TestJSONWriter_Write_NilResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONWriter().Write(&buf, nil))
	assert.Equal(t, "null\n", buf.String())
}
