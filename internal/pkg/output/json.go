package output

import (
	"encoding/json"
	"io"
)

// JSONWriter форматирует Result в JSON с отступами.
type JSONWriter struct{}

// NewJSONWriter создаёт новый JSONWriter.
func NewJSONWriter() *JSONWriter {
	return &JSONWriter{}
}

// Write сериализует result в JSON и записывает в w.
// Summary переносится в metadata.summary; входной result не изменяется.
func (j *JSONWriter) Write(w io.Writer, result *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if result == nil {
		return encoder.Encode(result)
	}

	out := *result
	if result.Summary != nil && result.Metadata != nil {
		metaCopy := *result.Metadata
		metaCopy.Summary = result.Summary
		out.Metadata = &metaCopy
	}
	return encoder.Encode(&out)
}
