package output

import "strings"

// FormatJSON и FormatText — поддерживаемые форматы вывода.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// NewWriter создаёт Writer по формату (без учёта регистра).
// Неизвестный формат — TextWriter.
func NewWriter(format string) Writer {
	switch strings.ToLower(format) {
	case FormatJSON:
		return NewJSONWriter()
	default:
		return NewTextWriter()
	}
}
