package output

import "io"

// Writer форматирует результаты команд. Реализации: JSONWriter, TextWriter.
type Writer interface {
	// Write форматирует result и записывает в w.
	Write(w io.Writer, result *Result) error
}
