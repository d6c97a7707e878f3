// Package output форматирует результаты команд apk-notify в JSON и текст.
package output

// StatusSuccess и StatusError — возможные значения поля Status в Result.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIVersion — версия формата результата.
const APIVersion = "v1"

// Result представляет структурированный результат выполнения команды.
// Сериализуется в JSON (NTF_OUTPUT_FORMAT=json) или выводится текстом (NTF_OUTPUT_FORMAT=text).
type Result struct {
	// Status содержит статус выполнения: "success" или "error".
	Status string `json:"status"`

	// Command содержит имя выполненной команды.
	Command string `json:"command"`

	// Data содержит данные конкретной команды.
	Data any `json:"data,omitempty"`

	// Error содержит информацию об ошибке (только при status="error").
	Error *ErrorInfo `json:"error,omitempty"`

	// Metadata содержит метаданные выполнения.
	Metadata *Metadata `json:"metadata,omitempty"`

	// DryRun указывает, что результат — план отправки, а не реальная доставка.
	DryRun bool `json:"dry_run,omitempty"`

	// Plan содержит план отправки для dry-run.
	Plan *DryRunPlan `json:"plan,omitempty"`

	// Summary выводится отдельным блоком в тексте и как metadata.summary в JSON.
	Summary *SummaryInfo `json:"-"`
}

// ErrorInfo содержит информацию об ошибке в структурированном виде.
// Code — машиночитаемый код ошибки (например, "ALERT.NOT_FOUND").
// ВАЖНО: Message НЕ ДОЛЖЕН содержать секреты!
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Metadata содержит метаданные выполнения команды.
type Metadata struct {
	// DurationMs — время выполнения команды в миллисекундах.
	DurationMs int64 `json:"duration_ms"`

	// TraceID — идентификатор трассировки для корреляции логов.
	TraceID string `json:"trace_id,omitempty"`

	// APIVersion — версия формата результата.
	APIVersion string `json:"api_version"`

	// Summary заполняется из Result.Summary при сериализации в JSONWriter.
	Summary *SummaryInfo `json:"summary,omitempty"`
}
