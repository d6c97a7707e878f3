package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// DryRunPlan содержит план отправки алерта без доставки.
type DryRunPlan struct {
	// Command — имя команды.
	Command string `json:"command"`
	// Alert — имя алерта.
	Alert string `json:"alert,omitempty"`
	// Steps — шаги плана: по одному на пару "группа получателей, канал".
	Steps []PlanStep `json:"steps"`
	// Summary — краткое описание плана.
	Summary string `json:"summary,omitempty"`
	// ValidationPassed — алерт найден и получатели разрешены.
	ValidationPassed bool `json:"validation_passed"`
}

// PlanStep описывает один шаг плана.
type PlanStep struct {
	// Order — порядковый номер шага.
	Order int `json:"order"`
	// Operation — название операции.
	Operation string `json:"operation"`
	// Parameters — параметры операции (ключ-значение).
	Parameters map[string]any `json:"parameters"`
	// ExpectedChanges — ожидаемый результат шага.
	ExpectedChanges []string `json:"expected_changes,omitempty"`
	// Skipped — шаг не будет выполнен.
	Skipped bool `json:"skipped,omitempty"`
	// SkipReason — причина пропуска.
	SkipReason string `json:"skip_reason,omitempty"`
}

// WriteText выводит план в человекочитаемом формате.
func (p *DryRunPlan) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "\n=== DRY RUN ===\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Команда: %s\n", p.Command); err != nil {
		return err
	}
	if p.Alert != "" {
		if _, err := fmt.Fprintf(w, "Алерт: %s\n", sanitizeValue(p.Alert)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Валидация: %s\n\n", boolToStatus(p.ValidationPassed)); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "План выполнения:\n"); err != nil {
		return err
	}

	for _, step := range p.Steps {
		if step.Skipped {
			if _, err := fmt.Fprintf(w, "  %d. [SKIP] %s: %s\n", step.Order, step.Operation, step.SkipReason); err != nil {
				return err
			}
			continue
		}

		if _, err := fmt.Fprintf(w, "  %d. %s\n", step.Order, step.Operation); err != nil {
			return err
		}

		keys := make([]string, 0, len(step.Parameters))
		for k := range step.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, err := fmt.Fprintf(w, "      %s: %s\n", k, sanitizeValue(step.Parameters[k])); err != nil {
				return err
			}
		}

		if len(step.ExpectedChanges) > 0 {
			if _, err := fmt.Fprintf(w, "      Ожидаемые изменения:\n"); err != nil {
				return err
			}
			for _, change := range step.ExpectedChanges {
				if _, err := fmt.Fprintf(w, "        - %s\n", change); err != nil {
					return err
				}
			}
		}
	}

	if p.Summary != "" {
		if _, err := fmt.Fprintf(w, "\nИтого: %s\n", p.Summary); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "=== END DRY RUN ===\n")
	return err
}

// WriteDryRunResult пишет результат dry-run в выбранном формате.
func WriteDryRunResult(w io.Writer, format, traceID string, start time.Time, plan *DryRunPlan) error {
	if format != FormatJSON {
		return plan.WriteText(w)
	}

	result := &Result{
		Status:  StatusSuccess,
		Command: plan.Command,
		DryRun:  true,
		Plan:    plan,
		Metadata: &Metadata{
			DurationMs: time.Since(start).Milliseconds(),
			TraceID:    traceID,
			APIVersion: APIVersion,
		},
	}
	return NewJSONWriter().Write(w, result)
}

// boolToStatus конвертирует boolean в человекочитаемый статус.
func boolToStatus(b bool) string {
	if b {
		return "✅ Пройдена"
	}
	return "❌ Не пройдена"
}

// sanitizeValue удаляет ANSI escape-последовательности и управляющие символы,
// переводы строк и табы заменяются пробелами.
func sanitizeValue(v any) string {
	s := fmt.Sprintf("%v", v)
	var result strings.Builder
	inEscapeSeq := false
	for _, r := range s {
		if r == '\x1b' {
			inEscapeSeq = true
			continue
		}
		if inEscapeSeq {
			// ESC [ <params> <letter>
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
				inEscapeSeq = false
			}
			continue
		}

		switch {
		case r == '\n' || r == '\t':
			result.WriteRune(' ')
		case r < 32 || r == 127:
			continue
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}
