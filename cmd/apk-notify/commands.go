package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Kargones/apk-notify/internal/constants"
	"github.com/Kargones/apk-notify/internal/di"
	"github.com/Kargones/apk-notify/internal/dispatch"
	"github.com/Kargones/apk-notify/internal/optin"
	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
	"github.com/Kargones/apk-notify/internal/pkg/output"
)

// maxPayloadSize ограничивает payload, читаемый из stdin.
const maxPayloadSize = 1 << 20

// FireData — данные результата команды fire.
type FireData struct {
	Alert   string          `json:"alert"`
	Product string          `json:"product,omitempty"`
	Report  dispatch.Report `json:"report"`
}

// OptInData — данные результата команд optin и optout.
type OptInData struct {
	Scope    string `json:"scope"`
	EntityID string `json:"entity_id"`
	Alert    string `json:"alert"`
	Channel  string `json:"channel"`
	OptedIn  bool   `json:"opted_in"`
}

// AlertInfo — описание алерта для команды alerts.
type AlertInfo struct {
	Name      string            `json:"name"`
	Scope     string            `json:"scope"`
	Notifiers map[string]string `json:"notifiers"`
	Default   bool              `json:"default"`
	Defaults  map[string]bool   `json:"defaults,omitempty"`
	Products  []string          `json:"products,omitempty"`
	Tags      []string          `json:"tags,omitempty"`
}

// execute выполняет команду app.Config.Command и пишет результат в stdout.
// Возвращает exit code и ошибку для логирования.
func execute(ctx context.Context, app *di.App, stdin io.Reader, stdout io.Writer) (int, error) {
	cfg := app.Config
	start := time.Now()

	var (
		data    any
		summary *output.SummaryInfo
		err     error
	)
	switch cfg.Command {
	case constants.ActFire:
		var fd *FireData
		fd, err = fire(ctx, app, stdin)
		if fd != nil {
			data = fd
			summary = fireSummary(fd)
		}
	case constants.ActPlan:
		var plan *output.DryRunPlan
		plan, err = buildPlan(ctx, app, stdin)
		if err == nil {
			if werr := output.WriteDryRunResult(stdout, cfg.OutputFormat, app.TraceID, start, plan); werr != nil {
				return constants.ExitError, werr
			}
			return constants.ExitOK, nil
		}
	case constants.ActOptIn:
		data, err = setOptIn(ctx, app, true)
	case constants.ActOptOut:
		data, err = setOptIn(ctx, app, false)
	case constants.ActAlerts:
		data = listAlerts(app)
	default:
		err = apperrors.Newf(apperrors.ErrConfigValidate, "неизвестная команда %q", cfg.Command)
	}

	result := &output.Result{
		Status:  output.StatusSuccess,
		Command: cfg.Command,
		Data:    data,
		Summary: summary,
		Metadata: &output.Metadata{
			DurationMs: time.Since(start).Milliseconds(),
			TraceID:    app.TraceID,
			APIVersion: output.APIVersion,
		},
	}
	if err != nil {
		result.Status = output.StatusError
		result.Data = nil
		result.Summary = nil
		result.Error = &output.ErrorInfo{Code: apperrors.Code(err), Message: err.Error()}
	}
	if werr := app.OutputWriter.Write(stdout, result); werr != nil && err == nil {
		err = werr
	}
	return exitCode(err), err
}

// exitCode сопоставляет ошибку с кодом завершения.
func exitCode(err error) int {
	switch {
	case err == nil:
		return constants.ExitOK
	case apperrors.IsConfiguration(err):
		return constants.ExitConfig
	case apperrors.HasCode(err, apperrors.ErrAlertNotFound):
		return constants.ExitUsage
	default:
		return constants.ExitError
	}
}

func fire(ctx context.Context, app *di.App, stdin io.Reader) (*FireData, error) {
	cfg := app.Config
	payload, err := readPayload(cfg.Payload, stdin)
	if err != nil {
		return nil, err
	}
	report, err := app.Dispatcher(cfg.Alert, payload).DispatchReport(ctx)
	if err != nil {
		return nil, err
	}
	return &FireData{Alert: cfg.Alert, Product: cfg.Product, Report: report}, nil
}

// fireSummary переводит итог отправки в ключевые метрики вывода.
func fireSummary(fd *FireData) *output.SummaryInfo {
	s := output.NewSummaryInfo()
	r := fd.Report
	s.AddMetric("Доставок", strconv.Itoa(r.Deliveries), "")
	s.AddMetric("Получателей", strconv.Itoa(r.Recipients), "")
	s.AddMetric("Пропущено каналов", strconv.Itoa(r.Skipped), "")
	s.AddMetric("Отфильтровано подписками", strconv.Itoa(r.Dropped), "")
	if r.ProductSkipped {
		s.AddWarning(fmt.Sprintf("алерт %s не относится к продукту %s", fd.Alert, fd.Product))
	} else if r.Deliveries == 0 {
		s.AddWarning(fmt.Sprintf("алерт %s никому не доставлен", fd.Alert))
	}
	return s
}

func buildPlan(ctx context.Context, app *di.App, stdin io.Reader) (*output.DryRunPlan, error) {
	cfg := app.Config
	payload, err := readPayload(cfg.Payload, stdin)
	if err != nil {
		return nil, err
	}
	planned, err := app.Dispatcher(cfg.Alert, payload).Plan(ctx)
	if err != nil {
		return nil, err
	}
	return toDryRunPlan(cfg.Command, cfg.Alert, planned), nil
}

// toDryRunPlan переводит план диспетчера в формат вывода dry-run.
func toDryRunPlan(command, alert string, planned []dispatch.Planned) *output.DryRunPlan {
	plan := &output.DryRunPlan{
		Command:          command,
		Alert:            alert,
		Steps:            make([]output.PlanStep, 0, len(planned)),
		ValidationPassed: true,
	}

	var deliveries, recipients int
	for i, p := range planned {
		step := output.PlanStep{
			Order:      i + 1,
			Operation:  "deliver",
			Parameters: map[string]any{},
			Skipped:    p.Skipped,
			SkipReason: p.SkipReason,
		}
		if p.Group != "" {
			step.Parameters["group"] = p.Group
		}
		if p.Target != "" {
			step.Parameters["target"] = p.Target
		}
		if p.Channel != "" {
			step.Parameters["channel"] = p.Channel
		}
		if p.Dropped > 0 {
			step.Parameters["dropped"] = p.Dropped
		}
		if !p.Skipped {
			deliveries++
			recipients += len(p.Recipients)
			step.ExpectedChanges = []string{
				fmt.Sprintf("%s: %s", p.Channel, strings.Join(p.Recipients, ", ")),
			}
		}
		plan.Steps = append(plan.Steps, step)
	}
	plan.Summary = fmt.Sprintf("доставок: %d, получателей: %d", deliveries, recipients)
	return plan
}

func setOptIn(ctx context.Context, app *di.App, value bool) (*OptInData, error) {
	cfg := app.Config
	a, ok := app.Configuration.Alert(cfg.Alert)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrAlertNotFound, "алерт %q не зарегистрирован", cfg.Alert)
	}
	if cfg.EntityID == "" || cfg.Channel == "" {
		return nil, apperrors.Newf(apperrors.ErrConfigValidate, "для %s нужны NTF_ENTITY_ID и NTF_CHANNEL", cfg.Command)
	}
	if _, ok := app.Configuration.Channel(cfg.Channel); !ok {
		return nil, apperrors.Newf(apperrors.ErrConfigUnknownChannel, "канал %q не зарегистрирован", cfg.Channel)
	}

	key := optin.Key{Scope: a.Scope().Name(), EntityID: cfg.EntityID, Alert: a.Name(), Channel: cfg.Channel}
	set := app.OptIn.OptOut
	if value {
		set = app.OptIn.OptIn
	}
	if err := set(ctx, key); err != nil {
		return nil, err
	}
	return &OptInData{
		Scope:    key.Scope,
		EntityID: key.EntityID,
		Alert:    key.Alert,
		Channel:  key.Channel,
		OptedIn:  value,
	}, nil
}

func listAlerts(app *di.App) []AlertInfo {
	alerts := app.Configuration.Alerts()
	infos := make([]AlertInfo, 0, len(alerts))
	for _, a := range alerts {
		infos = append(infos, AlertInfo{
			Name:      a.Name(),
			Scope:     a.Scope().Name(),
			Notifiers: a.Notifiers(),
			Default:   a.DefaultValue(),
			Defaults:  a.DefaultsByChannel(),
			Products:  a.Products(),
			Tags:      a.Tags(),
		})
	}
	return infos
}

// readPayload разбирает JSON payload из значения переменной или из stdin.
// Пустой ввод означает payload без полей.
func readPayload(raw string, stdin io.Reader) (map[string]any, error) {
	data := []byte(raw)
	if raw == "" && stdin != nil {
		var err error
		data, err = io.ReadAll(io.LimitReader(stdin, maxPayloadSize))
		if err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrConfigLoad, "не удалось прочитать payload", err)
		}
	}

	payload := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return payload, nil
	}
	// числа остаются json.Number: идентификаторы сущностей не теряют точность
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrConfigLoad, "payload должен быть JSON-объектом", err)
	}
	if dec.More() {
		return nil, apperrors.Newf(apperrors.ErrConfigLoad, "payload должен содержать один JSON-объект")
	}
	return payload, nil
}
