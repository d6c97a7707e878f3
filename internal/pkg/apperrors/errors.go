// Package apperrors предоставляет структурированные ошибки apk-notify.
// Каждая ошибка несёт машиночитаемый код, по которому вызывающий код
// различает категории: ошибки конфигурации, разрешения алерта, доставки и рендеринга.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Коды ошибок в иерархическом формате: CATEGORY.SPECIFIC_ERROR.
// Позволяет grep по категориям: `grep "CONFIG\."` для всех ошибок конфигурации.
const (
	// Category: CONFIG — ошибки регистрации и загрузки конфигурации.
	// Обнаруживаются при регистрации, а не при отправке.
	ErrConfigLoad           = "CONFIG.LOAD_FAILED"
	ErrConfigValidate       = "CONFIG.VALIDATION_FAILED"
	ErrConfigDuplicate      = "CONFIG.DUPLICATE"
	ErrConfigUnknownChannel = "CONFIG.UNKNOWN_CHANNEL"
	ErrConfigUnknownProduct = "CONFIG.UNKNOWN_PRODUCT"
	ErrConfigInvalidScope   = "CONFIG.INVALID_SCOPE"
	ErrConfigInvalidHook    = "CONFIG.INVALID_HOOK"
	ErrConfigFrozen         = "CONFIG.FROZEN"

	// Category: ALERT — алерт не найден при отправке.
	ErrAlertNotFound = "ALERT.NOT_FOUND"

	// Category: DISPATCH — не удалось разрешить группу получателей или канал.
	ErrDispatchResolution = "DISPATCH.RESOLUTION_FAILED"

	// Category: DELIVERY — канал вернул ошибку доставки.
	ErrDeliveryFailed = "DELIVERY.FAILED"

	// Category: VIEW — ошибки конвейера шаблонов.
	ErrViewNotFound             = "VIEW.NOT_FOUND"
	ErrViewMalformedFrontmatter = "VIEW.MALFORMED_FRONTMATTER"
	ErrViewTemplateEval         = "VIEW.TEMPLATE_EVAL"

	// Category: OPTIN — ошибка хранилища подписок.
	ErrOptInStore = "OPTIN.STORE_FAILED"
)

// configPrefix — префикс категории ошибок конфигурации.
const configPrefix = "CONFIG."

// AppError представляет структурированную ошибку приложения.
// Реализует error interface и поддерживает wrapping через Unwrap().
//
// ВАЖНО: Message НЕ ДОЛЖЕН содержать секреты (пароли, токены, ключи).
//
// Пример использования:
//
//	return apperrors.NewAppError(apperrors.ErrAlertNotFound,
//	    fmt.Sprintf("алерт %q не зарегистрирован", name), nil)
type AppError struct {
	// Code — машиночитаемый код ошибки в формате CATEGORY.SPECIFIC.
	Code string `json:"code"`

	// Message — человекочитаемое описание ошибки.
	Message string `json:"message"`

	// Cause — wrapped оригинальная ошибка. Не сериализуется в JSON.
	Cause error `json:"-"`
}

// Error реализует интерфейс error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap возвращает wrapped ошибку для errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError создаёт новый AppError с заданным кодом, сообщением и причиной.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Newf — сокращение для NewAppError без причины с форматированием сообщения.
func Newf(code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// HasCode проверяет, есть ли в цепочке err ошибка AppError с указанным кодом.
// Проходит всю цепочку: DELIVERY.FAILED поверх VIEW.NOT_FOUND находится по обоим кодам.
func HasCode(err error, code string) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// Code возвращает код первой AppError в цепочке или пустую строку.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsConfiguration сообщает, относится ли ошибка к категории CONFIG.
func IsConfiguration(err error) bool {
	return strings.HasPrefix(Code(err), configPrefix)
}
