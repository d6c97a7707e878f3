// Package constants содержит константы apk-notify, сгруппированные по назначению.
package constants

// Version — версия приложения. Перезаписывается при сборке:
//
//	go build -ldflags "-X github.com/Kargones/apk-notify/internal/constants.Version=1.2.3"
var Version = "dev"

// Константы сообщений приложения
const (
	// MsgAppExit - сообщение о завершении работы программы
	MsgAppExit = "Завершение работы программы"
	// MsgErrProcessing - сообщение об обработке ошибки
	MsgErrProcessing = "Обработка ошибки"
)

// Константы действий (команд)
const (
	// ActFire - отправка алерта
	ActFire = "fire"
	// ActPlan - план отправки без доставки (dry-run)
	ActPlan = "plan"
	// ActOptIn - подписка получателя на алерт в канале
	ActOptIn = "optin"
	// ActOptOut - отписка получателя от алерта в канале
	ActOptOut = "optout"
	// ActAlerts - список зарегистрированных алертов
	ActAlerts = "alerts"
	// ActVersion - вывод версии
	ActVersion = "version"
)

// Константы уровней логирования bootstrap-логгера
const (
	// LogLevelDebug - уровень отладки
	LogLevelDebug = "debug"
	// LogLevelInfo - информационный уровень
	LogLevelInfo = "info"
	// LogLevelWarn - уровень предупреждений
	LogLevelWarn = "warn"
	// LogLevelError - уровень ошибок
	LogLevelError = "error"
	// LogLevelDefault - уровень по умолчанию
	LogLevelDefault = LogLevelInfo
)

// Константы файлов конфигурации
const (
	// DefaultAppConfigPath - файл настроек приложения
	DefaultAppConfigPath = "app.yaml"
	// DefaultDefinitionsPath - файл определений алертов
	DefaultDefinitionsPath = "definitions.yaml"
)

// Константы exit-кодов
const (
	// ExitOK - успешное завершение
	ExitOK = 0
	// ExitError - ошибка выполнения команды
	ExitError = 1
	// ExitConfig - ошибка конфигурации
	ExitConfig = 2
	// ExitUsage - неизвестная команда или неверные аргументы
	ExitUsage = 3
)

// ValidActions возвращает список поддерживаемых команд.
func ValidActions() []string {
	return []string{ActFire, ActPlan, ActOptIn, ActOptOut, ActAlerts, ActVersion}
}

// IsValidAction проверяет, поддерживается ли команда.
func IsValidAction(action string) bool {
	for _, a := range ValidActions() {
		if a == action {
			return true
		}
	}
	return false
}
