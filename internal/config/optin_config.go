package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Kargones/apk-notify/internal/adapter/optinredis"
	"github.com/Kargones/apk-notify/internal/adapter/optinsql"
)

// Хранилища подписок.
const (
	OptInBackendMemory = "memory"
	OptInBackendMSSQL  = "mssql"
	OptInBackendRedis  = "redis"
)

// OptInConfig содержит настройки хранилища подписок.
type OptInConfig struct {
	// Backend — memory, mssql или redis.
	Backend string `yaml:"backend" env:"NTF_OPTIN_BACKEND" env-default:"memory"`

	// MSSQL — параметры SQL Server (backend=mssql).
	MSSQL MSSQLOptInConfig `yaml:"mssql"`

	// Redis — параметры Redis (backend=redis).
	Redis RedisOptInConfig `yaml:"redis"`
}

// MSSQLOptInConfig содержит параметры подключения к SQL Server.
type MSSQLOptInConfig struct {
	Server   string        `yaml:"server" env:"NTF_OPTIN_MSSQL_SERVER"`
	Port     int           `yaml:"port" env:"NTF_OPTIN_MSSQL_PORT" env-default:"1433"`
	User     string        `yaml:"user" env:"NTF_OPTIN_MSSQL_USER"`
	Password string        `yaml:"password" env:"NTF_OPTIN_MSSQL_PASSWORD"`
	Database string        `yaml:"database" env:"NTF_OPTIN_MSSQL_DATABASE"`
	Timeout  time.Duration `yaml:"timeout" env:"NTF_OPTIN_MSSQL_TIMEOUT" env-default:"30s"`
	Encrypt  bool          `yaml:"encrypt" env:"NTF_OPTIN_MSSQL_ENCRYPT" env-default:"false"`
}

// RedisOptInConfig содержит параметры подключения к Redis.
type RedisOptInConfig struct {
	Addr     string `yaml:"addr" env:"NTF_OPTIN_REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"NTF_OPTIN_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"NTF_OPTIN_REDIS_DB" env-default:"0"`
	Prefix   string `yaml:"prefix" env:"NTF_OPTIN_REDIS_PREFIX" env-default:"optin"`
}

// getDefaultOptInConfig возвращает конфигурацию по умолчанию: подписки в памяти процесса.
func getDefaultOptInConfig() *OptInConfig {
	return &OptInConfig{
		Backend: OptInBackendMemory,
		MSSQL: MSSQLOptInConfig{
			Port:    1433,
			Timeout: 30 * time.Second,
		},
		Redis: RedisOptInConfig{
			Addr:   "localhost:6379",
			Prefix: optinredis.DefaultPrefix,
		},
	}
}

// loadOptInConfig загружает конфигурацию хранилища подписок.
// Переменные окружения NTF_OPTIN_* переопределяют значения из AppConfig.
func loadOptInConfig(l *slog.Logger, cfg *Config) (*OptInConfig, error) {
	if cfg.AppConfig != nil && cfg.AppConfig.OptIn.Backend != "" {
		optInConfig := &cfg.AppConfig.OptIn
		if err := cleanenv.ReadEnv(optInConfig); err != nil {
			l.Warn("Ошибка загрузки OptIn конфигурации из переменных окружения",
				slog.String("error", err.Error()),
			)
		}
		l.Info("OptIn конфигурация загружена из AppConfig",
			slog.String("backend", optInConfig.Backend),
		)
		return optInConfig, nil
	}

	optInConfig := getDefaultOptInConfig()

	if err := cleanenv.ReadEnv(optInConfig); err != nil {
		l.Warn("Ошибка загрузки OptIn конфигурации из переменных окружения",
			slog.String("error", err.Error()),
		)
	}

	l.Debug("OptIn конфигурация: используются значения по умолчанию",
		slog.String("backend", optInConfig.Backend),
	)

	return optInConfig, nil
}

// validateOptInConfig проверяет выбранный backend и его обязательные поля.
func validateOptInConfig(oc *OptInConfig) error {
	switch oc.Backend {
	case OptInBackendMemory:
		return nil
	case OptInBackendMSSQL:
		if oc.MSSQL.Server == "" {
			return fmt.Errorf("optin.mssql: server обязателен")
		}
		if oc.MSSQL.Database == "" {
			return fmt.Errorf("optin.mssql: database обязателен")
		}
		return nil
	case OptInBackendRedis:
		if oc.Redis.Addr == "" {
			return fmt.Errorf("optin.redis: addr обязателен")
		}
		return nil
	default:
		return fmt.Errorf("optin: неизвестный backend %q (memory, mssql, redis)", oc.Backend)
	}
}

// SQLOptions преобразует конфигурацию в optinsql.Options.
func (oc *OptInConfig) SQLOptions() optinsql.Options {
	return optinsql.Options{
		Server:   oc.MSSQL.Server,
		Port:     oc.MSSQL.Port,
		User:     oc.MSSQL.User,
		Password: oc.MSSQL.Password,
		Database: oc.MSSQL.Database,
		Timeout:  oc.MSSQL.Timeout,
		Encrypt:  oc.MSSQL.Encrypt,
	}
}

// RedisOptions преобразует конфигурацию в optinredis.ClientConfig.
func (oc *OptInConfig) RedisOptions() optinredis.ClientConfig {
	return optinredis.ClientConfig{
		Addr:     oc.Redis.Addr,
		Password: oc.Redis.Password,
		DB:       oc.Redis.DB,
		Prefix:   oc.Redis.Prefix,
	}
}
