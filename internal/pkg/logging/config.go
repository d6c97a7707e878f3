package logging

// Поддерживаемые форматы вывода логов.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Поддерживаемые уровни логирования.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Поддерживаемые типы вывода логов.
const (
	OutputStderr = "stderr"
	OutputFile   = "file"
)

// Значения по умолчанию для Config.
// Единый источник истины для config.LoggingConfig и di.ProvideLogger.
const (
	DefaultLevel      = LevelInfo
	DefaultFormat     = FormatText
	DefaultOutput     = OutputStderr
	DefaultFilePath   = "/var/log/apk-notify.log"
	DefaultMaxSize    = 100 // MB
	DefaultMaxBackups = 3
	DefaultMaxAge     = 7 // days
	DefaultCompress   = true
)

// Config содержит настройки логирования.
type Config struct {
	// Format — "json" или "text". По умолчанию: "text".
	Format string

	// Level — минимальный уровень: "debug", "info", "warn", "error".
	Level string

	// Output — "stderr" или "file".
	Output string

	// FilePath — путь к файлу логов при Output="file".
	FilePath string

	// MaxSize — размер файла в мегабайтах до ротации.
	MaxSize int

	// MaxBackups — количество хранимых ротированных файлов.
	MaxBackups int

	// MaxAge — возраст ротированных файлов в днях.
	MaxAge int

	// Compress — сжимать ли ротированные файлы gzip.
	Compress bool
}

// DefaultConfig возвращает Config со значениями по умолчанию.
func DefaultConfig() Config {
	return Config{
		Level:      DefaultLevel,
		Format:     DefaultFormat,
		Output:     DefaultOutput,
		FilePath:   DefaultFilePath,
		MaxSize:    DefaultMaxSize,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAge,
		Compress:   DefaultCompress,
	}
}
