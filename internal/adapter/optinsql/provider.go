// Package optinsql реализует хранилище подписок optin.Provider поверх Microsoft SQL Server.
//
// Ожидаемая таблица:
//
//	CREATE TABLE notify_opt_ins (
//	    scope        NVARCHAR(128) NOT NULL,
//	    entity_id    NVARCHAR(256) NOT NULL,
//	    alert_name   NVARCHAR(128) NOT NULL,
//	    channel_name NVARCHAR(128) NOT NULL,
//	    opted_in     BIT           NOT NULL,
//	    updated_at   DATETIME2     NOT NULL DEFAULT SYSUTCDATETIME(),
//	    PRIMARY KEY (scope, entity_id, alert_name, channel_name)
//	);
package optinsql

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/url"
	"strconv"
	"time"

	// blank import для драйвера SQL Server
	_ "github.com/denisenkom/go-mssqldb"

	"github.com/Kargones/apk-notify/internal/optin"
	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
)

// DefaultTable — имя таблицы подписок по умолчанию.
const DefaultTable = "notify_opt_ins"

// Compile-time проверка реализации интерфейса
var _ optin.Provider = (*Provider)(nil)

// Options содержит параметры подключения к SQL Server.
type Options struct {
	// Server — адрес сервера MSSQL
	Server string
	// Port — порт сервера (по умолчанию 1433)
	Port int
	// User — имя пользователя
	User string
	// Password — пароль пользователя
	Password string
	// Database — имя базы данных с таблицей подписок
	Database string
	// Timeout — таймаут подключения и одного запроса
	Timeout time.Duration
	// Encrypt — использовать TLS шифрование
	Encrypt bool
}

// Provider — optin.Provider, хранящий подписки в таблице notify_opt_ins.
type Provider struct {
	db      *sql.DB
	timeout time.Duration
}

// Open подключается к серверу и проверяет соединение.
func Open(ctx context.Context, opts Options) (*Provider, error) {
	if opts.Server == "" {
		return nil, apperrors.Newf(apperrors.ErrOptInStore, "optinsql: server is required")
	}
	if opts.Port == 0 {
		opts.Port = 1433
	}
	if opts.Port < 1 || opts.Port > 65535 {
		return nil, apperrors.Newf(apperrors.ErrOptInStore,
			"optinsql: invalid port %d, must be between 1 and 65535", opts.Port)
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	db, err := sql.Open("sqlserver", connString(opts))
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrOptInStore, "optinsql: open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		if ctx.Err() != nil {
			return nil, apperrors.NewAppError(apperrors.ErrOptInStore, "optinsql: context cancelled during ping", ctx.Err())
		}
		return nil, apperrors.NewAppError(apperrors.ErrOptInStore, "optinsql: ping failed", err)
	}
	return New(db, opts.Timeout), nil
}

// New создаёт Provider поверх готового *sql.DB. timeout <= 0 — без ограничения на запрос.
func New(db *sql.DB, timeout time.Duration) *Provider {
	return &Provider{db: db, timeout: timeout}
}

// connString формирует DSN в URL-форме sqlserver://. Учётные данные кодирует url.URL,
// драйвер раскодирует их обратно, поэтому пароль может содержать любые символы.
func connString(opts Options) string {
	encryptMode := "true"
	if !opts.Encrypt {
		encryptMode = "disable"
	}
	query := url.Values{}
	query.Set("database", opts.Database)
	query.Set("encrypt", encryptMode)
	query.Set("connection timeout", strconv.Itoa(int(opts.Timeout.Seconds())))

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(opts.User, opts.Password),
		Host:     net.JoinHostPort(opts.Server, strconv.Itoa(opts.Port)),
		RawQuery: query.Encode(),
	}
	return u.String()
}

// Close закрывает пул соединений.
func (p *Provider) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// Ping проверяет доступность сервера.
func (p *Provider) Ping(ctx context.Context) error {
	if p.db == nil {
		return apperrors.Newf(apperrors.ErrOptInStore, "optinsql: connection not established")
	}
	if err := p.db.PingContext(ctx); err != nil {
		return apperrors.NewAppError(apperrors.ErrOptInStore, "optinsql: ping failed", err)
	}
	return nil
}

const upsertQuery = `
MERGE notify_opt_ins WITH (HOLDLOCK) AS t
USING (SELECT @p1 AS scope, @p2 AS entity_id, @p3 AS alert_name, @p4 AS channel_name) AS s
ON t.scope = s.scope AND t.entity_id = s.entity_id
	AND t.alert_name = s.alert_name AND t.channel_name = s.channel_name
WHEN MATCHED THEN
	UPDATE SET opted_in = @p5, updated_at = SYSUTCDATETIME()
WHEN NOT MATCHED THEN
	INSERT (scope, entity_id, alert_name, channel_name, opted_in)
	VALUES (@p1, @p2, @p3, @p4, @p5);
`

const lookupQuery = `
SELECT opted_in
FROM notify_opt_ins
WHERE scope = @p1 AND entity_id = @p2 AND alert_name = @p3 AND channel_name = @p4;
`

// OptIn реализует optin.Provider.
func (p *Provider) OptIn(ctx context.Context, k optin.Key) error {
	return p.upsert(ctx, k, true)
}

// OptOut реализует optin.Provider.
func (p *Provider) OptOut(ctx context.Context, k optin.Key) error {
	return p.upsert(ctx, k, false)
}

func (p *Provider) upsert(ctx context.Context, k optin.Key, value bool) error {
	if p.db == nil {
		return apperrors.Newf(apperrors.ErrOptInStore, "optinsql: connection not established")
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	if _, err := p.db.ExecContext(ctx, upsertQuery, k.Scope, k.EntityID, k.Alert, k.Channel, value); err != nil {
		return apperrors.NewAppError(apperrors.ErrOptInStore, "optinsql: upsert "+k.String(), err)
	}
	return nil
}

// OptedIn реализует optin.Provider.
func (p *Provider) OptedIn(ctx context.Context, k optin.Key) (bool, error) {
	v, found, err := p.Lookup(ctx, k)
	return found && v, err
}

// Lookup реализует optin.Provider.
func (p *Provider) Lookup(ctx context.Context, k optin.Key) (bool, bool, error) {
	if p.db == nil {
		return false, false, apperrors.Newf(apperrors.ErrOptInStore, "optinsql: connection not established")
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var optedIn bool
	err := p.db.QueryRowContext(ctx, lookupQuery, k.Scope, k.EntityID, k.Alert, k.Channel).Scan(&optedIn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, false, nil
		}
		return false, false, apperrors.NewAppError(apperrors.ErrOptInStore, "optinsql: lookup "+k.String(), err)
	}
	return optedIn, true, nil
}

func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}
