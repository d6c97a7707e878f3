package optinsql

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/apk-notify/internal/optin"
	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
)

var testKey = optin.Key{Scope: "foo", EntityID: "2", Alert: "s1", Channel: "email"}

func newMockProvider(t *testing.T) (*Provider, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, time.Second), mock
}

func TestProvider_OptIn(t *testing.T) {
	p, mock := newMockProvider(t)

	mock.ExpectExec(regexp.QuoteMeta("MERGE notify_opt_ins")).
		WithArgs("foo", "2", "s1", "email", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, p.OptIn(context.Background(), testKey))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProvider_OptOut(t *testing.T) {
	p, mock := newMockProvider(t)

	mock.ExpectExec(regexp.QuoteMeta("MERGE notify_opt_ins")).
		WithArgs("foo", "2", "s1", "email", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, p.OptOut(context.Background(), testKey))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProvider_UpsertError(t *testing.T) {
	p, mock := newMockProvider(t)
	dbErr := errors.New("deadlock")

	mock.ExpectExec(regexp.QuoteMeta("MERGE notify_opt_ins")).WillReturnError(dbErr)

	err := p.OptIn(context.Background(), testKey)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrOptInStore))
	assert.ErrorIs(t, err, dbErr)
}

func TestProvider_Lookup(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantValue bool
		wantFound bool
		wantErr   bool
	}{
		{
			name: "запись true",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT opted_in")).
					WithArgs("foo", "2", "s1", "email").
					WillReturnRows(sqlmock.NewRows([]string{"opted_in"}).AddRow(true))
			},
			wantValue: true,
			wantFound: true,
		},
		{
			name: "запись false",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT opted_in")).
					WillReturnRows(sqlmock.NewRows([]string{"opted_in"}).AddRow(false))
			},
			wantFound: true,
		},
		{
			name: "записи нет",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT opted_in")).
					WillReturnRows(sqlmock.NewRows([]string{"opted_in"}))
			},
		},
		{
			name: "ошибка запроса",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT opted_in")).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, mock := newMockProvider(t)
			tt.setupMock(mock)

			v, found, err := p.Lookup(context.Background(), testKey)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.HasCode(err, apperrors.ErrOptInStore))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, v)
			assert.Equal(t, tt.wantFound, found)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProvider_OptedIn(t *testing.T) {
	p, mock := newMockProvider(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT opted_in")).
		WillReturnRows(sqlmock.NewRows([]string{"opted_in"}))

	ok, err := p.OptedIn(context.Background(), testKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProvider_NotConnected(t *testing.T) {
	p := &Provider{}

	assert.True(t, apperrors.HasCode(p.OptIn(context.Background(), testKey), apperrors.ErrOptInStore))
	_, _, err := p.Lookup(context.Background(), testKey)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrOptInStore))
	assert.True(t, apperrors.HasCode(p.Ping(context.Background()), apperrors.ErrOptInStore))
	assert.NoError(t, p.Close())
}

func TestProvider_PingAndClose(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	p := New(db, 0)

	mock.ExpectPing()
	require.NoError(t, p.Ping(context.Background()))

	mock.ExpectClose()
	require.NoError(t, p.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrOptInStore))

	_, err = Open(context.Background(), Options{Server: "db", Port: 70000})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}

func TestConnString_Credentials(t *testing.T) {
	dsn := connString(Options{
		Server:   "db.local",
		User:     "notify;user",
		Password: "p@ss +%word;=",
		Port:     1433,
		Database: "notify db",
		Timeout:  5 * time.Second,
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", u.Scheme)
	assert.Equal(t, "db.local:1433", u.Host)
	assert.Equal(t, "notify;user", u.User.Username())
	password, ok := u.User.Password()
	require.True(t, ok)
	assert.Equal(t, "p@ss +%word;=", password)

	q := u.Query()
	assert.Equal(t, "notify db", q.Get("database"))
	assert.Equal(t, "disable", q.Get("encrypt"))
	assert.Equal(t, "5", q.Get("connection timeout"))

	encrypted := connString(Options{Server: "db.local", Port: 1433, Encrypt: true})
	assert.True(t, strings.Contains(encrypted, "encrypt=true"))
}
