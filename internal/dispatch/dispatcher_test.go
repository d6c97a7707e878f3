package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/apk-notify/internal/entity/notify"
	"github.com/Kargones/apk-notify/internal/optin"
	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
	"github.com/Kargones/apk-notify/internal/pkg/logging"
	"github.com/Kargones/apk-notify/internal/registry"
)

// recordingChannel запоминает все доставки и может вернуть заданную ошибку.
type recordingChannel struct {
	mu         sync.Mutex
	deliveries []notify.Delivery
	err        error
}

func (c *recordingChannel) Deliver(_ context.Context, d notify.Delivery) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliveries = append(c.deliveries, d)
	return c.err
}

func (c *recordingChannel) calls() []notify.Delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notify.Delivery(nil), c.deliveries...)
}

// recordingMetrics считает вызовы collector-а.
type recordingMetrics struct {
	delivered int
	skipped   []string
	kept      int
	dropped   int
}

func (m *recordingMetrics) RecordDelivery(string, string, int, time.Duration, bool) { m.delivered++ }
func (m *recordingMetrics) RecordSkipped(_, _ string, reason string) {
	m.skipped = append(m.skipped, reason)
}
func (m *recordingMetrics) RecordFiltered(_, _ string, kept, dropped int) {
	m.kept += kept
	m.dropped += dropped
}
func (m *recordingMetrics) Push(context.Context) error { return nil }

func entities(ids ...string) []notify.Recipient {
	out := make([]notify.Recipient, 0, len(ids))
	for _, id := range ids {
		out = append(out, notify.Entity{ID: id})
	}
	return out
}

type fixture struct {
	cfg      *registry.Configuration
	provider *optin.MemoryProvider
	users    *recordingChannel
	admins   *recordingChannel
}

// newFixture: scope s1, алерт foo, группа users → канал users_channel,
// группа admins → группа каналов staff. Резолвер возвращает [1, 2] для users и [9] для admins.
func newFixture(t *testing.T, define func(a *registry.AlertBuilder)) *fixture {
	t.Helper()
	f := &fixture{
		provider: optin.NewMemoryProvider(),
		users:    &recordingChannel{},
		admins:   &recordingChannel{},
	}

	b := registry.NewBuilder()
	_, err := b.Channel("users_channel", f.users)
	require.NoError(t, err)
	_, err = b.Channel("staff_channel", f.admins, registry.InGroup("staff"))
	require.NoError(t, err)
	require.NoError(t, b.Product("site"))

	resolver := notify.Groups{
		"users":  func(context.Context, any) ([]notify.Recipient, error) { return entities("1", "2"), nil },
		"admins": func(context.Context, any) ([]notify.Recipient, error) { return entities("9"), nil },
	}
	s1, err := b.Scope("s1", resolver)
	require.NoError(t, err)
	_, err = s1.Alert("foo", define)
	require.NoError(t, err)

	f.cfg, err = b.Build()
	require.NoError(t, err)
	return f
}

func usersOnly(a *registry.AlertBuilder) {
	a.Notify("users").On("users_channel")
}

func fooKey(entity, channel string) optin.Key {
	return optin.Key{Scope: "s1", EntityID: entity, Alert: "foo", Channel: channel}
}

func TestDispatcher_AlertNotFound(t *testing.T) {
	f := newFixture(t, usersOnly)
	d := New(f.cfg, f.provider, "missing", nil)

	_, err := d.Alert()
	assert.True(t, apperrors.HasCode(err, apperrors.ErrAlertNotFound))
	_, err = d.Scope()
	assert.True(t, apperrors.HasCode(err, apperrors.ErrAlertNotFound))
	assert.True(t, apperrors.HasCode(d.Dispatch(context.Background()), apperrors.ErrAlertNotFound))
}

func TestDispatcher_AlertAndScope(t *testing.T) {
	f := newFixture(t, usersOnly)
	d := New(f.cfg, f.provider, "foo", nil)

	a, err := d.Alert()
	require.NoError(t, err)
	assert.Equal(t, "foo", a.Name())

	s, err := d.Scope()
	require.NoError(t, err)
	assert.Equal(t, "s1", s.Name())

	n, err := d.Notifiers()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"users": "users_channel"}, n)

	n["users"] = "mutated"
	again, _ := d.Notifiers()
	assert.Equal(t, "users_channel", again["users"])
}

func TestDispatcher_NoOptInDefaultFalse(t *testing.T) {
	f := newFixture(t, usersOnly)
	m := &recordingMetrics{}
	d := New(f.cfg, f.provider, "foo", nil, WithMetrics(m))

	require.NoError(t, d.Dispatch(context.Background()))
	assert.Empty(t, f.users.calls())
	assert.Equal(t, 0, m.delivered)
	assert.Equal(t, 2, m.dropped)
}

func TestDispatcher_ExplicitOptIn(t *testing.T) {
	f := newFixture(t, usersOnly)
	ctx := context.Background()
	require.NoError(t, f.provider.OptIn(ctx, fooKey("2", "users_channel")))

	d := New(f.cfg, f.provider, "foo", nil)
	recipients, err := d.Recipients(ctx, "users")
	require.NoError(t, err)

	filtered, err := d.FilterRecipients(ctx, recipients, "users_channel")
	require.NoError(t, err)
	assert.Equal(t, entities("2"), filtered)

	require.NoError(t, d.Dispatch(ctx))
	calls := f.users.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"2"}, calls[0].RecipientIDs())
	assert.Equal(t, "foo", calls[0].Alert)
	assert.Equal(t, "s1", calls[0].Scope)
	assert.Equal(t, "users", calls[0].Group)
	assert.Equal(t, "users_channel", calls[0].Channel)
	assert.Equal(t, 1, f.provider.Len(), "фильтрация не изменяет хранилище")
}

func TestDispatcher_FilterRecipients(t *testing.T) {
	tests := []struct {
		name     string
		define   func(a *registry.AlertBuilder)
		records  map[string]bool
		expected []string
	}{
		{
			name:     "default false, записей нет",
			define:   usersOnly,
			expected: []string{},
		},
		{
			name:     "default true, записей нет",
			define:   func(a *registry.AlertBuilder) { usersOnly(a); a.Default(true) },
			expected: []string{"1", "2", "3"},
		},
		{
			name:     "default true, явная отписка",
			define:   func(a *registry.AlertBuilder) { usersOnly(a); a.Default(true) },
			records:  map[string]bool{"2": false},
			expected: []string{"1", "3"},
		},
		{
			name:     "переопределение канала true",
			define:   func(a *registry.AlertBuilder) { usersOnly(a); a.DefaultOn(true, "users_channel") },
			records:  map[string]bool{"3": false},
			expected: []string{"1", "2"},
		},
		{
			name:     "переопределение канала false перекрывает глобальное true",
			define:   func(a *registry.AlertBuilder) { usersOnly(a); a.Default(true).DefaultOn(false, "users_channel") },
			records:  map[string]bool{"3": true},
			expected: []string{"3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.define)
			ctx := context.Background()
			for id, v := range tt.records {
				if v {
					require.NoError(t, f.provider.OptIn(ctx, fooKey(id, "users_channel")))
				} else {
					require.NoError(t, f.provider.OptOut(ctx, fooKey(id, "users_channel")))
				}
			}

			d := New(f.cfg, f.provider, "foo", nil)
			filtered, err := d.FilterRecipients(ctx, entities("1", "2", "3"), "users_channel")
			require.NoError(t, err)

			ids := make([]string, 0, len(filtered))
			for _, r := range filtered {
				ids = append(ids, r.RecipientID())
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestDispatcher_FilterUnknownChannel(t *testing.T) {
	f := newFixture(t, usersOnly)
	d := New(f.cfg, f.provider, "foo", nil)

	_, err := d.FilterRecipients(context.Background(), entities("1"), "bad_channel")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrConfigUnknownChannel))
}

func TestDispatcher_FilterProviderError(t *testing.T) {
	f := newFixture(t, usersOnly)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(f.cfg, f.provider, "foo", nil)
	_, err := d.FilterRecipients(ctx, entities("1"), "users_channel")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatcher_Recipients(t *testing.T) {
	f := newFixture(t, usersOnly)
	d := New(f.cfg, f.provider, "foo", nil)

	got, err := d.Recipients(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, entities("1", "2"), got)

	_, err = d.Recipients(context.Background(), "nobody")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrDispatchResolution))
	assert.ErrorIs(t, err, notify.ErrUnknownGroup)
}

func TestDispatcher_RecipientsWithoutResolver(t *testing.T) {
	b := registry.NewBuilder()
	_, err := b.Channel("email", &recordingChannel{})
	require.NoError(t, err)
	s, err := b.Scope("orphan", nil)
	require.NoError(t, err)
	_, err = s.Alert("a", func(a *registry.AlertBuilder) { a.Notify("users").On("email").Default(true) })
	require.NoError(t, err)
	cfg, err := b.Build()
	require.NoError(t, err)

	d := New(cfg, optin.NewMemoryProvider(), "a", nil)
	_, err = d.Recipients(context.Background(), "users")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrDispatchResolution))
}

func TestDispatcher_RecipientsResolverError(t *testing.T) {
	boom := errors.New("directory unavailable")
	b := registry.NewBuilder()
	_, err := b.Channel("email", &recordingChannel{})
	require.NoError(t, err)
	s, err := b.Scope("s1", notify.Groups{
		"users": func(context.Context, any) ([]notify.Recipient, error) { return nil, boom },
	})
	require.NoError(t, err)
	_, err = s.Alert("foo", func(a *registry.AlertBuilder) { a.Notify("users").On("email") })
	require.NoError(t, err)
	cfg, err := b.Build()
	require.NoError(t, err)

	_, err = New(cfg, nil, "foo", nil).Recipients(context.Background(), "users")
	assert.ErrorIs(t, err, boom)
	assert.False(t, apperrors.HasCode(err, apperrors.ErrDispatchResolution))
}

func TestDispatcher_ChannelGroupTarget(t *testing.T) {
	f := newFixture(t, func(a *registry.AlertBuilder) {
		a.Notify("users").On("users_channel")
		a.Notify("admins").On("staff")
		a.Default(true)
	})

	require.NoError(t, New(f.cfg, f.provider, "foo", "payload").Dispatch(context.Background()))

	require.Len(t, f.users.calls(), 1)
	staff := f.admins.calls()
	require.Len(t, staff, 1)
	assert.Equal(t, []string{"9"}, staff[0].RecipientIDs())
	assert.Equal(t, "admins", staff[0].Group)
	assert.Equal(t, "payload", staff[0].Payload)
}

func TestDispatcher_DefaultTargetWithoutChannels(t *testing.T) {
	f := newFixture(t, func(a *registry.AlertBuilder) {
		a.Notify("users")
		a.Default(true)
	})

	// users_channel зарегистрирован без группы, поэтому он в "default".
	require.NoError(t, New(f.cfg, f.provider, "foo", nil).Dispatch(context.Background()))
	assert.Len(t, f.users.calls(), 1)

	b := registry.NewBuilder()
	_, err := b.Channel("only_staff", &recordingChannel{}, registry.InGroup("staff"))
	require.NoError(t, err)
	s, err := b.Scope("s1", notify.Groups{})
	require.NoError(t, err)
	_, err = s.Alert("foo", func(a *registry.AlertBuilder) { a.Notify("users").Default(true) })
	require.NoError(t, err)
	cfg, err := b.Build()
	require.NoError(t, err)

	assert.NoError(t, New(cfg, nil, "foo", nil).Dispatch(context.Background()),
		"пустая группа default — не ошибка")
}

func TestDispatcher_UnresolvedTarget(t *testing.T) {
	f := newFixture(t, func(a *registry.AlertBuilder) {
		a.Notify("users").On("pigeon_post")
	})

	err := New(f.cfg, f.provider, "foo", nil).Dispatch(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrDispatchResolution))
}

func TestDispatcher_DeliveryError(t *testing.T) {
	f := newFixture(t, func(a *registry.AlertBuilder) {
		a.Notify("users").On("users_channel")
		a.Notify("admins").On("staff")
		a.Default(true)
	})
	smtpDown := errors.New("smtp down")
	f.users.err = smtpDown

	err := New(f.cfg, f.provider, "foo", nil, WithLogger(logging.NewNopLogger())).Dispatch(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrDeliveryFailed))
	assert.ErrorIs(t, err, smtpDown)
	assert.Empty(t, f.admins.calls(), "после ошибки отправка прекращается")
}

func TestDispatcher_DeliveryErrorKeepsEarlierDeliveries(t *testing.T) {
	f := newFixture(t, func(a *registry.AlertBuilder) {
		a.Notify("users").On("users_channel")
		a.Notify("admins").On("staff")
		a.Default(true)
	})
	smtpDown := errors.New("smtp down")
	f.admins.err = smtpDown

	report, err := New(f.cfg, f.provider, "foo", nil, WithLogger(logging.NewNopLogger())).DispatchReport(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrDeliveryFailed))
	assert.ErrorIs(t, err, smtpDown)

	require.Len(t, f.users.calls(), 1, "доставка до ошибки не откатывается")
	assert.Equal(t, []string{"1", "2"}, f.users.calls()[0].RecipientIDs())
	assert.Len(t, f.admins.calls(), 1)
	assert.Equal(t, 1, report.Deliveries)
	assert.Equal(t, 2, report.Recipients)
}

func TestDispatcher_DispatchReport(t *testing.T) {
	f := newFixture(t, func(a *registry.AlertBuilder) {
		a.Notify("users").On("users_channel")
		a.Notify("admins").On("staff")
		a.Default(true)
	})
	ctx := context.Background()
	require.NoError(t, f.provider.OptOut(ctx, fooKey("2", "users_channel")))
	require.NoError(t, f.provider.OptOut(ctx, fooKey("9", "staff_channel")))

	report, err := New(f.cfg, f.provider, "foo", nil).DispatchReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Deliveries: 1, Recipients: 1, Dropped: 2, Skipped: 1}, report)

	f2 := newFixture(t, func(a *registry.AlertBuilder) {
		usersOnly(a)
		a.AppliesTo("site")
	})
	report, err = New(f2.cfg, f2.provider, "foo", nil, WithProduct("mobile")).DispatchReport(ctx)
	require.NoError(t, err)
	assert.True(t, report.ProductSkipped)
	assert.Zero(t, report.Deliveries)
}

func TestDispatcher_Product(t *testing.T) {
	f := newFixture(t, func(a *registry.AlertBuilder) {
		usersOnly(a)
		a.Default(true).AppliesTo("site")
	})
	m := &recordingMetrics{}

	require.NoError(t, New(f.cfg, f.provider, "foo", nil, WithProduct("mobile"), WithMetrics(m)).Dispatch(context.Background()))
	assert.Empty(t, f.users.calls())
	assert.Equal(t, []string{"product"}, m.skipped)

	require.NoError(t, New(f.cfg, f.provider, "foo", nil, WithProduct("site")).Dispatch(context.Background()))
	assert.Len(t, f.users.calls(), 1)
}
