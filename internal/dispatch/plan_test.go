package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
	"github.com/Kargones/apk-notify/internal/registry"
)

func TestDispatcher_Plan(t *testing.T) {
	f := newFixture(t, func(a *registry.AlertBuilder) {
		a.Notify("users").On("users_channel")
		a.Notify("admins").On("staff")
		a.Default(true)
		a.DefaultOn(false, "users_channel")
	})
	ctx := context.Background()
	require.NoError(t, f.provider.OptIn(ctx, fooKey("2", "users_channel")))

	m := &recordingMetrics{}
	plan, err := New(f.cfg, f.provider, "foo", nil, WithMetrics(m)).Plan(ctx)
	require.NoError(t, err)

	assert.Equal(t, []Planned{
		{Group: "users", Target: "users_channel", Channel: "users_channel", Recipients: []string{"2"}, Dropped: 1},
		{Group: "admins", Target: "staff", Channel: "staff_channel", Recipients: []string{"9"}},
	}, plan)

	// Plan ничего не доставляет и не пишет метрики.
	assert.Empty(t, f.users.calls())
	assert.Empty(t, f.admins.calls())
	assert.Zero(t, m.kept+m.dropped)
}

func TestDispatcher_Plan_Skips(t *testing.T) {
	f := newFixture(t, func(a *registry.AlertBuilder) {
		a.Notify("users")
		a.Notify("admins").On("staff")
		a.AppliesTo("site")
	})

	plan, err := New(f.cfg, f.provider, "foo", nil).Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Planned{
		{Group: "users", Target: registry.DefaultGroup, Channel: "users_channel", Dropped: 2, Skipped: true, SkipReason: SkipReasonNoRecipients},
		{Group: "admins", Target: "staff", Channel: "staff_channel", Dropped: 1, Skipped: true, SkipReason: SkipReasonNoRecipients},
	}, plan)

	plan, err = New(f.cfg, f.provider, "foo", nil, WithProduct("admin")).Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Planned{{Skipped: true, SkipReason: SkipReasonProduct}}, plan)
}

func TestDispatcher_Plan_Errors(t *testing.T) {
	f := newFixture(t, func(a *registry.AlertBuilder) { a.Notify("users").On("nowhere") })

	_, err := New(f.cfg, f.provider, "foo", nil).Plan(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrDispatchResolution))

	_, err = New(f.cfg, f.provider, "missing", nil).Plan(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrAlertNotFound))
}
