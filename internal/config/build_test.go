package config

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/apk-notify/internal/entity/notify"
	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
)

type fakeFactory struct {
	kinds []string
}

func (f *fakeFactory) New(kind string) (notify.Deliverer, error) {
	switch kind {
	case "log", "email", "telegram", "webhook":
		f.kinds = append(f.kinds, kind)
		return notify.DelivererFunc(func(context.Context, notify.Delivery) error { return nil }), nil
	default:
		return nil, errors.New("unknown kind")
	}
}

func loadTestDefinitions(t *testing.T) *Definitions {
	t.Helper()
	defs, err := LoadDefinitions("testdata/definitions.yaml")
	require.NoError(t, err)
	return defs
}

func TestBuildConfiguration(t *testing.T) {
	factory := &fakeFactory{}
	cfg, err := BuildConfiguration(loadTestDefinitions(t), factory)
	require.NoError(t, err)

	assert.Equal(t, []string{"log", "email", "telegram"}, factory.kinds)
	assert.True(t, cfg.HasProduct("erp"))
	assert.Len(t, cfg.ChannelsFor("ops"), 1)

	alert, ok := cfg.Alert("build_failed")
	require.True(t, ok)
	assert.Equal(t, []string{"maintainers", "duty"}, alert.Groups())
	target, _ := alert.Target("duty")
	assert.Equal(t, "ops", target)
	assert.True(t, alert.DefaultValue())
	emailDefault, err := alert.DefaultFor("email")
	require.NoError(t, err)
	assert.False(t, emailDefault)
	assert.True(t, alert.AppliesTo("erp"))
	assert.False(t, alert.AppliesTo("zup"))
	assert.Equal(t, []string{"ci"}, alert.Tags())

	deploy, ok := cfg.Alert("deploy_done")
	require.True(t, ok)
	target, _ = deploy.Target("maintainers")
	assert.Equal(t, "default", target)
}

func TestBuildConfiguration_ScopeResolver(t *testing.T) {
	cfg, err := BuildConfiguration(loadTestDefinitions(t), &fakeFactory{})
	require.NoError(t, err)

	scope, ok := cfg.Scope("project")
	require.True(t, ok)
	r := scope.Resolver()
	ctx := context.Background()

	billing, err := r.Resolve(ctx, "maintainers", map[string]any{"project_id": "billing"})
	require.NoError(t, err)
	require.Len(t, billing, 1)
	assert.Equal(t, "u3", billing[0].RecipientID())

	other, err := r.Resolve(ctx, "maintainers", map[string]any{"project_id": "crm"})
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "u1", other[0].RecipientID())

	_, err = r.Resolve(ctx, "managers", map[string]any{"project_id": "crm"})
	assert.ErrorIs(t, err, notify.ErrUnknownGroup)
}

func TestBuildConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name string
		defs *Definitions
		code string
	}{
		{
			name: "unknown channel kind",
			defs: &Definitions{Channels: []ChannelDef{{Name: "pager", Kind: "sms"}}},
			code: apperrors.ErrConfigUnknownChannel,
		},
		{
			name: "duplicate channel",
			defs: &Definitions{Channels: []ChannelDef{{Name: "log"}, {Name: "log"}}},
			code: apperrors.ErrConfigDuplicate,
		},
		{
			name: "default on unregistered channel",
			defs: &Definitions{Scopes: []ScopeDef{{
				Name:   "project",
				Alerts: []AlertDef{{Name: "a", Defaults: map[string]bool{"email": true}}},
			}}},
			code: apperrors.ErrConfigUnknownChannel,
		},
		{
			name: "unknown product",
			defs: &Definitions{Scopes: []ScopeDef{{
				Name:   "project",
				Alerts: []AlertDef{{Name: "a", AppliesTo: []string{"erp"}}},
			}}},
			code: apperrors.ErrConfigUnknownProduct,
		},
		{
			name: "duplicate alert across scopes",
			defs: &Definitions{Scopes: []ScopeDef{
				{Name: "project", Alerts: []AlertDef{{Name: "a"}}},
				{Name: "release", Alerts: []AlertDef{{Name: "a"}}},
			}},
			code: apperrors.ErrConfigDuplicate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildConfiguration(tt.defs, &fakeFactory{})
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.code), err.Error())
		})
	}
}

func TestBuildConfiguration_NilArguments(t *testing.T) {
	_, err := BuildConfiguration(nil, &fakeFactory{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrConfigValidate))

	_, err = BuildConfiguration(&Definitions{}, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrConfigValidate))
}
