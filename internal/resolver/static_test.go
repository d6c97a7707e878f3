package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/apk-notify/internal/entity/notify"
)

func projectID(payload any) (any, error) {
	m, ok := payload.(map[string]any)
	if !ok {
		return nil, errors.New("not a map")
	}
	return m["project_id"], nil
}

func ids(rs []notify.Recipient) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.RecipientID())
	}
	return out
}

func TestStatic_Resolve(t *testing.T) {
	s := NewStatic(
		map[string][]notify.Entity{
			"owners": {{ID: "1"}, {ID: "2"}},
			"ops":    {{ID: "9"}},
		},
		WithEntityID(projectID),
		WithEntityGroups("42", map[string][]notify.Entity{"owners": {{ID: "7"}}}),
	)

	tests := []struct {
		name    string
		group   string
		payload any
		want    []string
	}{
		{name: "shared group", group: "owners", payload: map[string]any{"project_id": 1}, want: []string{"1", "2"}},
		{name: "entity override", group: "owners", payload: map[string]any{"project_id": 42}, want: []string{"7"}},
		{name: "entity without group falls back", group: "ops", payload: map[string]any{"project_id": "42"}, want: []string{"9"}},
		{name: "payload without id", group: "owners", payload: "plain", want: []string{"1", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Resolve(context.Background(), tt.group, tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestStatic_UnknownGroup(t *testing.T) {
	s := NewStatic(nil)
	_, err := s.Resolve(context.Background(), "nobody", nil)
	assert.ErrorIs(t, err, notify.ErrUnknownGroup)
	assert.Empty(t, s.Groups())
}

func TestStatic_EmptyGroup(t *testing.T) {
	s := NewStatic(map[string][]notify.Entity{"empty": nil})
	got, err := s.Resolve(context.Background(), "empty", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStatic_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStatic(nil).Resolve(ctx, "owners", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatic_LargeNumericEntityID(t *testing.T) {
	s := NewStatic(
		map[string][]notify.Entity{"owners": {{ID: "general"}}},
		WithEntityID(projectID),
		WithEntityGroups("12345678", map[string][]notify.Entity{"owners": {{ID: "big"}}}),
		WithEntityGroups("7", map[string][]notify.Entity{"owners": {{ID: "small"}}}),
	)

	payloads := []map[string]any{
		{"project_id": json.Number("12345678")},
		{"project_id": float64(12345678)},
		{"project_id": 12345678},
		{"project_id": "12345678"},
	}
	for _, p := range payloads {
		got, err := s.Resolve(context.Background(), "owners", p)
		require.NoError(t, err)
		assert.Equal(t, []string{"big"}, ids(got), "payload %#v", p)
	}

	got, err := s.Resolve(context.Background(), "owners", map[string]any{"project_id": float64(7)})
	require.NoError(t, err)
	assert.Equal(t, []string{"small"}, ids(got))
}

func TestFormatEntityID(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"abc", "abc"},
		{json.Number("98765432101"), "98765432101"},
		{float64(12345678), "12345678"},
		{float64(1.5), "1.5"},
		{int64(42), "42"},
		{uint(3), "3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatEntityID(tt.in))
	}
}
