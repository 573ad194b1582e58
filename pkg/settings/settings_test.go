package settings

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, "localhost:9092", d.KafkaURL)
	assert.Equal(t, DefaultSequinURL, d.SequinURL)
	assert.Nil(t, d.SequinToken)
	assert.False(t, d.Persisted())

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"sequin_url": "https://api.sequinstream.com",
		"sequin_token": null,
		"kafka_url": "localhost:9092",
		"sequin_reachable": false,
		"kafka_reachable": false
	}`, string(b))
}

func TestToken(t *testing.T) {
	var nilSettings *Settings
	_, ok := nilSettings.Token()
	assert.False(t, ok)

	s := Defaults()
	_, ok = s.Token()
	assert.False(t, ok)

	s.SequinToken = ptr("")
	_, ok = s.Token()
	assert.False(t, ok)

	s.SequinToken = ptr("test-token")
	tok, ok := s.Token()
	assert.True(t, ok)
	assert.Equal(t, "test-token", tok)
}

func TestPatchDecodeAbsentFields(t *testing.T) {
	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"kafka_url":"kafka:9092"}`), &p))
	assert.Nil(t, p.SequinURL)
	assert.Nil(t, p.SequinToken)
	require.NotNil(t, p.KafkaURL)
	assert.Equal(t, "kafka:9092", *p.KafkaURL)
	assert.False(t, p.Empty())
	assert.True(t, Patch{}.Empty())
}

func TestPatchDecodeToken(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantToken *string
	}{
		{name: "absent", body: `{"kafka_url":"k:1"}`},
		{name: "null clears", body: `{"sequin_token": null}`, wantToken: ptr("")},
		{name: "empty clears", body: `{"sequin_token":""}`, wantToken: ptr("")},
		{name: "value", body: `{"sequin_token":"tok"}`, wantToken: ptr("tok")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Patch
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			assert.Equal(t, tt.wantToken, p.SequinToken)
		})
	}

	var p Patch
	assert.Error(t, json.Unmarshal([]byte(`{"sequin_token":5}`), &p))
}

func TestPatchValidate(t *testing.T) {
	tests := []struct {
		name    string
		patch   Patch
		wantErr bool
	}{
		{name: "empty", patch: Patch{}},
		{name: "https url", patch: Patch{SequinURL: ptr("https://api.example.com/")}},
		{name: "http url with port", patch: Patch{SequinURL: ptr("http://localhost:7376")}},
		{name: "relative url", patch: Patch{SequinURL: ptr("/api")}, wantErr: true},
		{name: "other scheme", patch: Patch{SequinURL: ptr("ftp://x")}, wantErr: true},
		{name: "kafka blank", patch: Patch{KafkaURL: ptr("  ")}, wantErr: true},
		{name: "kafka list", patch: Patch{KafkaURL: ptr("a:9092,b:9092")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPatch)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPatchApplyClearsToken(t *testing.T) {
	s := Defaults()
	Patch{SequinToken: ptr("secret")}.Apply(s)
	require.NotNil(t, s.SequinToken)
	assert.Equal(t, "secret", *s.SequinToken)

	Patch{SequinToken: ptr("")}.Apply(s)
	assert.Nil(t, s.SequinToken)
}

func TestPatchColumns(t *testing.T) {
	cols := Patch{SequinToken: ptr(""), KafkaReachable: ptr(true)}.columns()
	assert.Equal(t, map[string]any{"sequin_token": nil, "kafka_reachable": true}, cols)
	assert.Empty(t, Patch{}.columns())
}

func TestRecordReachability(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, RecordReachability(ctx, store, Patch{SequinReachable: ptr(true)}))
	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.False(t, got.Persisted(), "health checks must not create the settings row")

	_, err = store.Upsert(ctx, Patch{SequinToken: ptr("tok")})
	require.NoError(t, err)

	require.NoError(t, RecordReachability(ctx, store, Patch{SequinReachable: ptr(true), SequinURL: ptr("https://ignored")}))
	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, got.SequinReachable)
	assert.False(t, got.KafkaReachable)
	assert.Equal(t, DefaultSequinURL, got.SequinURL)
}
