package sequin

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseCreateDefaults(t *testing.T) {
	var d DatabaseCreate
	require.NoError(t, json.Unmarshal([]byte(`{
		"name": "test-db",
		"hostname": "db.internal",
		"database": "app",
		"username": "postgres",
		"password": "secret"
	}`), &d))
	require.NoError(t, d.Validate())
	assert.Equal(t, 5432, d.Port)
	assert.True(t, d.SSL)
	assert.False(t, d.UseLocalTunnel)
	assert.False(t, d.IPv6)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "test-db",
		"hostname": "db.internal",
		"database": "app",
		"username": "postgres",
		"password": "secret",
		"port": 5432,
		"ssl": true,
		"use_local_tunnel": false,
		"ipv6": false,
		"replication_slots": null
	}`, string(b))
}

func TestDatabaseCreateExplicitValues(t *testing.T) {
	var d DatabaseCreate
	require.NoError(t, json.Unmarshal([]byte(`{"port": 6543, "ssl": false, "replication_slots": [{"publication_name": "pub"}]}`), &d))
	assert.Equal(t, 6543, d.Port)
	assert.False(t, d.SSL)
	require.Len(t, d.ReplicationSlots, 1)
	assert.Equal(t, "pub", d.ReplicationSlots[0]["publication_name"])
}

func TestDatabaseCreateValidate(t *testing.T) {
	d := DatabaseCreate{Name: "db", Port: 5432}
	err := d.Validate()
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "hostname, database, username, password")

	d = DatabaseCreate{Name: "a", Hostname: "b", Database: "c", Username: "d", Password: "e", Port: 70000}
	assert.ErrorIs(t, d.Validate(), ErrValidation)
}

func TestDatabaseUpdateOmitsAbsent(t *testing.T) {
	b, err := json.Marshal(DatabaseUpdate{Name: ptr("renamed")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"renamed"}`, string(b))

	b, err = json.Marshal(DatabaseUpdate{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))
}
