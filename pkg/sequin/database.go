package sequin

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is wrapped when a request payload is missing required fields.
var ErrValidation = errors.New("validation failed")

const DefaultDatabasePort = 5432

// DatabaseCreate is the payload for registering a Postgres database upstream.
type DatabaseCreate struct {
	Name             string           `json:"name"`
	Hostname         string           `json:"hostname"`
	Database         string           `json:"database"`
	Username         string           `json:"username"`
	Password         string           `json:"password"`
	ReplicationSlots []map[string]any `json:"replication_slots"`
	Port             int              `json:"port"`
	SSL              bool             `json:"ssl"`
	UseLocalTunnel   bool             `json:"use_local_tunnel"`
	IPv6             bool             `json:"ipv6"`
}

// UnmarshalJSON fills port and ssl defaults for fields absent from the document.
func (d *DatabaseCreate) UnmarshalJSON(b []byte) error {
	type plain DatabaseCreate
	v := plain{Port: DefaultDatabasePort, SSL: true}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*d = DatabaseCreate(v)
	return nil
}

// Validate reports the required fields that are empty.
func (d *DatabaseCreate) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"name", d.Name},
		{"hostname", d.Hostname},
		{"database", d.Database},
		{"username", d.Username},
		{"password", d.Password},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrValidation, strings.Join(missing, ", "))
	}
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrValidation, d.Port)
	}
	return nil
}

// DatabaseUpdate is a partial update. Only non-nil fields are sent upstream.
type DatabaseUpdate struct {
	Name             *string           `json:"name,omitempty"`
	Hostname         *string           `json:"hostname,omitempty"`
	Port             *int              `json:"port,omitempty"`
	Database         *string           `json:"database,omitempty"`
	Username         *string           `json:"username,omitempty"`
	ReplicationSlots *[]map[string]any `json:"replication_slots,omitempty"`
}
