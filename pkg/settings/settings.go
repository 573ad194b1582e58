// Package settings persists the single system-wide configuration row: the upstream
// base URL and bearer token, the Kafka broker address, and last-known reachability.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultSequinURL = "https://api.sequinstream.com"
	DefaultKafkaURL  = "localhost:9092"

	Table = "system_settings"
)

// ErrInvalidPatch is wrapped by Patch.Validate failures.
var ErrInvalidPatch = errors.New("invalid settings")

// Settings is the singleton configuration row. ID is zero until the row is persisted.
type Settings struct {
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
	SequinToken     *string    `json:"sequin_token"`
	SequinURL       string     `json:"sequin_url"`
	KafkaURL        string     `json:"kafka_url"`
	ID              int64      `json:"id,omitempty"`
	SequinReachable bool       `json:"sequin_reachable"`
	KafkaReachable  bool       `json:"kafka_reachable"`
}

// Defaults returns an unpersisted Settings carrying the documented default values.
func Defaults() *Settings {
	return &Settings{
		SequinURL: DefaultSequinURL,
		KafkaURL:  DefaultKafkaURL,
	}
}

// Persisted reports whether s was loaded from storage.
func (s *Settings) Persisted() bool {
	return s != nil && s.ID != 0
}

// Token returns the bearer token and whether one is configured.
func (s *Settings) Token() (string, bool) {
	if s == nil || s.SequinToken == nil || *s.SequinToken == "" {
		return "", false
	}
	return *s.SequinToken, true
}

// Patch is a partial update. Nil fields are left untouched. An empty SequinToken clears it,
// and so does an explicit JSON null.
type Patch struct {
	SequinURL       *string `json:"sequin_url,omitempty"`
	SequinToken     *string `json:"sequin_token,omitempty"`
	KafkaURL        *string `json:"kafka_url,omitempty"`
	SequinReachable *bool   `json:"sequin_reachable,omitempty"`
	KafkaReachable  *bool   `json:"kafka_reachable,omitempty"`
}

func (p *Patch) UnmarshalJSON(data []byte) error {
	type patch Patch
	if err := json.Unmarshal(data, (*patch)(p)); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["sequin_token"]; ok && string(raw) == "null" {
		empty := ""
		p.SequinToken = &empty
	}
	return nil
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.SequinURL == nil && p.SequinToken == nil && p.KafkaURL == nil &&
		p.SequinReachable == nil && p.KafkaReachable == nil
}

// Validate checks the fields present in the patch.
func (p Patch) Validate() error {
	if p.SequinURL != nil {
		u, err := url.Parse(*p.SequinURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: sequin_url must be an absolute http(s) URL", ErrInvalidPatch)
		}
	}
	if p.KafkaURL != nil && strings.TrimSpace(*p.KafkaURL) == "" {
		return fmt.Errorf("%w: kafka_url must not be empty", ErrInvalidPatch)
	}
	return nil
}

// Apply copies the fields present in p onto s.
func (p Patch) Apply(s *Settings) {
	if p.SequinURL != nil {
		s.SequinURL = *p.SequinURL
	}
	if p.SequinToken != nil {
		if *p.SequinToken == "" {
			s.SequinToken = nil
		} else {
			token := *p.SequinToken
			s.SequinToken = &token
		}
	}
	if p.KafkaURL != nil {
		s.KafkaURL = *p.KafkaURL
	}
	if p.SequinReachable != nil {
		s.SequinReachable = *p.SequinReachable
	}
	if p.KafkaReachable != nil {
		s.KafkaReachable = *p.KafkaReachable
	}
}

// columns maps the fields present in p to column values.
func (p Patch) columns() map[string]any {
	cols := make(map[string]any)
	if p.SequinURL != nil {
		cols["sequin_url"] = *p.SequinURL
	}
	if p.SequinToken != nil {
		if *p.SequinToken == "" {
			cols["sequin_token"] = nil
		} else {
			cols["sequin_token"] = *p.SequinToken
		}
	}
	if p.KafkaURL != nil {
		cols["kafka_url"] = *p.KafkaURL
	}
	if p.SequinReachable != nil {
		cols["sequin_reachable"] = *p.SequinReachable
	}
	if p.KafkaReachable != nil {
		cols["kafka_reachable"] = *p.KafkaReachable
	}
	return cols
}

// columns maps every persisted field of s, used when the row is first created.
func (s *Settings) columns() map[string]any {
	var token any
	if s.SequinToken != nil {
		token = *s.SequinToken
	}
	return map[string]any{
		"sequin_url":       s.SequinURL,
		"sequin_token":     token,
		"kafka_url":        s.KafkaURL,
		"sequin_reachable": s.SequinReachable,
		"kafka_reachable":  s.KafkaReachable,
	}
}

// Store reads and writes the singleton settings row.
type Store interface {
	// Get returns the persisted settings, or Defaults() when no row exists.
	Get(ctx context.Context) (*Settings, error)
	// Upsert creates the row from Defaults() overlaid with p when absent, otherwise applies
	// only the fields present in p. It returns the stored result.
	Upsert(ctx context.Context, p Patch) (*Settings, error)
}

// RecordReachability stores the outcome of a health check, but only on an existing row so
// that polling never creates settings the user has not saved.
func RecordReachability(ctx context.Context, store Store, p Patch) error {
	current, err := store.Get(ctx)
	if err != nil {
		return err
	}
	if !current.Persisted() {
		return nil
	}
	_, err = store.Upsert(ctx, Patch{SequinReachable: p.SequinReachable, KafkaReachable: p.KafkaReachable})
	return err
}
