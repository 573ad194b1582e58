package settings

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	pg "github.com/edgeflare/etlm/pkg/pgx"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const selectSettings = `
	SELECT id, sequin_url, sequin_token, kafka_url, sequin_reachable, kafka_reachable, updated_at
	FROM system_settings
	ORDER BY id ASC
	LIMIT 1`

// PostgresStore keeps settings in the system_settings table. Reads and writes are single
// statements without an enclosing transaction; concurrent upserts resolve last-writer-wins
// and the singleton constraint keeps the table at one row.
type PostgresStore struct {
	conn   pg.Conn
	logger *zap.Logger
}

// NewPostgresStore returns a store backed by conn.
func NewPostgresStore(conn pg.Conn, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{conn: conn, logger: logger}
}

// load returns the persisted row, or nil when the table is empty.
func (s *PostgresStore) load(ctx context.Context) (*Settings, error) {
	var st Settings
	err := s.conn.QueryRow(ctx, selectSettings).Scan(
		&st.ID,
		&st.SequinURL,
		&st.SequinToken,
		&st.KafkaURL,
		&st.SequinReachable,
		&st.KafkaReachable,
		&st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &st, nil
}

func (s *PostgresStore) Get(ctx context.Context) (*Settings, error) {
	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return Defaults(), nil
	}
	return st, nil
}

// Upsert writes in one statement keyed on the singleton column, so concurrent first writes
// converge on one row.
func (s *PostgresStore) Upsert(ctx context.Context, p Patch) (*Settings, error) {
	conflict := pg.OnConflict{Columns: []string{"singleton"}}
	if p.Empty() {
		current, err := s.load(ctx)
		if err != nil {
			return nil, err
		}
		if current != nil {
			return current, nil
		}
	} else {
		conflict.Update = append(slices.Sorted(maps.Keys(p.columns())), "updated_at")
	}

	seeded := Defaults()
	p.Apply(seeded)
	cols := seeded.columns()
	cols["updated_at"] = time.Now().UTC()
	if err := pg.UpsertRow(ctx, s.conn, Table, cols, conflict); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	s.logger.Debug("settings saved", zap.Strings("fields", conflict.Update))

	return s.Get(ctx)
}
