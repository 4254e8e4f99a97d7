package assign

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrWong99/vocifer/pkg/types"
)

// Schema is the SQL DDL for the voice_assignments table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS voice_assignments (
    identity_key TEXT PRIMARY KEY,
    provider     TEXT NOT NULL,
    voice_id     TEXT NOT NULL,
    voice_label  TEXT NOT NULL DEFAULT '',
    assigned_at  BIGINT NOT NULL,
    assigned_by  TEXT NOT NULL DEFAULT 'auto',
    primary_tag  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_voice_assignments_provider ON voice_assignments(provider);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database, for
// installations that already run one and want assignments shared across
// machines.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given
// database connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// voice_assignments table and index if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("assign: migrate: %w", err)
	}
	return nil
}

// Get implements [Store.Get].
func (s *PostgresStore) Get(ctx context.Context, key string) (types.VoiceAssignment, error) {
	const q = `SELECT provider, voice_id, voice_label, assigned_at, assigned_by, primary_tag
	           FROM voice_assignments WHERE identity_key = $1`

	var a types.VoiceAssignment
	err := s.db.QueryRow(ctx, q, key).Scan(
		&a.Provider, &a.VoiceID, &a.VoiceLabel, &a.AssignedAtEpochMs, &a.AssignedBy, &a.PrimaryTag,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.VoiceAssignment{}, ErrNotFound
	}
	if err != nil {
		return types.VoiceAssignment{}, fmt.Errorf("assign: get %q: %w", key, err)
	}
	return a, nil
}

// Put implements [Store.Put] as an upsert.
func (s *PostgresStore) Put(ctx context.Context, key string, a types.VoiceAssignment) error {
	const q = `INSERT INTO voice_assignments
	               (identity_key, provider, voice_id, voice_label, assigned_at, assigned_by, primary_tag)
	           VALUES ($1, $2, $3, $4, $5, $6, $7)
	           ON CONFLICT (identity_key) DO UPDATE SET
	               provider = EXCLUDED.provider,
	               voice_id = EXCLUDED.voice_id,
	               voice_label = EXCLUDED.voice_label,
	               assigned_at = EXCLUDED.assigned_at,
	               assigned_by = EXCLUDED.assigned_by,
	               primary_tag = EXCLUDED.primary_tag`

	_, err := s.db.Exec(ctx, q, key, a.Provider, a.VoiceID, a.VoiceLabel, a.AssignedAtEpochMs, string(a.AssignedBy), a.PrimaryTag)
	if err != nil {
		return fmt.Errorf("assign: put %q: %w", key, err)
	}
	return nil
}

// Remove implements [Store.Remove].
func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM voice_assignments WHERE identity_key = $1`, key)
	if err != nil {
		return fmt.Errorf("assign: remove %q: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// All implements [Store.All].
func (s *PostgresStore) All(ctx context.Context) (map[string]types.VoiceAssignment, error) {
	const q = `SELECT identity_key, provider, voice_id, voice_label, assigned_at, assigned_by, primary_tag
	           FROM voice_assignments`

	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("assign: list: %w", err)
	}
	defer rows.Close()

	out := make(map[string]types.VoiceAssignment)
	for rows.Next() {
		var (
			key string
			a   types.VoiceAssignment
		)
		if err := rows.Scan(&key, &a.Provider, &a.VoiceID, &a.VoiceLabel, &a.AssignedAtEpochMs, &a.AssignedBy, &a.PrimaryTag); err != nil {
			return nil, fmt.Errorf("assign: scan: %w", err)
		}
		out[key] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("assign: list: %w", err)
	}
	return out, nil
}
