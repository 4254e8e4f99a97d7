package assign

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrWong99/vocifer/pkg/types"
)

// ---------------------------------------------------------------------------
// Test helpers, mock DB types
// ---------------------------------------------------------------------------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// mockDB implements the DB interface with canned behaviour.
type mockDB struct {
	queryRowFunc func(sql string, args []any) pgx.Row
	execFunc     func(sql string, args []any) (pgconn.CommandTag, error)

	execSQL  []string
	execArgs [][]any
}

func (db *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return db.queryRowFunc(sql, args)
}

func (db *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (db *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execSQL = append(db.execSQL, sql)
	db.execArgs = append(db.execArgs, args)
	if db.execFunc != nil {
		return db.execFunc(sql, args)
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

// ---------------------------------------------------------------------------

func TestPostgresGet_NotFound(t *testing.T) {
	db := &mockDB{
		queryRowFunc: func(sql string, args []any) pgx.Row {
			return &mockRow{scanFunc: func(dest ...any) error {
				return pgx.ErrNoRows
			}}
		},
	}
	s := NewPostgresStore(db)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get: expected ErrNotFound, got %v", err)
	}
}

func TestPostgresGet_ScansRow(t *testing.T) {
	db := &mockDB{
		queryRowFunc: func(sql string, args []any) pgx.Row {
			if args[0] != "varlo-the-goblin-guard" {
				t.Errorf("unexpected key arg %v", args[0])
			}
			return &mockRow{scanFunc: func(dest ...any) error {
				*dest[0].(*string) = "eleven"
				*dest[1].(*string) = "Clyde"
				*dest[2].(*string) = "Clyde"
				*dest[3].(*int64) = 1700000000000
				*dest[4].(*types.AssignedBy) = types.AssignedAuto
				*dest[5].(*string) = "goblin"
				return nil
			}}
		},
	}
	s := NewPostgresStore(db)
	a, err := s.Get(context.Background(), "varlo-the-goblin-guard")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a.Provider != "eleven" || a.VoiceID != "Clyde" || a.PrimaryTag != "goblin" {
		t.Fatalf("Get = %+v", a)
	}
}

func TestPostgresPut_Upserts(t *testing.T) {
	db := &mockDB{}
	s := NewPostgresStore(db)
	err := s.Put(context.Background(), "id:4623", types.VoiceAssignment{
		Provider:   "eleven",
		VoiceID:    "Josh",
		AssignedBy: types.AssignedUser,
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if len(db.execSQL) != 1 || !strings.Contains(db.execSQL[0], "ON CONFLICT") {
		t.Fatalf("Put: expected a single upsert, got %v", db.execSQL)
	}
	if db.execArgs[0][0] != "id:4623" {
		t.Fatalf("Put: wrong key arg %v", db.execArgs[0][0])
	}
}

func TestPostgresRemove_NotFound(t *testing.T) {
	db := &mockDB{
		execFunc: func(sql string, args []any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("DELETE 0"), nil
		},
	}
	s := NewPostgresStore(db)
	if err := s.Remove(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Remove: expected ErrNotFound, got %v", err)
	}
}

func TestPostgresMigrate(t *testing.T) {
	db := &mockDB{}
	s := NewPostgresStore(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if len(db.execSQL) != 1 || !strings.Contains(db.execSQL[0], "CREATE TABLE IF NOT EXISTS voice_assignments") {
		t.Fatalf("Migrate: unexpected SQL %v", db.execSQL)
	}
}
