package assign_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/vocifer/internal/assign"
	"github.com/MrWong99/vocifer/pkg/types"
)

func testAssignment(voice string) types.VoiceAssignment {
	return types.VoiceAssignment{
		Provider:          "eleven",
		VoiceID:           voice,
		VoiceLabel:        voice,
		AssignedAtEpochMs: time.Now().UnixMilli(),
		AssignedBy:        types.AssignedAuto,
		PrimaryTag:        "goblin",
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "assignments.json")

	s, err := assign.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	want := testAssignment("Clyde")
	if err := s.Put(ctx, "varlo-the-goblin-guard", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "varlo-the-goblin-guard")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != want {
		t.Fatalf("Get = %+v, want %+v", got, want)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "assignments.json")

	s1, err := assign.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	want := testAssignment("Clyde")
	if err := s1.Put(ctx, "varlo-the-goblin-guard", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// A fresh store over the same path must see the assignment; this is
	// the restart-survival guarantee.
	s2, err := assign.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore reopen: %v", err)
	}
	got, err := s2.Get(ctx, "varlo-the-goblin-guard")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got != want {
		t.Fatalf("Get after reopen = %+v, want %+v", got, want)
	}
}

func TestFileStoreFlatJSONFormat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "assignments.json")

	s, err := assign.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := s.Put(ctx, "id:4623", testAssignment("Josh")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var decoded map[string]types.VoiceAssignment
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("file is not a flat JSON object: %v", err)
	}
	if decoded["id:4623"].VoiceID != "Josh" {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestFileStoreRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := assign.NewFileStore(filepath.Join(t.TempDir(), "a.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := s.Put(ctx, "narrator", testAssignment("Bill")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Remove(ctx, "narrator"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Get(ctx, "narrator"); !errors.Is(err, assign.ErrNotFound) {
		t.Fatalf("Get after Remove: expected ErrNotFound, got %v", err)
	}
	if err := s.Remove(ctx, "narrator"); !errors.Is(err, assign.ErrNotFound) {
		t.Fatalf("Remove twice: expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreMalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := assign.NewFileStore(path); err == nil {
		t.Fatal("NewFileStore: expected error for malformed file")
	}
}

func TestFileStoreConcurrentWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "assignments.json")
	s, err := assign.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	var wg sync.WaitGroup
	keys := []string{"varlo", "thordur", "elora", "zanik", "remus"}
	for _, key := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Put(ctx, key, testAssignment("Clyde")); err != nil {
				t.Errorf("Put %s: %v", key, err)
			}
		}()
	}
	wg.Wait()

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != len(keys) {
		t.Fatalf("All: expected %d assignments, got %d", len(keys), len(all))
	}

	// The file on disk must be intact valid JSON after concurrent rewrites.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var decoded map[string]types.VoiceAssignment
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("file torn after concurrent writes: %v", err)
	}
}

func TestMemStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := assign.NewMemStore()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, assign.ErrNotFound) {
		t.Fatalf("Get: expected ErrNotFound, got %v", err)
	}
	want := testAssignment("Domi")
	if err := s.Put(ctx, "elora", want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "elora")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != want {
		t.Fatalf("Get = %+v, want %+v", got, want)
	}
}
