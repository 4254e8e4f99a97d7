package rotation_test

import (
	"fmt"
	"testing"

	"github.com/MrWong99/vocifer/internal/rotation"
	"github.com/MrWong99/vocifer/pkg/provider/tts"
	"github.com/MrWong99/vocifer/pkg/types"
)

// fakeCatalog builds a catalogue of n voices alternating male/female.
func fakeCatalog(n int) []tts.Voice {
	voices := make([]tts.Voice, 0, n)
	for i := 0; i < n; i++ {
		gender := types.GenderMale
		if i%2 == 1 {
			gender = types.GenderFemale
		}
		voices = append(voices, tts.Voice{
			ID:     fmt.Sprintf("voice-%03d", i),
			Name:   fmt.Sprintf("Voice %d", i),
			Gender: gender,
		})
	}
	return voices
}

func TestPreviewDeterministic(t *testing.T) {
	t.Parallel()

	pools := rotation.NewPools(fakeCatalog(50))
	pool := pools.ForTag("goblin")

	first, ok := pool.Preview("varlo-the-goblin-guard")
	if !ok {
		t.Fatal("Preview: expected a candidate")
	}
	for range 10 {
		again, _ := pool.Preview("varlo-the-goblin-guard")
		if again.ID != first.ID {
			t.Fatalf("Preview: not deterministic: %v vs %v", again, first)
		}
	}
}

func TestPreviewDoesNotAdvanceRotation(t *testing.T) {
	t.Parallel()

	pools := rotation.NewPools(fakeCatalog(30))
	pool := pools.ForTag("dwarf")

	a, _ := pool.Next(types.GenderUnknown)
	pool.Preview("thordur")
	pool.Preview("brunhild")
	b, _ := pool.Next(types.GenderUnknown)
	c, _ := pool.Next(types.GenderUnknown)
	if a.ID == b.ID && b.ID == c.ID {
		t.Fatal("Next: rotation appears frozen")
	}
}

func TestPoolBuildReproducible(t *testing.T) {
	t.Parallel()

	catalog := fakeCatalog(120)
	p1 := rotation.NewPools(catalog).ForTag("elf")
	p2 := rotation.NewPools(catalog).ForTag("elf")

	if p1.Size() != p2.Size() {
		t.Fatalf("pool sizes differ: %d vs %d", p1.Size(), p2.Size())
	}
	for _, key := range []string{"legolas", "elora", "sylvari-scout"} {
		a, _ := p1.Preview(key)
		b, _ := p2.Preview(key)
		if a.ID != b.ID {
			t.Fatalf("pools differ for key %q: %v vs %v", key, a, b)
		}
	}
}

func TestNextRoundRobin(t *testing.T) {
	t.Parallel()

	pools := rotation.NewPools(fakeCatalog(20))
	pool := pools.ForTag("guard")

	size := pool.Size()
	if size < 2 {
		t.Fatalf("pool too small for rotation test: %d", size)
	}
	seen := make(map[string]int)
	for i := 0; i < size; i++ {
		v, ok := pool.Next(types.GenderUnknown)
		if !ok {
			t.Fatal("Next: expected a candidate")
		}
		seen[v.ID]++
	}
	// One full cycle must visit every voice exactly once.
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("Next: voice %s served %d times within one cycle", id, count)
		}
	}
}

func TestNextGenderFilter(t *testing.T) {
	t.Parallel()

	pools := rotation.NewPools(fakeCatalog(60))
	pool := pools.ForTag("wizard")

	for i := 0; i < 20; i++ {
		v, ok := pool.Next(types.GenderFemale)
		if !ok {
			t.Fatal("Next: expected a candidate")
		}
		if v.Gender != types.GenderFemale {
			t.Fatalf("Next: got %s voice %s despite female filter", v.Gender, v.ID)
		}
	}
}

func TestNextSubsetCyclesSurviveInterleaving(t *testing.T) {
	t.Parallel()

	pools := rotation.NewPools(fakeCatalog(40))
	pool := pools.ForTag("knight")

	// Walk one undisturbed cycle to learn the female subset size.
	first, ok := pool.Next(types.GenderFemale)
	if !ok {
		t.Fatal("Next: expected a candidate")
	}
	size := 1
	for {
		v, _ := pool.Next(types.GenderFemale)
		if v.ID == first.ID {
			break
		}
		size++
		if size > pool.Size() {
			t.Fatal("female rotation never cycled back to its first voice")
		}
	}

	// Interleave picks for other genders at an irregular stride; one female
	// cycle must still visit every subset member exactly once.
	seen := make(map[string]int)
	for i := range size {
		v, ok := pool.Next(types.GenderFemale)
		if !ok {
			t.Fatal("Next: expected a candidate")
		}
		if v.Gender != types.GenderFemale {
			t.Fatalf("Next: got %s voice %s despite female filter", v.Gender, v.ID)
		}
		seen[v.ID]++
		if i%2 == 0 {
			pool.Next(types.GenderUnknown)
		}
	}
	if len(seen) != size {
		t.Fatalf("female cycle visited %d distinct voices, want %d", len(seen), size)
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("Next: voice %s served %d times within one female cycle", id, count)
		}
	}
}

func TestNextSmallGenderSubsetUsesFullPool(t *testing.T) {
	t.Parallel()

	// All-male catalogue: the female subset is empty, far below the
	// minimum, so rotation must fall back to the full pool.
	voices := make([]tts.Voice, 10)
	for i := range voices {
		voices[i] = tts.Voice{ID: fmt.Sprintf("m-%d", i), Gender: types.GenderMale}
	}
	pool := rotation.NewPools(voices).ForTag("troll")

	v, ok := pool.Next(types.GenderFemale)
	if !ok {
		t.Fatal("Next: expected fallback to the full pool")
	}
	if v.ID == "" {
		t.Fatal("Next: empty candidate")
	}
}

func TestEmptyCatalog(t *testing.T) {
	t.Parallel()

	pool := rotation.NewPools(nil).ForTag("goblin")
	if _, ok := pool.Preview("anyone"); ok {
		t.Fatal("Preview: expected no candidate from empty catalogue")
	}
	if _, ok := pool.Next(types.GenderUnknown); ok {
		t.Fatal("Next: expected no candidate from empty catalogue")
	}
}
