// Package rotation builds per-tag voice pools for providers with large
// dynamic catalogues and serves round-robin picks from them.
//
// Each pool is a reproducibly-ordered subset of the provider catalogue:
// construction is deterministic for a fixed catalogue and tag (one seed pick,
// one pick per gender bucket, then salted expansion up to a cap, then a
// single Fisher–Yates shuffle seeded from the tag name). Two access modes
// exist: a preview pick that is a pure function of (identityKey, tag), and a
// rotating pick that advances an atomic counter per subset (full pool or
// gender-filtered) so distinct identities sharing a tag receive different
// voices.
//
// All types are safe for concurrent use.
package rotation

import (
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/MrWong99/vocifer/pkg/provider/tts"
	"github.com/MrWong99/vocifer/pkg/types"
)

const (
	// defaultCap bounds the pool size for very large catalogues.
	defaultCap = 200

	// minGenderSubset is the smallest gender-filtered subset worth rotating
	// within. Below this, rotation uses the full pool so rare gender/tag
	// combinations are not starved down to one or two voices.
	minGenderSubset = 5

	// maxSaltTries bounds the salted-expansion loop. Salted hashing revisits
	// indexes, so the loop needs a cutoff independent of the cap.
	maxSaltTries = 4096
)

// hashString returns a 64-bit FNV-1a hash of s.
func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// Pool is the rotation pool for a single tag. The full pool and each gender
// subset rotate on their own counter, so interleaved calls with different
// genders cannot make a subset repeat a voice before its cycle completes.
type Pool struct {
	tag      string
	voices   []tts.Voice
	gender   map[types.Gender][]tts.Voice
	counters map[types.Gender]*atomic.Uint64
}

// buildPool constructs the deterministic pool for tag from a catalogue
// snapshot.
func buildPool(tag string, catalog []tts.Voice, limit int) *Pool {
	p := &Pool{
		tag:    tag,
		gender: make(map[types.Gender][]tts.Voice),
		counters: map[types.Gender]*atomic.Uint64{
			types.GenderUnknown: new(atomic.Uint64),
			types.GenderMale:    new(atomic.Uint64),
			types.GenderFemale:  new(atomic.Uint64),
		},
	}
	n := len(catalog)
	if n == 0 {
		return p
	}
	if limit <= 0 {
		limit = defaultCap
	}

	seen := make(map[int]struct{}, min(limit, n))
	add := func(idx int) {
		if _, dup := seen[idx]; dup {
			return
		}
		seen[idx] = struct{}{}
		p.voices = append(p.voices, catalog[idx])
	}

	// Seed pick.
	add(int(hashString(tag) % uint64(n)))

	// One pick per gender bucket so every pool can satisfy the guardrail.
	for _, want := range []types.Gender{types.GenderMale, types.GenderFemale} {
		for idx, v := range catalog {
			if v.Gender == want {
				add(idx)
				break
			}
		}
	}

	// Salted expansion until the cap is reached or the catalogue is
	// exhausted.
	for salt := 0; salt < maxSaltTries && len(p.voices) < limit && len(p.voices) < n; salt++ {
		add(int(hashString(tag+":"+strconv.Itoa(salt)) % uint64(n)))
	}

	// One Fisher–Yates shuffle seeded from the tag name. Reproducible for a
	// fixed catalogue within a process, not guaranteed across code changes.
	rng := rand.New(rand.NewPCG(hashString(tag), uint64(len(p.voices))))
	rng.Shuffle(len(p.voices), func(i, j int) {
		p.voices[i], p.voices[j] = p.voices[j], p.voices[i]
	})

	for _, v := range p.voices {
		p.gender[v.Gender] = append(p.gender[v.Gender], v)
	}
	return p
}

// Size returns the number of voices in the pool.
func (p *Pool) Size() int {
	return len(p.voices)
}

// Preview returns the candidate a given identity would receive from this
// pool without advancing rotation state. It is a pure function of
// (identityKey, tag) for a fixed catalogue.
func (p *Pool) Preview(identityKey string) (tts.Voice, bool) {
	if len(p.voices) == 0 {
		return tts.Voice{}, false
	}
	return p.voices[int(hashString(identityKey)%uint64(len(p.voices)))], true
}

// Next advances the rotation counter for the selected subset and returns the
// next candidate. When gender is known and the gender-filtered subset holds
// at least [minGenderSubset] voices, rotation is restricted to that subset;
// otherwise the full pool is used. Each subset keeps its own counter so one
// subset's cycle advances independently of the others.
func (p *Pool) Next(gender types.Gender) (tts.Voice, bool) {
	subset := p.voices
	counter := p.counters[types.GenderUnknown]
	if gender != types.GenderUnknown {
		if filtered := p.gender[gender]; len(filtered) >= minGenderSubset {
			subset = filtered
			counter = p.counters[gender]
		}
	}
	if len(subset) == 0 {
		return tts.Voice{}, false
	}
	idx := counter.Add(1) - 1
	return subset[int(idx%uint64(len(subset)))], true
}

// Pools lazily builds and caches one [Pool] per tag from a fixed catalogue
// snapshot.
type Pools struct {
	catalog []tts.Voice
	limit   int

	mu    sync.Mutex
	pools map[string]*Pool
}

// NewPools creates a pool set over a catalogue snapshot. The snapshot is not
// copied; callers must not mutate it afterwards.
func NewPools(catalog []tts.Voice) *Pools {
	return &Pools{
		catalog: catalog,
		limit:   defaultCap,
		pools:   make(map[string]*Pool),
	}
}

// ForTag returns the pool for tag, building it on first use.
func (ps *Pools) ForTag(tag string) *Pool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if p, ok := ps.pools[tag]; ok {
		return p
	}
	p := buildPool(tag, ps.catalog, ps.limit)
	ps.pools[tag] = p
	return p
}
