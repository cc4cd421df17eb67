package simulation

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/spaolacci/murmur3"
)

// Seed is the state of one independent random source.
type Seed struct {
	Hi uint64
	Lo uint64
}

// TrialSeed derives the seed of trial number n from the experiment's base
// seed. Distinct trials get unrelated streams.
func TrialSeed(base uint64, n int) Seed {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], base)
	binary.LittleEndian.PutUint64(buf[8:], uint64(n))
	hi, lo := murmur3.Sum128WithSeed(buf[:], 0x7c3a)
	return Seed{Hi: hi, Lo: lo}
}

// MatchSeed derives the seed used for one match inside a trial, so a match's
// permutation does not depend on the order matches are visited in.
func (s Seed) MatchSeed(matchID string) Seed {
	buf := make([]byte, 16+len(matchID))
	binary.LittleEndian.PutUint64(buf[:8], s.Hi)
	binary.LittleEndian.PutUint64(buf[8:16], s.Lo)
	copy(buf[16:], matchID)
	hi, lo := murmur3.Sum128(buf)
	return Seed{Hi: hi, Lo: lo}
}

// Rand returns a fresh generator seeded with s.
func (s Seed) Rand() *rand.Rand {
	return rand.New(rand.NewPCG(s.Hi, s.Lo))
}
