// Package prngpool hands out one independent, deterministic frand.RNG
// stream per worker thread, adapted from the teacher's per-party PRG
// table in mpc/random.go (InitializePRG). The teacher keys one *frand.RNG
// per remote party id, sharing a table so a protocol can switch between a
// party-specific and a globally-shared stream mid-computation
// (SwitchPRG/RestorePRG); nothing here needs that mid-stream switching, so
// this is a flat pool keyed by thread index instead of party id, built
// once up front for the lifetime of one parallel region.
package prngpool

import (
	"github.com/hhcho/frand"
)

const (
	bufferSize = 1024
	rounds     = 20
	seedSize   = 32 // matches chacha20's key size, per the teacher's PRG keying convention
)

// Pool holds one *frand.RNG per thread, derived from a shared base seed.
type Pool struct {
	streams []*frand.RNG
}

// New builds a Pool of n independent streams. A nil or empty seed is
// padded with zeros, matching the teacher's placeholder all-zero seed in
// InitializePRG (both carry the same documented caveat: a real deployment
// would derive seed from a key-exchange step, not a fixed buffer).
func New(seed []byte, n int) *Pool {
	streams := make([]*frand.RNG, n)
	for t := 0; t < n; t++ {
		streams[t] = derive(seed, t)
	}
	return &Pool{streams: streams}
}

// Stream returns the thread-th RNG stream. Panics if thread is out of
// range, the same contract as indexing a slice.
func (p *Pool) Stream(thread int) *frand.RNG {
	return p.streams[thread]
}

// Len reports how many independent streams the pool holds.
func (p *Pool) Len() int {
	return len(p.streams)
}

// derive mixes the thread index into the low byte of seed, giving every
// thread a distinct but deterministic stream from one base seed.
func derive(seed []byte, thread int) *frand.RNG {
	s := make([]byte, seedSize)
	copy(s, seed)
	s[0] ^= byte(thread)
	return frand.NewCustom(s, bufferSize, rounds)
}
