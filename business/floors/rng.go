package floors

import (
	"hash/fnv"
	"math/rand/v2"
)

// Stream is an owned source of randomness. Implementations are not safe for
// concurrent use.
type Stream interface {
	Float64() float64
	IntN(n int) int
	Uint64() uint64
}

// Streams is the pair of independent streams one predictor instance owns.
type Streams struct {
	Shuffle     Stream
	Exploration Stream
}

func newPCGStream(seed uint64) Stream {
	return rand.New(rand.NewPCG(seed, splitmix64(seed^0x6a09e667f3bcc909)))
}

// NewStreams builds a stream pair from two seeds.
func NewStreams(shuffleSeed, explorationSeed uint64) Streams {
	return Streams{
		Shuffle:     newPCGStream(shuffleSeed),
		Exploration: newPCGStream(explorationSeed),
	}
}

// Split derives a child pair, consuming one draw from each parent stream.
func (s Streams) Split() Streams {
	return NewStreams(s.Shuffle.Uint64(), s.Exploration.Uint64())
}

// SeedSequence hands out non-overlapping seeds derived from one base seed.
type SeedSequence struct {
	state uint64
}

func NewSeedSequence(base uint64) *SeedSequence {
	return &SeedSequence{state: base}
}

// ForKey derives a sequence whose seeds depend on both the base seed and key.
func (s *SeedSequence) ForKey(key string) *SeedSequence {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return &SeedSequence{state: splitmix64(s.state ^ h.Sum64())}
}

func (s *SeedSequence) Next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	return splitmix64(s.state)
}

// Spawn returns n stream pairs, one per worker.
func (s *SeedSequence) Spawn(n int) []Streams {
	out := make([]Streams, n)
	for i := range out {
		out[i] = NewStreams(s.Next(), s.Next())
	}
	return out
}

func splitmix64(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
