package consensus

import "math/rand"

// defaultSeed is used when Config.Seed is 0, so the zero config stays
// reproducible.
const defaultSeed int64 = 1

// finalStream is the stream identifier of the random source used for the
// final clustering and reordering. Round streams use the worker rank, so it
// sits far outside any realistic rank.
const finalStream uint64 = 1 << 63

// deriveSeed mixes a parent seed and a stream identifier into a new 64-bit
// seed with a SplitMix64 finalizer, so neighbouring streams are uncorrelated.
func deriveSeed(parent int64, stream uint64) int64 {
	if parent == 0 {
		parent = defaultSeed
	}
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}

// streamRand returns an independent deterministic source for the stream.
func streamRand(seed int64, stream uint64) *rand.Rand {
	return rand.New(rand.NewSource(deriveSeed(seed, stream)))
}
