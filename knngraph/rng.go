package knngraph

import "math/rand"

// deriveSeed mixes a parent seed and a stream identifier with the
// SplitMix64 finalizer, giving independent per-(subset, k) streams.
func deriveSeed(parent int64, stream uint64) int64 {
	var x uint64
	x = uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}

// streamRNG returns the RNG of stream (a, b) under parent.
func streamRNG(parent int64, a, b int) *rand.Rand {
	return rand.New(rand.NewSource(deriveSeed(parent, uint64(a)<<32|uint64(uint32(b)))))
}

// shuffleIntsInPlace performs an in-place Fisher–Yates shuffle of a.
func shuffleIntsInPlace(a []int, rng *rand.Rand) {
	var i, j int
	for i = len(a) - 1; i > 0; i-- {
		j = rng.Intn(i + 1)
		a[i], a[j] = a[j], a[i]
	}
}
