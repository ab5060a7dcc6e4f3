package lottery

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sort"
)

// Select returns a uniformly-random-without-replacement sample of k user
// IDs drawn from candidates. If k >= len(candidates), every candidate wins
// and the loser set is empty. If k <= 0, nobody wins.
//
// The sampling source is seeded from crypto/rand by default, satisfying the
// cryptographically-seeded requirement; seed overrides that for
// reproducible tests.
func Select(candidates []string, k int, seed *int64) (winners, losers []string) {
	ordered := append([]string(nil), candidates...)
	sort.Strings(ordered)

	if k >= len(ordered) {
		return ordered, nil
	}
	if k <= 0 {
		return nil, ordered
	}

	shuffled := append([]string(nil), ordered...)
	rng := newRNG(seed)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	winnerSet := make(map[string]bool, k)
	winners = append(winners, shuffled[:k]...)
	for _, w := range winners {
		winnerSet[w] = true
	}
	for _, c := range ordered {
		if !winnerSet[c] {
			losers = append(losers, c)
		}
	}
	return winners, losers
}

// newRNG returns a math/rand source seeded from crypto/rand, or from seed
// when the caller supplies one for reproducibility.
func newRNG(seed *int64) *mrand.Rand {
	if seed != nil {
		return mrand.New(mrand.NewSource(*seed))
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand is not expected to fail on a supported OS; fall back
		// to a process-local source rather than blocking the draw.
		return mrand.New(mrand.NewSource(mrand.Int63()))
	}
	return mrand.New(mrand.NewSource(int64(binary.LittleEndian.Uint64(buf[:]))))
}
