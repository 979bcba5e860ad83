package entities

import (
	"math"
	"math/rand"
)

// riffle shuffles names in place the number of times the Bayer-Diaconis
// mixing-time heuristic asks for: ceil(1.5*log2(n) + U) passes with U uniform
// in [0, n). The point is fairness, not cryptography: it decorrelates the
// caller's input order from the elimination order before tie-breaks happen.
// Sequences of length 0 or 1 are left untouched.
func riffle(rng *rand.Rand, names []string) {
	n := len(names)
	if n <= 1 {
		return
	}
	passes := int(math.Ceil(1.5*math.Log2(float64(n)) + float64(rng.Intn(n))))
	for i := 0; i < passes; i++ {
		rng.Shuffle(n, func(a, b int) {
			names[a], names[b] = names[b], names[a]
		})
	}
}
