package room

import (
	"math/rand/v2"
	"strconv"
)

const DefaultCodeDigits = 3

// CodeGenerator produces a fresh room code
type CodeGenerator func() string

// NewCodeGenerator returns a generator of numeric codes with the given number of
// digits and no leading zero. A nil rng uses the package-level source.
func NewCodeGenerator(digits int, rng *rand.Rand) CodeGenerator {
	if digits < 1 {
		digits = DefaultCodeDigits
	}
	low := 1
	for i := 1; i < digits; i++ {
		low *= 10
	}
	span := low * 9

	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}

	return func() string {
		return strconv.Itoa(low + intN(span))
	}
}
