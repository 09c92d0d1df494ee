package agents

import (
	"crypto/md5"
	"encoding/binary"
	"math/big"
	"math/rand"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PRNGSeed seeds the synthetic fallbacks: the first 32 bits of
// md5(concat(parts)).
func PRNGSeed(parts ...string) int64 {
	sum := md5.Sum([]byte(strings.Join(parts, "")))
	return int64(binary.BigEndian.Uint32(sum[:4]))
}

// ArithSeed is the full md5 digest read as a 128-bit integer, mod 10000. The
// mechanistic agents derive every value from it arithmetically.
func ArithSeed(parts ...string) int {
	sum := md5.Sum([]byte(strings.Join(parts, "")))
	n := new(big.Int).SetBytes(sum[:])
	return int(n.Mod(n, big.NewInt(10000)).Int64())
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// between returns an int in [lo, hi].
func between(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

func pick(r *rand.Rand, options []string) string {
	return options[r.Intn(len(options))]
}

var printer = message.NewPrinter(language.English)

// commaInt formats n with thousands separators.
func commaInt(n int) string { return printer.Sprintf("%d", n) }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func round(v float64, places int) float64 {
	p := 1.0
	for i := 0; i < places; i++ {
		p *= 10
	}
	if v < 0 {
		return -float64(int64(-v*p+0.5)) / p
	}
	return float64(int64(v*p+0.5)) / p
}
