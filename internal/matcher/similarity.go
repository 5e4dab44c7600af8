package matcher

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Pure scoring primitives shared by the matching strategies. Everything in
// this file is a function of its inputs only, so each piece can be unit
// tested apart from the engine.

// LevenshteinDistance returns the edit distance between two strings
func LevenshteinDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// StringSimilarity returns a normalized edit-distance similarity in [0,1]
func StringSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}

	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}

	distance := LevenshteinDistance(a, b)
	return 1.0 - float64(distance)/float64(maxLen)
}

// ReferenceSimilarity scores how well a free-text description refers to one
// of the given identifiers. A description that literally contains an
// identifier scores 1.0; otherwise the best normalized edit-distance
// similarity across the identifiers is used. Empty descriptions and empty
// identifiers contribute nothing.
func ReferenceSimilarity(description string, identifiers ...string) float64 {
	description = strings.ToUpper(strings.TrimSpace(description))
	if description == "" {
		return 0.0
	}

	best := 0.0
	for _, id := range identifiers {
		id = strings.ToUpper(strings.TrimSpace(id))
		if id == "" {
			continue
		}

		if strings.Contains(description, id) {
			return 1.0
		}

		if s := StringSimilarity(description, id); s > best {
			best = s
		}
	}

	return best
}

// TokenOverlap returns the Jaccard overlap between the token sets of a
// description and the given identifiers, in [0,1].
func TokenOverlap(description string, identifiers ...string) float64 {
	descTokens := tokenize(description)
	if len(descTokens) == 0 {
		return 0.0
	}

	idTokens := make(map[string]bool)
	for _, id := range identifiers {
		for tok := range tokenize(id) {
			idTokens[tok] = true
		}
	}
	if len(idTokens) == 0 {
		return 0.0
	}

	common := 0
	union := len(idTokens)
	for tok := range descTokens {
		if idTokens[tok] {
			common++
		} else {
			union++
		}
	}

	return float64(common) / float64(union)
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(strings.ToUpper(s), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '/' || r == ':' || r == ',' || r == '.'
	}) {
		if tok != "" {
			tokens[tok] = true
		}
	}
	return tokens
}

// AmountCloseness scores how close two amounts are as 1 minus their relative
// difference, in [0,1]. A zero amount only matches another zero amount; the
// relative difference is taken against the larger magnitude so the function
// never divides by zero.
func AmountCloseness(a, b decimal.Decimal) float64 {
	a = a.Abs()
	b = b.Abs()

	if a.IsZero() && b.IsZero() {
		return 1.0
	}
	if a.IsZero() || b.IsZero() {
		return 0.0
	}

	larger := a
	if b.GreaterThan(a) {
		larger = b
	}

	relative, _ := a.Sub(b).Abs().Div(larger).Float64()
	if relative > 1.0 {
		return 0.0
	}
	return 1.0 - relative
}

// AmountRatioDecay scores the ratio between two amounts with an exponential
// decay centered on 1.0, in (0,1]. Zero amounts follow the same rule as
// AmountCloseness.
func AmountRatioDecay(a, b decimal.Decimal) float64 {
	a = a.Abs()
	b = b.Abs()

	if a.IsZero() && b.IsZero() {
		return 1.0
	}
	if a.IsZero() || b.IsZero() {
		return 0.0
	}

	ratio, _ := a.Div(b).Float64()
	return math.Exp(-4.0 * math.Abs(ratio-1.0))
}

// DateProximity scores date closeness with a linear decay to zero over the
// given window in days, in [0,1]. Same-day dates score 1.0.
func DateProximity(a, b time.Time, windowDays int) float64 {
	if windowDays <= 0 {
		windowDays = 1
	}

	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}

	window := time.Duration(windowDays) * 24 * time.Hour
	if diff >= window {
		return 0.0
	}

	return 1.0 - float64(diff)/float64(window)
}

// ExpDateDecay scores date closeness with an exponential decay whose
// half-life is halfLifeDays, in (0,1]. Same-instant dates score 1.0.
func ExpDateDecay(a, b time.Time, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		halfLifeDays = 1
	}

	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}

	days := diff.Hours() / 24.0
	return math.Exp(-math.Ln2 * days / halfLifeDays)
}

// MagnitudeBucket maps an amount's order of magnitude into [0,1]. Amounts of
// one million or more saturate at 1.0.
func MagnitudeBucket(amount decimal.Decimal) float64 {
	f, _ := amount.Abs().Float64()
	if f <= 0 {
		return 0.0
	}

	bucket := math.Log10(1.0+f) / 6.0
	if bucket > 1.0 {
		return 1.0
	}
	return bucket
}

// Sigmoid maps a raw score into (0,1)
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
