package geocoder

import (
	"slices"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/client-geomap/internal/normalizer"
	"github.com/xrash/smetrics"
)

const (
	minJaroWinkler    = 0.92
	maxEditDistanceRt = 0.25
)

// addressMatcher maps addresses echoed back by the inference service to the
// originals that were submitted. Each original is claimed at most once.
type addressMatcher struct {
	originals  []string
	normalized []string
	byExact    map[string]int
	byNorm     map[string][]int
	claimed    []bool
}

func newAddressMatcher(originals []string) *addressMatcher {
	m := &addressMatcher{
		originals:  originals,
		normalized: make([]string, len(originals)),
		byExact:    make(map[string]int, len(originals)),
		byNorm:     make(map[string][]int, len(originals)),
		claimed:    make([]bool, len(originals)),
	}
	for i, orig := range originals {
		if _, dup := m.byExact[orig]; !dup {
			m.byExact[orig] = i
		}
		n := normalizer.Normalize(orig)
		m.normalized[i] = n
		m.byNorm[n] = append(m.byNorm[n], i)
	}
	return m
}

// match returns the original address for answer, or false
func (m *addressMatcher) match(answer string) (string, bool) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", false
	}

	if i, ok := m.byExact[answer]; ok && !m.claimed[i] {
		return m.claim(i), true
	}

	norm := normalizer.Normalize(answer)
	for _, i := range m.byNorm[norm] {
		if !m.claimed[i] {
			return m.claim(i), true
		}
	}

	// a fuzzy match may differ in spelling, never in a number
	numbers := numberRuns(norm)
	best, bestScore := -1, 0.0
	for i, candidate := range m.normalized {
		if m.claimed[i] || candidate == "" {
			continue
		}
		if !slices.Equal(numbers, numberRuns(candidate)) {
			continue
		}
		score := smetrics.JaroWinkler(norm, candidate, 0.7, 4)
		if score < minJaroWinkler || score <= bestScore {
			continue
		}
		longest := max(len([]rune(norm)), len([]rune(candidate)))
		if float64(levenshtein.ComputeDistance(norm, candidate)) > maxEditDistanceRt*float64(longest) {
			continue
		}
		best, bestScore = i, score
	}
	if best >= 0 {
		return m.claim(best), true
	}

	return "", false
}

func (m *addressMatcher) claim(i int) string {
	m.claimed[i] = true
	return m.originals[i]
}

// numberRuns lists the digit sequences of s in order ("신길로 220-3" -> 220, 3)
func numberRuns(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r)
	})
}
