package normalizer

import (
	"strings"
	"sync"
)

// AddressNormalizer reduces a raw postal address to a geocodable search string.
// The result is also the coordinate cache key, so it must stay deterministic.
type AddressNormalizer struct {
	rules *compiledRules
}

// NewAddressNormalizer builds a normalizer from the embedded rules
func NewAddressNormalizer() (*AddressNormalizer, error) {
	cfg, err := LoadRulesConfig()
	if err != nil {
		return nil, err
	}
	rules, err := cfg.compile()
	if err != nil {
		return nil, err
	}
	return &AddressNormalizer{rules: rules}, nil
}

var (
	defaultOnce       sync.Once
	defaultNormalizer *AddressNormalizer
)

func getDefault() *AddressNormalizer {
	defaultOnce.Do(func() {
		n, err := NewAddressNormalizer()
		if err != nil {
			// embedded rules are part of the binary
			panic(err)
		}
		defaultNormalizer = n
	})
	return defaultNormalizer
}

// Normalize applies the default rule set. See AddressNormalizer.Normalize.
func Normalize(raw string) string {
	return getDefault().Normalize(raw)
}

// Normalize cleans raw:
//  1. trim and collapse whitespace
//  2. strip a leading 5-digit postal code
//  3. drop parenthesized segments
//  4. drop a trailing <number><unit> detail segment (102호, 3층, 101동 ...)
//  5. drop the last token when the final two tokens are both numeric
//  6. drop separators left at the end (", ")
//
// The rules are repeated until the string stops changing, which makes
// Normalize idempotent.
func (n *AddressNormalizer) Normalize(raw string) string {
	s := FoldText(raw)
	for {
		next := n.reduce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func (n *AddressNormalizer) reduce(s string) string {
	s = collapseSpaces(s)
	s = n.rules.postalCode.ReplaceAllString(s, "")
	s = n.rules.parenthetical.ReplaceAllString(s, " ")
	s = collapseSpaces(s)
	s = n.rules.trailingSep.ReplaceAllString(s, "")
	s = n.rules.detailSegment.ReplaceAllString(s, "")
	s = dropSubUnitNumber(s)
	s = n.rules.trailingSep.ReplaceAllString(s, "")
	return collapseSpaces(s)
}

// Tokens splits a normalized address on whitespace
func Tokens(s string) []string {
	return strings.Fields(s)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// dropSubUnitNumber turns "신길로 220 5" into "신길로 220"
func dropSubUnitNumber(s string) string {
	tokens := strings.Fields(s)
	if len(tokens) < 2 {
		return s
	}
	last, prev := tokens[len(tokens)-1], tokens[len(tokens)-2]
	if isNumeric(last) && isNumeric(strings.TrimRight(prev, ",")) {
		return strings.Join(tokens[:len(tokens)-1], " ")
	}
	return s
}

func isNumeric(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
