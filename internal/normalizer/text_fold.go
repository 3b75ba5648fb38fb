package normalizer

import (
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// FoldText composes Hangul to NFC and folds full-width forms to their narrow
// equivalents, so "０７３１３" and jamo-decomposed exports key like typed text.
func FoldText(s string) string {
	t := transform.Chain(norm.NFC, width.Fold)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
