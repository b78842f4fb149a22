package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStemSuffixRules(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"tomatoes", "tomato"},
		{"dishes", "dish"},
		{"boxes", "box"},
		{"berries", "berry"},
		{"running", "run"},
		{"chopped", "chop"},
		{"grilled", "grill"},
		{"cooking", "cook"},
		{"freshly", "fresh"},
		{"onions", "onion"},
		{"carrots", "carrot"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Stem(tc.in), "Stem(%q)", tc.in)
	}
}

func TestStemLeavesNonSuffixedTokensAlone(t *testing.T) {
	for _, tok := range []string{"chicken", "beef", "cheese", "cookie", "glass", "hummus", "oz", "g"} {
		assert.Equal(t, tok, Stem(tok), "Stem(%q)", tok)
	}
}

func TestStemShortTokensPassThrough(t *testing.T) {
	assert.Equal(t, "is", Stem("is"))
	assert.Equal(t, "as", Stem("as"))
}

// Repeated application must be a no-op, otherwise cached normalized text
// would drift from freshly normalized text.
func TestStemIsStable(t *testing.T) {
	inputs := []string{
		"tomatoes", "berries", "running", "chopped", "passed", "grilled",
		"cheese", "glass", "hummus", "dishes", "cooking", "slices",
		"onions", "freshly", "molasses",
	}
	for _, in := range inputs {
		once := Stem(in)
		assert.Equal(t, once, Stem(once), "Stem not stable for %q", in)
	}
}
