package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBasicPipeline(t *testing.T) {
	n := NewNormalizer(Options{})

	cases := []struct {
		in   string
		want []string
	}{
		{"Grilled Chicken with Rice", []string{"grill", "chicken", "rice"}},
		{"Fresh Tomatoes", []string{"tomato"}},
		{"Green Peas", []string{"green", "peas"}},
		{"bay leaves", []string{"bay", "leaf"}},
		{"Grandma's famous hummus", []string{"grandma", "famous", "hummus"}},
		{"rice, rice and more rice", []string{"rice", "more"}},
		{"Swiss cheese sandwich", []string{"swiss", "cheese", "sandwich"}},
	}
	for _, tc := range cases {
		got := n.Normalize(tc.in)
		assert.Equal(t, tc.want, got.Tokens, "Normalize(%q)", tc.in)
		assert.Equal(t, tc.in, got.Raw)
	}
}

func TestNormalizeDropsStopwordsButKeepsProtected(t *testing.T) {
	n := NewNormalizer(Options{})

	got := n.Normalize("a bowl of rice with peas")
	assert.Equal(t, []string{"bowl", "rice", "peas"}, got.Tokens)
}

func TestNormalizeDropsTokensReducingToStopwords(t *testing.T) {
	n := NewNormalizer(Options{})

	// "styles" stems to "style" and "freshly" to "fresh", both stopwords.
	assert.Empty(t, n.Normalize("styles").Tokens)
	assert.Equal(t, []string{"chop", "tomato"},
		n.Normalize("freshly chopped tomatoes").Tokens)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := NewNormalizer(Options{})

	inputs := []string{
		"Grilled Chicken with Rice",
		"Fresh Tomatoes and Basil",
		"Grandma's cookies",
		"swiss cheese sandwich",
		"chopped onions, sliced carrots",
		"molasses glazed ham",
		// Tokens reducing into stopwords must vanish on the first pass.
		"styles",
		"rawly minced garlic",
		"freshly chopped tomatoes",
	}
	for _, in := range inputs {
		first := n.Normalize(in)
		second := n.Normalize(first.Text)
		assert.Equal(t, first.Tokens, second.Tokens, "normalize not idempotent for %q", in)
		assert.Equal(t, first.Text, second.Text)
	}
}

func TestNormalizeExpandAppendsSynonyms(t *testing.T) {
	n := NewNormalizer(Options{
		Synonyms: map[string][]string{
			"chickpea": {"garbanzo"},
		},
	})

	got := n.NormalizeExpand("chickpeas salad")
	assert.Equal(t, []string{"chickpea", "salad", "garbanzo"}, got.Tokens)

	// Plain Normalize never expands.
	plain := n.Normalize("chickpeas salad")
	assert.Equal(t, []string{"chickpea", "salad"}, plain.Tokens)
}

func TestNormalizeEmptyInput(t *testing.T) {
	n := NewNormalizer(Options{})

	got := n.Normalize("   ")
	assert.Empty(t, got.Tokens)
	assert.Equal(t, "", got.Text)
}

func TestTokenizeKeepsStopwords(t *testing.T) {
	n := NewNormalizer(Options{})

	assert.Equal(t, []string{"bowl", "of", "rice"}, n.Tokenize("Bowl of Rice!"))
}
