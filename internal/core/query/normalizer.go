package query

import (
	"strings"
	"unicode"
)

// defaultStopwords are dropped during normalization unless protected.
var defaultStopwords = []string{
	"a", "an", "the", "of", "with", "and", "or", "in", "on", "for", "to",
	"style", "fresh", "raw", "plain",
}

// defaultProtected are tokens that survive stopword removal and stemming
// untouched. Short food names easily degrade under suffix rules.
var defaultProtected = []string{
	"rice", "peas", "hummus", "couscous", "asparagus", "swiss", "molasses",
	"grits", "oats",
}

// defaultLemmaOverrides maps irregular forms that the rule-based fallback
// stemmer cannot reach.
var defaultLemmaOverrides = map[string]string{
	"leaves":   "leaf",
	"halves":   "half",
	"loaves":   "loaf",
	"children": "child",
	"feet":     "foot",
	"geese":    "goose",
}

// Options configures a Normalizer. Zero-valued fields fall back to the
// built-in defaults.
type Options struct {
	Stopwords      []string
	ProtectedTerms []string
	LemmaOverrides map[string]string
	Synonyms       map[string][]string
}

// Normalized is the output of one normalization pass.
type Normalized struct {
	Raw    string
	Tokens []string
	Text   string
}

// Normalizer tokenizes, case-folds, strips stopwords and reduces tokens to
// stems. It is a pure service object: construct once, inject everywhere.
type Normalizer struct {
	stopwords map[string]struct{}
	protected map[string]struct{}
	lemmas    map[string]string
	synonyms  map[string][]string
}

// NewNormalizer creates a Normalizer from opts, falling back to the
// built-in tables for any unset field.
func NewNormalizer(opts Options) *Normalizer {
	stop := opts.Stopwords
	if stop == nil {
		stop = defaultStopwords
	}
	prot := opts.ProtectedTerms
	if prot == nil {
		prot = defaultProtected
	}
	lemmas := opts.LemmaOverrides
	if lemmas == nil {
		lemmas = defaultLemmaOverrides
	}

	n := &Normalizer{
		stopwords: make(map[string]struct{}, len(stop)),
		protected: make(map[string]struct{}, len(prot)),
		lemmas:    make(map[string]string, len(lemmas)),
		synonyms:  opts.Synonyms,
	}
	for _, w := range stop {
		n.stopwords[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range prot {
		n.protected[strings.ToLower(w)] = struct{}{}
	}
	for k, v := range lemmas {
		n.lemmas[strings.ToLower(k)] = strings.ToLower(v)
	}
	return n
}

// Normalize runs the full normalization pipeline on raw text: lower-case,
// strip possessives and punctuation, tokenize, drop stopwords (protected
// terms survive), lemma override or stem each token, de-duplicate keeping
// first-seen order. Idempotent: Normalize(Normalize(x).Text) == Normalize(x).
func (n *Normalizer) Normalize(raw string) Normalized {
	tokens := n.normalizeTokens(raw, false)
	return Normalized{
		Raw:    raw,
		Tokens: tokens,
		Text:   strings.Join(tokens, " "),
	}
}

// NormalizeExpand is Normalize plus synonym expansion: for each normalized
// token with a synonym-table entry, the configured expansions are appended
// after the base sequence.
func (n *Normalizer) NormalizeExpand(raw string) Normalized {
	tokens := n.normalizeTokens(raw, true)
	return Normalized{
		Raw:    raw,
		Tokens: tokens,
		Text:   strings.Join(tokens, " "),
	}
}

// Tokenize splits raw text into cleaned lower-case tokens without
// stopword removal or stemming. The fuzzy matcher shares these
// tokenization rules.
func (n *Normalizer) Tokenize(raw string) []string {
	return splitTokens(cleanText(raw))
}

func (n *Normalizer) normalizeTokens(raw string, expand bool) []string {
	seen := make(map[string]struct{})
	var out []string

	appendToken := func(tok string) {
		if tok == "" {
			return
		}
		if _, dup := seen[tok]; dup {
			return
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}

	// A token that reduces to a stopword ("styles" -> "style") must be
	// dropped now, or a second pass would remove it and break idempotence.
	appendReduced := func(tok string) {
		if _, stop := n.stopwords[tok]; stop {
			return
		}
		appendToken(tok)
	}

	for _, tok := range splitTokens(cleanText(raw)) {
		if _, prot := n.protected[tok]; prot {
			// Protected terms skip stopword removal and stemming.
			appendToken(tok)
			continue
		}
		if _, stop := n.stopwords[tok]; stop {
			continue
		}
		if lemma, ok := n.lemmas[tok]; ok {
			appendReduced(lemma)
			continue
		}
		appendReduced(Stem(tok))
	}

	if expand && n.synonyms != nil {
		for _, tok := range append([]string(nil), out...) {
			for _, syn := range n.synonyms[tok] {
				appendToken(strings.ToLower(syn))
			}
		}
	}

	return out
}

// cleanText lower-cases, strips possessive markers and maps punctuation to
// spaces.
func cleanText(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "’", "'")
	s = strings.ReplaceAll(s, "'s ", " ")
	if strings.HasSuffix(s, "'s") {
		s = strings.TrimSuffix(s, "'s")
	}
	s = strings.ReplaceAll(s, "'", "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func splitTokens(s string) []string {
	return strings.Fields(s)
}
