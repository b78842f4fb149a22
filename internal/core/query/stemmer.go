package query

import "strings"

// suffixRule is one entry of the ordered fallback stemming table. Rules
// are tried in order and the first applicable rule wins.
type suffixRule struct {
	suffix      string
	replacement string
	minStemLen  int
	undoDouble  bool
	applies     func(stem string) bool
}

// esContext limits "-es" removal to the English contexts that actually
// take the suffix ("dishes", "boxes", "tomatoes"). Without it, stems like
// "cheese" would be eaten down to "che" on repeated passes.
func esContext(stem string) bool {
	for _, end := range []string{"s", "x", "z", "o", "ch", "sh"} {
		if strings.HasSuffix(stem, end) {
			return true
		}
	}
	return false
}

// sContext blocks "-s" removal for "-ss"/"-us" endings so "glass" and
// "hummus" survive repeated stemming unchanged.
func sContext(stem string) bool {
	return !strings.HasSuffix(stem, "s") && !strings.HasSuffix(stem, "u")
}

// suffixRules is the fallback stemming table, used when no linguistic
// stemmer is wired in. Order matters: longer, more specific suffixes
// come first.
var suffixRules = []suffixRule{
	{suffix: "ies", replacement: "y", minStemLen: 2},
	{suffix: "ing", replacement: "", minStemLen: 3, undoDouble: true},
	{suffix: "ed", replacement: "", minStemLen: 3, undoDouble: true},
	{suffix: "ly", replacement: "", minStemLen: 3},
	{suffix: "es", replacement: "", minStemLen: 2, applies: esContext},
	{suffix: "s", replacement: "", minStemLen: 2, applies: sContext},
}

// minStemInput is the shortest token the stemmer will touch. Shorter
// tokens pass through unchanged.
const minStemInput = 3

// Stem reduces a single lower-cased token to its stem using the ordered
// suffix-rule table. Pure function, safe for concurrent use, and stable:
// Stem(Stem(x)) == Stem(x).
func Stem(token string) string {
	if len(token) < minStemInput {
		return token
	}

	for _, rule := range suffixRules {
		if !strings.HasSuffix(token, rule.suffix) {
			continue
		}
		stem := token[:len(token)-len(rule.suffix)]
		if len(stem) < rule.minStemLen {
			continue
		}
		if rule.applies != nil && !rule.applies(stem) {
			continue
		}
		stem += rule.replacement

		// "running" -> "runn" -> "run"
		if rule.undoDouble && hasDoubledFinalConsonant(stem) {
			stem = stem[:len(stem)-1]
		}
		return stem
	}

	return token
}

// hasDoubledFinalConsonant reports whether the token ends in a doubled
// consonant that English doubles before "-ing" ("runn", "chopp").
// Legitimate double endings like "ss" and "ll" are left alone.
func hasDoubledFinalConsonant(s string) bool {
	if len(s) < 2 {
		return false
	}
	last := s[len(s)-1]
	if s[len(s)-2] != last {
		return false
	}
	switch last {
	case 'a', 'e', 'i', 'o', 'u', 's', 'l', 'f', 'z':
		return false
	}
	return true
}
