package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"meal-analysis-api/internal/core/food"
	"meal-analysis-api/internal/core/query"
	"meal-analysis-api/internal/pkg/common"
)

const (
	// tokenMatchWeight is the base lexical weight of one analyzed-field
	// token match.
	tokenMatchWeight = 10.0
	// fuzzyMatchWeight is the discounted weight of an edit-distance-1
	// token match.
	fuzzyMatchWeight = 5.0
	// keywordMatchWeight rewards an exact hit on the keyword field.
	keywordMatchWeight = 20.0
	// minFuzzyTokenLen is the shortest token eligible for typo tolerance.
	minFuzzyTokenLen = 4
)

// posting locates one alternative name of one entry.
type posting struct {
	entryIdx int
	nameIdx  int
}

// indexedName is one alternative name with its precomputed analyzed and
// keyword representations.
type indexedName struct {
	raw      string
	keyword  string   // basic-normalized form, exact matching
	analyzed []string // stemmed, stopword-filtered tokens
}

// Index is an in-memory inverted index over the reference corpus. The
// corpus is read-only after construction, so searches need no locking.
type Index struct {
	normalizer *query.Normalizer
	entries    []*food.Entry
	names      [][]indexedName      // parallel to entries
	postings   map[string][]posting // analyzed token -> locations
	keyword    map[string][]posting // keyword form -> locations
}

// NewIndex builds the inverted index for the given entries.
func NewIndex(normalizer *query.Normalizer, entries []*food.Entry) *Index {
	idx := &Index{
		normalizer: normalizer,
		entries:    entries,
		names:      make([][]indexedName, len(entries)),
		postings:   make(map[string][]posting),
		keyword:    make(map[string][]posting),
	}

	for i, entry := range entries {
		names := make([]indexedName, 0, len(entry.Names))
		for j, raw := range entry.Names {
			in := indexedName{
				raw:      raw,
				keyword:  strings.Join(normalizer.Tokenize(raw), " "),
				analyzed: normalizer.Normalize(raw).Tokens,
			}
			names = append(names, in)

			loc := posting{entryIdx: i, nameIdx: j}
			idx.keyword[in.keyword] = append(idx.keyword[in.keyword], loc)
			seen := make(map[string]struct{}, len(in.analyzed))
			for _, tok := range in.analyzed {
				if _, dup := seen[tok]; dup {
					continue
				}
				seen[tok] = struct{}{}
				idx.postings[tok] = append(idx.postings[tok], loc)
			}
		}
		idx.names[i] = names
	}

	common.LogInfo("search index built",
		zap.Int("entries", len(entries)),
		zap.Int("terms", len(idx.postings)),
	)
	return idx
}

// Size returns the number of indexed entries.
func (idx *Index) Size() int {
	return len(idx.entries)
}

// Search executes the structured query document: base OR-semantics lexical
// scoring over the analyzed and keyword fields with edit-distance-1 typo
// tolerance, then the deterministic bonus ladder gated on the original
// query, capped at MaxScore.
func (idx *Index) Search(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("empty query")
	}

	queryTokens := idx.normalizer.Normalize(req.Query).Tokens
	queryKeyword := strings.Join(idx.normalizer.Tokenize(req.Query), " ")

	// nameScore accumulates the base lexical score per (entry, name).
	type nameKey struct{ entry, name int }
	base := make(map[nameKey]float64)
	matched := make(map[nameKey]map[string]struct{})

	record := func(loc posting, tok string, weight float64) {
		key := nameKey{loc.entryIdx, loc.nameIdx}
		set := matched[key]
		if set == nil {
			set = make(map[string]struct{})
			matched[key] = set
		}
		if _, dup := set[tok]; dup {
			return
		}
		set[tok] = struct{}{}
		base[key] += weight
	}

	for _, tok := range queryTokens {
		if locs, ok := idx.postings[tok]; ok {
			for _, loc := range locs {
				record(loc, tok, tokenMatchWeight)
			}
			continue
		}
		// Typo tolerance: edit distance 1 against index terms sharing the
		// first letter.
		if len(tok) < minFuzzyTokenLen {
			continue
		}
		for term, locs := range idx.postings {
			if term[0] != tok[0] || !withinOneEdit(tok, term) {
				continue
			}
			for _, loc := range locs {
				record(loc, tok, fuzzyMatchWeight)
			}
		}
	}

	// Keyword field: exact normalized-phrase hit.
	for _, loc := range idx.keyword[queryKeyword] {
		record(loc, "\x00keyword", keywordMatchWeight)
	}

	// Collapse names to entries, keeping each entry's best-scoring name.
	bestName := make(map[int]int)
	entryScore := make(map[int]float64)
	for key, score := range base {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry := idx.entries[key.entry]
		if req.Granularity != "" && entry.Granularity != req.Granularity {
			continue
		}
		name := idx.names[key.entry][key.name]
		score += idx.applyBonuses(req, queryKeyword, name)
		if req.MaxScore > 0 && score > req.MaxScore {
			score = req.MaxScore
		}
		if prev, ok := entryScore[key.entry]; !ok || score > prev {
			entryScore[key.entry] = score
			bestName[key.entry] = key.name
		}
	}

	hits := make([]Hit, 0, len(entryScore))
	for entryIdx, score := range entryScore {
		name := idx.names[entryIdx][bestName[entryIdx]]
		hit := Hit{
			Entry:       idx.entries[entryIdx],
			Score:       score,
			MatchedName: name.raw,
		}
		if req.Highlight {
			hit.Highlights = highlight(name.raw, matched[nameKey{entryIdx, bestName[entryIdx]}], idx.normalizer)
		}
		hits = append(hits, hit)
	}

	// Highest first; stable order between equal scores by entry ID so
	// results are deterministic.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Entry.ID < hits[j].Entry.ID
	})

	total := len(hits)
	if req.Limit > 0 && len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}

	return &Response{Hits: hits, Total: total}, nil
}

// applyBonuses evaluates the request's bonus ladder for one candidate
// name. Conditions run on the original (basic-normalized, unstemmed)
// query against the candidate's keyword form.
func (idx *Index) applyBonuses(req *Request, queryKeyword string, name indexedName) float64 {
	if queryKeyword == "" {
		return 0
	}
	queryWords := strings.Fields(queryKeyword)
	candWords := strings.Fields(name.keyword)

	var bonus float64
	for _, rule := range req.Bonuses {
		switch rule.Kind {
		case BonusExactPhrase:
			if name.keyword == queryKeyword {
				bonus += rule.Weight
			}
		case BonusProximity:
			if name.keyword != queryKeyword && phraseWithGap(queryWords, candWords, 1) {
				bonus += rule.Weight
			}
		case BonusToken:
			for _, w := range queryWords {
				if len(w) <= 2 {
					continue
				}
				if containsWord(candWords, w) {
					bonus += rule.Weight
				}
			}
		case BonusPrefix:
			if strings.HasPrefix(name.keyword, queryKeyword+" ") {
				bonus += rule.Weight
			}
		}
	}
	return bonus
}

// phraseWithGap reports whether want appears in have in order with at most
// gap words between consecutive matches.
func phraseWithGap(want, have []string, gap int) bool {
	if len(want) == 0 || len(want) > len(have) {
		return false
	}
	for start := 0; start < len(have); start++ {
		if have[start] != want[0] {
			continue
		}
		pos := start
		ok := true
		for wi := 1; wi < len(want); wi++ {
			found := -1
			for next := pos + 1; next <= pos+1+gap && next < len(have); next++ {
				if have[next] == want[wi] {
					found = next
					break
				}
			}
			if found < 0 {
				ok = false
				break
			}
			pos = found
		}
		if ok {
			return true
		}
	}
	return false
}

func containsWord(words []string, w string) bool {
	for _, c := range words {
		if c == w {
			return true
		}
	}
	return false
}

// highlight wraps the matched tokens of a candidate name in <em> tags for
// diagnostics.
func highlight(raw string, matchedTokens map[string]struct{}, n *query.Normalizer) []string {
	if len(matchedTokens) == 0 {
		return nil
	}
	words := strings.Fields(raw)
	out := make([]string, 0, 1)
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteByte(' ')
		}
		stem := ""
		if toks := n.Normalize(w).Tokens; len(toks) > 0 {
			stem = toks[0]
		}
		if _, ok := matchedTokens[stem]; ok && stem != "" {
			b.WriteString("<em>" + w + "</em>")
		} else {
			b.WriteString(w)
		}
	}
	out = append(out, b.String())
	return out
}

// withinOneEdit reports whether a and b are within Levenshtein distance 1.
func withinOneEdit(a, b string) bool {
	la, lb := len(a), len(b)
	if la > lb {
		a, b, la, lb = b, a, lb, la
	}
	if lb-la > 1 {
		return false
	}
	if la == lb {
		diff := 0
		for i := 0; i < la; i++ {
			if a[i] != b[i] {
				diff++
				if diff > 1 {
					return false
				}
			}
		}
		return true
	}
	// One insertion: walk both, allow a single skip in the longer string.
	i, j, skipped := 0, 0, false
	for i < la && j < lb {
		if a[i] == b[j] {
			i++
			j++
			continue
		}
		if skipped {
			return false
		}
		skipped = true
		j++
	}
	return true
}
