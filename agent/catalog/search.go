package catalog

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Match is a catalog item with its relevance score. Score is zero for
// generic listings.
type Match struct {
	Item  Item `json:"item"`
	Score int  `json:"score"`
}

var genericMarkers = map[string]struct{}{
	"all": {}, "list": {}, "everything": {}, "catalog": {}, "catalogue": {},
	"anything": {}, "range": {}, "menu": {},
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "do": {}, "doe": {}, "you": {}, "your": {}, "i": {},
	"me": {}, "we": {}, "u": {}, "have": {}, "has": {}, "got": {}, "any": {}, "some": {},
	"is": {}, "are": {}, "for": {}, "with": {}, "of": {}, "in": {}, "on": {}, "to": {},
	"and": {}, "or": {}, "please": {}, "can": {}, "could": {}, "what": {}, "which": {},
	"show": {}, "tell": {}, "about": {}, "find": {}, "looking": {}, "want": {},
	"need": {}, "my": {}, "it": {}, "there": {}, "sell": {}, "offer": {}, "buy": {},
	"available": {}, "product": {}, "item": {}, "how": {}, "much": {}, "search": {},
	"kind": {}, "type": {}, "that": {}, "this": {}, "something": {}, "like": {},
}

// Search ranks items by how many distinct query keywords appear in their name,
// description or tags. Ties keep insertion order. Queries made only of
// listing words and stopwords return the whole catalog unscored.
func (c *Catalog) Search(query string) []Match {
	keywords, generic := queryKeywords(query)
	if generic {
		out := make([]Match, 0, len(c.items))
		for _, it := range c.items {
			out = append(out, Match{Item: it})
		}
		return out
	}

	out := make([]Match, 0, len(c.items))
	for i, it := range c.items {
		score := 0
		for _, kw := range keywords {
			if _, ok := c.tokens[i][kw]; ok {
				score++
			}
		}
		if score > 0 {
			out = append(out, Match{Item: it, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// IsGeneric reports whether query asks for the whole catalog.
func IsGeneric(query string) bool {
	_, generic := queryKeywords(query)
	return generic
}

// KeywordCount is the number of distinct scoring keywords in query.
func KeywordCount(query string) int {
	keywords, _ := queryKeywords(query)
	return len(keywords)
}

// queryKeywords drops listing words and stopwords. A query is generic only
// when nothing else is left.
func queryKeywords(query string) ([]string, bool) {
	var keywords []string
	seen := make(map[string]struct{}, 8)
	for _, tok := range tokenize(query) {
		if _, ok := genericMarkers[tok]; ok {
			continue
		}
		if _, ok := stopwords[tok]; ok {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
	}
	return keywords, len(keywords) == 0
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		fields[i] = singular(f)
	}
	return fields
}

func singular(tok string) string {
	if len(tok) <= 3 || !strings.HasSuffix(tok, "s") {
		return tok
	}
	if strings.HasSuffix(tok, "ss") || strings.HasSuffix(tok, "us") || strings.HasSuffix(tok, "is") {
		return tok
	}
	return tok[:len(tok)-1]
}

// Summarize renders matches as a short customer-facing answer.
func Summarize(matches []Match, query string) string {
	if len(matches) == 0 {
		return "We have drinkware products available. Try asking about: glass cups, travel mugs, thermoses, bamboo cups, or french press."
	}

	var b strings.Builder
	if len(matches) >= 4 {
		fmt.Fprintf(&b, "We have %d drinkware products:\n", len(matches))
		for _, m := range matches {
			fmt.Fprintf(&b, "\n• %s - $%.2f - %s", m.Item.Name, m.Item.Price, m.Item.Description)
		}
		return b.String()
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, fmt.Sprintf("%s ($%.2f)", m.Item.Name, m.Item.Price))
	}
	fmt.Fprintf(&b, "Found %d product(s): %s.", len(matches), strings.Join(names, ", "))

	top := matches[0]
	if n := KeywordCount(query); top.Score > 0 && top.Score == n {
		fmt.Fprintf(&b, "\n\nBest match: %s - %s", top.Item.Name, top.Item.Description)
	}
	return b.String()
}
