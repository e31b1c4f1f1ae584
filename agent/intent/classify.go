package intent

import (
	"regexp"
	"strings"
	"unicode"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	"github.com/tanpawarit/chative-concierge/agent/outlet"
)

const (
	hitWeight            = 0.25
	maxConfidence        = 0.95
	expressionConfidence = 0.95
)

var (
	arithmeticSpan = regexp.MustCompile(`[0-9.()+\-*/ \t]+`)
	binaryOperator = regexp.MustCompile(`[0-9)]\s*[+\-*/]\s*[0-9(.+\-]`)
)

var calculatePrefixes = []string{"calculate", "compute", "calc"}

// Classifier is the rule-table classifier.
type Classifier struct{}

var _ contractx.Classifier = Classifier{}

func (Classifier) Classify(text string) contractx.Classification {
	return Classify(text)
}

// Classify picks the intent for text. An explicit arithmetic expression wins
// outright; otherwise the intent with the most keyword hits wins and ties go
// to the higher priority.
func Classify(text string) contractx.Classification {
	if expr := ArithmeticExpression(text); expr != "" {
		return contractx.Classification{
			Intent:     contractx.IntentCalculate,
			Slots:      map[string]string{contractx.SlotExpression: expr},
			Confidence: expressionConfidence,
		}
	}

	norm := normalize(text)
	best := contractx.IntentUnknown
	bestHits, bestPriority := 0, -1
	for _, r := range rules {
		hits := countHits(norm, r.Keywords)
		if r.Intent == contractx.IntentSearchOutlets {
			hits += placeHits(text)
		}
		if hits == 0 {
			continue
		}
		if hits > bestHits || (hits == bestHits && r.Priority > bestPriority) {
			best, bestHits, bestPriority = r.Intent, hits, r.Priority
		}
	}

	if best == contractx.IntentUnknown {
		return contractx.Classification{Intent: contractx.IntentUnknown, Slots: map[string]string{}}
	}
	return contractx.Classification{
		Intent:     best,
		Slots:      ExtractSlots(best, text),
		Confidence: min(hitWeight*float64(bestHits), maxConfidence),
	}
}

// ExtractSlots pulls the slots relevant to intent out of text. Values are
// canonical; nothing from text is passed on verbatim except the product query
// and the arithmetic expression.
func ExtractSlots(intent contractx.Intent, text string) map[string]string {
	slots := make(map[string]string, 4)
	switch intent {
	case contractx.IntentCalculate:
		if expr := calculateExpression(text); expr != "" {
			slots[contractx.SlotExpression] = expr
		}
	case contractx.IntentSearchProducts:
		if q := strings.TrimSpace(text); q != "" {
			slots[contractx.SlotProductQuery] = q
		}
	case contractx.IntentSearchOutlets:
		c := outlet.ParseCriteria(text)
		if c.Location != "" {
			slots[contractx.SlotLocation] = c.Location
		}
		if c.OutletName != "" {
			slots[contractx.SlotOutletName] = c.OutletName
		}
		if len(c.Services) > 0 {
			slots[contractx.SlotServices] = strings.Join(c.Services, ",")
		}
		if c.All {
			slots[contractx.SlotScope] = contractx.ScopeAll
		}
		slots[contractx.SlotDetail] = string(outlet.ParseDetail(text))
	}
	return slots
}

// ArithmeticExpression returns the longest span of text that looks like an
// infix expression, or "" when there is none.
func ArithmeticExpression(text string) string {
	best := ""
	for _, span := range arithmeticSpan.FindAllString(text, -1) {
		span = trimSpan(span)
		if !binaryOperator.MatchString(span) {
			continue
		}
		if len(span) > len(best) {
			best = span
		}
	}
	return best
}

// trimSpan drops blanks and sentence dots around a candidate span.
func trimSpan(span string) string {
	for {
		span = strings.TrimSpace(span)
		switch {
		case strings.HasPrefix(span, ".") && (len(span) == 1 || !isDigit(span[1])):
			span = span[1:]
		case strings.HasSuffix(span, "."):
			span = span[:len(span)-1]
		default:
			return span
		}
	}
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func calculateExpression(text string) string {
	lower := strings.ToLower(text)
	for _, p := range calculatePrefixes {
		idx := wordIndex(lower, p)
		if idx < 0 {
			continue
		}
		rest := lower[idx+len(p):]
		rest = strings.TrimSpace(strings.ReplaceAll(rest, "?", ""))
		if !strings.ContainsAny(rest, "0123456789") {
			return ""
		}
		return strings.TrimLeft(rest, ": ")
	}
	return ArithmeticExpression(text)
}

// wordIndex finds word as a whole word in s.
func wordIndex(s, word string) int {
	from := 0
	for {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(word)
		before := i == 0 || !isWordRune(rune(s[i-1]))
		after := end == len(s) || !isWordRune(rune(s[end]))
		if before && after {
			return i
		}
		from = end
	}
}

func placeHits(text string) int {
	c := outlet.ParseCriteria(text)
	hits := len(c.Services)
	if c.Location != "" {
		hits++
	}
	if c.OutletName != "" {
		hits++
	}
	return hits
}

func countHits(norm string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(norm, " "+kw+" ") {
			hits++
		}
	}
	return hits
}

func normalize(text string) string {
	var b strings.Builder
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(text) {
		if isWordRune(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
