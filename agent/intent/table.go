package intent

import (
	"slices"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
)

// Rule declares how one intent is recognised and when it is ready to run.
type Rule struct {
	Intent contractx.Intent
	// Keywords are whole-word phrases; each one present counts as a hit.
	Keywords []string
	// RequiredAnyOf lists slots of which at least one must be filled. Empty
	// means the intent is always ready.
	RequiredAnyOf []string
	// Priority breaks ties between intents with the same number of hits.
	Priority int
	Tool     string
	Question string
}

var rules = []Rule{
	{
		Intent: contractx.IntentCalculate,
		Keywords: []string{
			"calculate", "compute", "calc", "math", "plus", "minus", "times",
			"multiply", "multiplied", "divide", "divided", "sum",
		},
		RequiredAnyOf: []string{contractx.SlotExpression},
		Priority:      40,
		Tool:          contractx.ToolCalculator,
		Question:      "What would you like me to calculate? For example: 15 + 25 * 2",
	},
	// Complaints answer as smalltalk but outrank product and outlet words, so
	// "my mug is broken" gets an apology rather than a catalog listing.
	complaintRule,
	{
		Intent: contractx.IntentSearchOutlets,
		Keywords: []string{
			"outlet", "outlets", "store", "stores", "branch", "branches", "shop",
			"shops", "location", "locations", "near", "nearest", "opening hours",
			"open", "close", "address", "visit",
		},
		RequiredAnyOf: []string{
			contractx.SlotLocation, contractx.SlotOutletName,
			contractx.SlotServices, contractx.SlotScope,
		},
		Priority: 30,
		Tool:     contractx.ToolOutletSearch,
		Question: "Which area are you interested in? We have outlets in Petaling Jaya, Klang, Shah Alam, Kuala Lumpur and Putrajaya.",
	},
	{
		Intent: contractx.IntentSearchProducts,
		Keywords: []string{
			"product", "products", "cup", "cups", "mug", "mugs", "tumbler",
			"tumblers", "thermos", "bottle", "bottles", "glass", "drinkware",
			"french press", "bamboo", "price", "prices", "buy", "sell", "catalog",
			"catalogue", "coffee maker",
		},
		RequiredAnyOf: []string{contractx.SlotProductQuery},
		Priority:      20,
		Tool:          contractx.ToolProductSearch,
		Question:      "What kind of product are you looking for? Try glass cups, travel mugs or a french press.",
	},
	{
		Intent: contractx.IntentSmalltalk,
		Keywords: []string{
			"hello", "hi", "hey", "good morning", "good afternoon",
			"good evening", "greetings", "thanks", "thank you",
		},
		Priority: 10,
	},
}

var complaintRule = Rule{
	Intent: contractx.IntentSmalltalk,
	Keywords: []string{
		"problem", "problems", "issue", "issues", "complaint", "complain",
		"unhappy", "wrong", "broken", "disappointed",
	},
	Priority: 35,
}

// IsComplaint reports whether text uses any complaint wording.
func IsComplaint(text string) bool {
	return countHits(normalize(text), complaintRule.Keywords) > 0
}

// persistentSlots survive the turn that supplied them.
var persistentSlots = []string{
	contractx.SlotLocation,
	contractx.SlotOutletName,
}

func Lookup(intent contractx.Intent) (Rule, bool) {
	for _, r := range rules {
		if r.Intent == intent {
			return r, true
		}
	}
	return Rule{}, false
}

// Missing returns RequiredAnyOf when none of those slots is set in args.
func (r Rule) Missing(args map[string]string) []string {
	for _, name := range r.RequiredAnyOf {
		if args[name] != "" {
			return nil
		}
	}
	return slices.Clone(r.RequiredAnyOf)
}

// Supplies reports whether slots fill any of the names in missing.
func Supplies(slots map[string]string, missing []string) bool {
	for _, name := range missing {
		if slots[name] != "" {
			return true
		}
	}
	return false
}

// Persistent keeps only the slots that are carried across turns.
func Persistent(slots map[string]string) map[string]string {
	out := make(map[string]string, len(persistentSlots))
	for _, name := range persistentSlots {
		if v := slots[name]; v != "" {
			out[name] = v
		}
	}
	return out
}
