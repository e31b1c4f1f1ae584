package outlet

import (
	"strings"
	"unicode"
)

type alias struct {
	canonical string
	phrases   []string
}

// Longer phrases are listed before their prefixes so "klang main" resolves
// to the outlet before "klang" resolves to the town.
var locationAliases = []alias{
	{canonical: "Petaling Jaya", phrases: []string{"petaling jaya", "petaling", "pj"}},
	{canonical: "Klang", phrases: []string{"klang"}},
	{canonical: "Shah Alam", phrases: []string{"shah alam"}},
	{canonical: "Kuala Lumpur", phrases: []string{"kuala lumpur", "kl"}},
	{canonical: "Putrajaya", phrases: []string{"putrajaya"}},
}

var outletNameAliases = []alias{
	{canonical: "SS 2", phrases: []string{"ss 2", "ss2"}},
	{canonical: "Klang Main", phrases: []string{"klang main"}},
	{canonical: "Shah Alam Central", phrases: []string{"shah alam central"}},
	{canonical: "Pavilion KL", phrases: []string{"pavilion kl", "pavilion", "bukit bintang"}},
	{canonical: "IOI Mall", phrases: []string{"ioi mall", "ioi"}},
}

// serviceAliases is ordered; filters list services in this order.
var serviceAliases = []alias{
	{canonical: "Dine-in", phrases: []string{"dine in", "dine", "seating", "eat in"}},
	{canonical: "Takeaway", phrases: []string{"takeaway", "take away", "takeout", "take out", "to go"}},
	{canonical: "Drive-through", phrases: []string{"drive through", "drive thru", "drive"}},
	{canonical: "WiFi", phrases: []string{"wifi", "wi fi", "internet"}},
}

var (
	allMarkers     = []string{"all", "every", "list"}
	hoursMarkers   = []string{"hour", "hours", "open", "opening", "opens", "close", "closing", "closes", "time", "times"}
	addressMarkers = []string{"address", "addresses", "directions", "located"}
)

// Detail selects which outlet attribute an answer focuses on.
type Detail string

const (
	DetailSummary Detail = "summary"
	DetailHours   Detail = "hours"
	DetailAddress Detail = "address"
)

// Criteria is the structured form of an outlet question.
type Criteria struct {
	Location   string   `json:"location,omitempty"`
	OutletName string   `json:"outlet_name,omitempty"`
	Services   []string `json:"services,omitempty"`
	All        bool     `json:"all,omitempty"`
}

func (c Criteria) IsEmpty() bool {
	return c.Location == "" && c.OutletName == "" && len(c.Services) == 0 && !c.All
}

// ParseCriteria recognises known locations, outlet names, services and
// "list all" markers in text. Unknown words are ignored.
func ParseCriteria(text string) Criteria {
	norm := normalize(text)
	return Criteria{
		Location:   firstMatch(norm, locationAliases),
		OutletName: firstMatch(norm, outletNameAliases),
		Services:   allMatches(norm, serviceAliases),
		All:        containsAny(norm, allMarkers),
	}
}

func ParseDetail(text string) Detail {
	norm := normalize(text)
	switch {
	case containsAny(norm, hoursMarkers):
		return DetailHours
	case containsAny(norm, addressMarkers):
		return DetailAddress
	default:
		return DetailSummary
	}
}

// CanonicalService maps a service phrase to its stored label.
func CanonicalService(s string) (string, bool) {
	norm := normalize(s)
	for _, a := range serviceAliases {
		if strings.EqualFold(a.canonical, strings.TrimSpace(s)) || containsAny(norm, a.phrases) {
			return a.canonical, true
		}
	}
	return "", false
}

// normalize lowercases text, turns punctuation into spaces and pads it with
// spaces so phrases can be matched on word boundaries.
func normalize(text string) string {
	var b strings.Builder
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
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

func containsAny(norm string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(norm, " "+p+" ") {
			return true
		}
	}
	return false
}

func firstMatch(norm string, aliases []alias) string {
	for _, a := range aliases {
		if containsAny(norm, a.phrases) {
			return a.canonical
		}
	}
	return ""
}

func allMatches(norm string, aliases []alias) []string {
	var out []string
	for _, a := range aliases {
		if containsAny(norm, a.phrases) {
			out = append(out, a.canonical)
		}
	}
	return out
}
