package prompt

import (
	_ "embed"
	"fmt"
	"strings"
)

var (
	//go:embed template/greeting.txt
	greetingRaw string

	//go:embed template/thanks.txt
	thanksRaw string

	//go:embed template/complaint.txt
	complaintRaw string

	//go:embed template/fallback.txt
	fallbackRaw string

	//go:embed template/unavailable.txt
	unavailableRaw string
)

// ReplySet holds the fixed replies that do not come from a tool.
type ReplySet struct {
	Greeting    string
	Thanks      string
	Complaint   string
	Fallback    string
	unavailable string
}

// LoadReplySet returns a ReplySet with trimmed reply strings.
func LoadReplySet() ReplySet {
	return ReplySet{
		Greeting:    strings.TrimSpace(greetingRaw),
		Thanks:      strings.TrimSpace(thanksRaw),
		Complaint:   strings.TrimSpace(complaintRaw),
		Fallback:    strings.TrimSpace(fallbackRaw),
		unavailable: strings.TrimSpace(unavailableRaw),
	}
}

// Unavailable is the reply for a tool that failed to run.
func (r ReplySet) Unavailable(tool string) string {
	return fmt.Sprintf(r.unavailable, strings.ReplaceAll(tool, "_", " "))
}
