package orchestratornode

import (
	"strings"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	"github.com/tanpawarit/chative-concierge/agent/intent"
	promptx "github.com/tanpawarit/chative-concierge/agent/prompt"
)

var replies = promptx.LoadReplySet()

func fallbackResult() contractx.Result {
	return contractx.Result{
		Kind:   contractx.KindFallback,
		Intent: contractx.IntentUnknown,
		Text:   replies.Fallback,
	}
}

func smalltalkReply(text string) string {
	if intent.IsComplaint(text) {
		return replies.Complaint
	}
	if strings.Contains(strings.ToLower(text), "thank") {
		return replies.Thanks
	}
	return replies.Greeting
}

func unavailableReply(tool string) string {
	return replies.Unavailable(tool)
}
