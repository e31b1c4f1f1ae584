package orchestratornode

import (
	"fmt"
	"maps"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	"github.com/tanpawarit/chative-concierge/agent/intent"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
)

// PlanAction either prepares exactly one tool request, asks for a missing
// slot, or answers directly (smalltalk and fallback).
func PlanAction(in *GraphState, maxClarifications int) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	rule, ok := intent.Lookup(in.Classification.Intent)
	if !ok {
		log.Debug().Str("user_id", in.UserID).Err(contractx.ErrUnknownIntent).Msg("no route for utterance")
		in.Result = fallbackResult()
		return in, nil
	}
	if rule.Tool == "" {
		in.Result = contractx.Result{
			Kind:   contractx.KindAnswer,
			Intent: rule.Intent,
			Text:   smalltalkReply(in.Text),
		}
		return in, nil
	}

	args := toolArgs(rule, in.TurnSlots, in.Conversation)
	missing := rule.Missing(args)
	if len(missing) == 0 {
		in.Request = &contractx.ToolRequest{Tool: rule.Tool, Args: args}
		return in, nil
	}

	if p := in.Conversation.Pending; p != nil && p.Intent == string(rule.Intent) && p.Attempts >= maxClarifications {
		log.Debug().
			Str("user_id", in.UserID).
			Str("intent", p.Intent).
			Int("attempts", p.Attempts).
			Msg("pending intent abandoned")
		in.Conversation.ClearPending()
		in.Result = fallbackResult()
		return in, nil
	}

	in.Conversation.SetPending(string(rule.Intent), missing, rule.Question, in.Now)
	log.Debug().
		Str("user_id", in.UserID).
		Str("intent", string(rule.Intent)).
		Err(contractx.ErrMissingSlot).
		Strs("missing", missing).
		Msg("clarification needed")
	in.Result = contractx.Result{
		Kind:   contractx.KindClarification,
		Intent: rule.Intent,
		Text:   rule.Question,
		Data:   map[string]any{"missing": missing},
	}
	return in, nil
}

// toolArgs starts from the turn's slots. Outlet searches that name no place
// this turn fall back to the most recently mentioned outlet or location; an
// outlet named together with its location wins.
func toolArgs(rule intent.Rule, turn map[string]string, conv *statex.Conversation) map[string]string {
	args := maps.Clone(turn)
	if args == nil {
		args = map[string]string{}
	}
	if rule.Intent != contractx.IntentSearchOutlets {
		return args
	}
	if args[contractx.SlotLocation] != "" || args[contractx.SlotOutletName] != "" || args[contractx.SlotScope] != "" {
		return args
	}

	if name := conv.LastMentioned(contractx.SlotOutletName, contractx.SlotLocation); name != "" {
		args[name] = conv.Slot(name)
	}
	return args
}
