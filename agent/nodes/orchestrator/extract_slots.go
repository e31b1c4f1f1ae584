package orchestratornode

import (
	"fmt"
	"maps"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	"github.com/tanpawarit/chative-concierge/agent/intent"
)

// ExtractSlots fixes the turn's slots and folds the persistent ones into the
// conversation, last mention wins.
func ExtractSlots(in *GraphState) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	in.TurnSlots = maps.Clone(in.Classification.Slots)
	if in.TurnSlots == nil {
		in.TurnSlots = map[string]string{}
	}
	in.Conversation.MergeSlots(intent.Persistent(in.TurnSlots))
	return in, nil
}
