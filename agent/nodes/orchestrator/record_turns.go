package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
)

// RecordTurns appends the user and agent turns. Anything other than a
// clarification settles the pending intent.
func RecordTurns(in *GraphState) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	conv := in.Conversation
	conv.AppendTurn(statex.NewTurn(statex.SpeakerUser, in.Text, string(in.Classification.Intent), in.Now))
	conv.AppendTurn(statex.NewTurn(statex.SpeakerAgent, in.Result.Text, string(in.Result.Intent), in.Now))
	if in.Result.Kind != contractx.KindClarification {
		conv.ClearPending()
	}
	conv.Touch(in.Now)

	if err := conv.Validate(); err != nil {
		return nil, fmt.Errorf("state validation failed: %w", err)
	}
	return in, nil
}
