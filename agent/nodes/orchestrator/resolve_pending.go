package orchestratornode

import (
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	"github.com/tanpawarit/chative-concierge/agent/intent"
)

const slotFillConfidence = 0.75

// ResolvePending decides what happens to an intent left waiting for slots.
// A reply that fills one of the missing slots resumes the pending intent even
// when it would classify as something else. An unrecognised reply keeps the
// pending intent so it is asked again. Any other recognised intent replaces it.
func ResolvePending(in *GraphState) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	p := in.Conversation.Pending
	if p == nil {
		return in, nil
	}
	pending := contractx.Intent(p.Intent)

	slots := intent.ExtractSlots(pending, in.Text)
	if intent.Supplies(slots, p.Missing) {
		in.Classification = contractx.Classification{
			Intent:     pending,
			Slots:      slots,
			Confidence: max(in.Classification.Confidence, slotFillConfidence),
		}
		in.Resumed = true
		log.Debug().Str("user_id", in.UserID).Str("intent", p.Intent).Msg("pending intent resumed")
		return in, nil
	}

	switch in.Classification.Intent {
	case contractx.IntentUnknown:
		in.Classification = contractx.Classification{Intent: pending, Slots: slots}
		in.Resumed = true
	case pending:
	default:
		log.Debug().
			Str("user_id", in.UserID).
			Str("pending", p.Intent).
			Str("intent", string(in.Classification.Intent)).
			Msg("pending intent replaced")
		in.Conversation.ClearPending()
	}
	return in, nil
}
