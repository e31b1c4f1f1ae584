package orchestratornode

import (
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
)

func ClassifyIntent(in *GraphState, classifier contractx.Classifier) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Classification = classifier.Classify(in.Text)
	if in.Classification.Slots == nil {
		in.Classification.Slots = map[string]string{}
	}

	log.Debug().
		Str("user_id", in.UserID).
		Str("intent", string(in.Classification.Intent)).
		Float64("confidence", in.Classification.Confidence).
		Msg("intent classified")
	return in, nil
}
