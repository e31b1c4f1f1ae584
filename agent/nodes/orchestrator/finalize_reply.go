package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	res := in.Result
	res.Text = strings.TrimSpace(res.Text)
	if res.Text == "" {
		return GraphOutput{}, fmt.Errorf("%w: turn produced an empty reply", contractx.ErrValidation)
	}
	if res.Kind == "" {
		res.Kind = contractx.KindAnswer
	}
	if res.Intent == "" {
		res.Intent = contractx.IntentUnknown
	}
	res.At = in.Now
	return GraphOutput{Result: res}, nil
}
