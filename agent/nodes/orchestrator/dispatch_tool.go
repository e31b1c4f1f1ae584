package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	"github.com/tanpawarit/chative-concierge/agent/intent"
)

// DispatchTool runs the planned request, if any. Tool failures never leave
// this node as errors; they become results tagged with the tool.
func DispatchTool(ctx context.Context, in *GraphState, tools contractx.ToolGateway) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Request == nil {
		return in, nil
	}

	req := *in.Request
	out, err := tools.Execute(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("user_id", in.UserID).Str("tool", req.Tool).Msg("tool execution failed")
		in.Result = contractx.Result{
			Kind:      contractx.KindError,
			Intent:    in.Classification.Intent,
			Tool:      req.Tool,
			Text:      unavailableReply(req.Tool),
			ErrorCode: contractx.CodeToolUnavailable,
		}
		return in, nil
	}

	switch {
	case out.ErrorCode == contractx.CodeUnsupportedQueryShape:
		rule, _ := intent.Lookup(in.Classification.Intent)
		in.Conversation.SetPending(string(rule.Intent), rule.RequiredAnyOf, out.Error, in.Now)
		in.Result = contractx.Result{
			Kind:      contractx.KindClarification,
			Intent:    in.Classification.Intent,
			Tool:      req.Tool,
			Text:      out.Error,
			ErrorCode: out.ErrorCode,
		}
	case out.Error != "":
		in.Result = contractx.Result{
			Kind:      contractx.KindError,
			Intent:    in.Classification.Intent,
			Tool:      req.Tool,
			Text:      out.Error,
			ErrorCode: out.ErrorCode,
		}
	default:
		in.Result = contractx.Result{
			Kind:   contractx.KindAnswer,
			Intent: in.Classification.Intent,
			Tool:   req.Tool,
			Text:   out.Text,
			Data:   out.Data,
		}
	}
	return in, nil
}
