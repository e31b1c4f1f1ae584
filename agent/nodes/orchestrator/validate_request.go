package orchestratornode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
)

var (
	ErrInvalidMessage      = errors.New("message is empty")
	ErrInvalidUser         = errors.New("user id is empty")
	ErrMissingConversation = errors.New("conversation is missing")
)

type GraphInput struct {
	UserID string
	Text   string
	// Conversation is the caller's working copy, mutated in place by the graph.
	Conversation *statex.Conversation
}

type GraphOutput struct {
	Result contractx.Result
}

type GraphState struct {
	UserID string
	Text   string
	Now    time.Time

	Conversation   *statex.Conversation
	Classification contractx.Classification
	Resumed        bool
	TurnSlots      map[string]string

	Request *contractx.ToolRequest
	Result  contractx.Result
}

// NormalizeInput trims the request and rejects empty values.
func NormalizeInput(userID, text string) (string, string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", "", fmt.Errorf("%w: %w", contractx.ErrValidation, ErrInvalidUser)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", fmt.Errorf("%w: %w", contractx.ErrValidation, ErrInvalidMessage)
	}
	return userID, text, nil
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	userID, text, err := NormalizeInput(in.UserID, in.Text)
	if err != nil {
		return nil, err
	}
	if in.Conversation == nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrValidation, ErrMissingConversation)
	}
	if in.Conversation.UserID != userID {
		return nil, fmt.Errorf("%w: conversation belongs to %q", contractx.ErrValidation, in.Conversation.UserID)
	}

	return &GraphState{
		UserID:       userID,
		Text:         text,
		Now:          nowFn().UTC(),
		Conversation: in.Conversation,
	}, nil
}
