package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	nodex "github.com/tanpawarit/chative-concierge/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidUser    = nodex.ErrInvalidUser
)

const DefaultMaxClarifications = 2

type Config struct {
	// MaxClarifications is how many times a pending intent is asked about
	// before it is abandoned.
	MaxClarifications int `split_words:"true" default:"2"`
}

type Orchestrator struct {
	store      statex.Store
	classifier contractx.Classifier
	tools      contractx.ToolGateway

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	maxClarifications int

	now func() time.Time
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func New(
	store statex.Store,
	classifier contractx.Classifier,
	tools contractx.ToolGateway,
	cfg Config,
	opts ...Option,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if tools == nil {
		return nil, errors.New("tool gateway is required")
	}

	maxClarifications := cfg.MaxClarifications
	if maxClarifications <= 0 {
		maxClarifications = DefaultMaxClarifications
	}

	o := &Orchestrator{
		store:             store,
		classifier:        classifier,
		tools:             tools,
		maxClarifications: maxClarifications,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Handle runs one turn for userID. Turns for the same user are serialized by
// the store; the returned error is non-nil only for malformed input or when
// ctx ends while waiting for the user's turn.
func (o *Orchestrator) Handle(ctx context.Context, userID string, text string) (contractx.Result, error) {
	userID, text, err := nodex.NormalizeInput(userID, text)
	if err != nil {
		return contractx.Result{}, err
	}

	var out nodex.GraphOutput
	err = o.store.Update(ctx, userID, func(conv *statex.Conversation) error {
		res, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
			UserID:       userID,
			Text:         text,
			Conversation: conv,
		})
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return contractx.Result{}, err
	}
	return out.Result, nil
}

func (o *Orchestrator) HandleMessage(ctx context.Context, userID string, text string) (string, error) {
	res, err := o.Handle(ctx, userID, text)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (o *Orchestrator) Conversation(ctx context.Context, userID string) (*statex.Conversation, error) {
	return o.store.Get(ctx, userID)
}

func (o *Orchestrator) Reset(ctx context.Context, userID string) error {
	return o.store.Reset(ctx, userID)
}
