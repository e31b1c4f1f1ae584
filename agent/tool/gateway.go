package tool

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/chative-concierge/agent/catalog"
	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	"github.com/tanpawarit/chative-concierge/agent/outlet"
)

// Tool is a single capability the orchestrator can route a ready intent to.
type Tool interface {
	Name() string
	Run(ctx context.Context, args map[string]string) (contractx.ToolResult, error)
}

type Executor func(ctx context.Context, tool string, args map[string]string) (contractx.ToolResult, error)

// Gateway routes tool requests by name.
type Gateway struct {
	tools    map[string]Tool
	fallback Executor
}

var _ contractx.ToolGateway = (*Gateway)(nil)

func NewGateway(tools ...Tool) *Gateway {
	g := &Gateway{
		tools:    make(map[string]Tool, len(tools)),
		fallback: DefaultExecutor(),
	}
	for _, t := range tools {
		g.tools[t.Name()] = t
	}
	return g
}

// NewConciergeGateway wires the calculator, product search and outlet search.
func NewConciergeGateway(cat *catalog.Catalog, outlets outlet.Querier) *Gateway {
	return NewGateway(
		calculator{},
		NewProductSearch(cat),
		NewOutletSearch(outlets),
	)
}

func (g *Gateway) Execute(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	t, ok := g.tools[req.Tool]
	if !ok {
		return g.fallback(ctx, req.Tool, req.Args)
	}

	out, err := t.Run(ctx, req.Args)
	if err != nil {
		return contractx.ToolResult{}, fmt.Errorf("tool %s: %w", req.Tool, err)
	}
	if out.Error != "" {
		log.Warn().Str("tool", req.Tool).Str("code", out.ErrorCode).Msg("tool returned an error result")
	}
	return out, nil
}

func (g *Gateway) Names() []string {
	out := make([]string, 0, len(g.tools))
	for name := range g.tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func DefaultExecutor() Executor {
	return func(_ context.Context, tool string, _ map[string]string) (contractx.ToolResult, error) {
		return contractx.ToolResult{
			Tool:      tool,
			Error:     fmt.Sprintf("tool=%s is unavailable", tool),
			ErrorCode: contractx.CodeToolUnavailable,
		}, nil
	}
}
