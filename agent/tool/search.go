package tool

import (
	"context"
	"errors"
	"strings"

	"github.com/tanpawarit/chative-concierge/agent/catalog"
	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	"github.com/tanpawarit/chative-concierge/agent/outlet"
)

type ProductSearchOutput struct {
	Query string `json:"query"`
	// Listing is set when the query asked for the whole catalog.
	Listing bool            `json:"listing"`
	Results []catalog.Match `json:"results"`
}

type productSearch struct {
	catalog *catalog.Catalog
}

func NewProductSearch(c *catalog.Catalog) Tool {
	return productSearch{catalog: c}
}

func (productSearch) Name() string { return contractx.ToolProductSearch }

func (p productSearch) Run(_ context.Context, args map[string]string) (contractx.ToolResult, error) {
	query := strings.TrimSpace(args[contractx.SlotProductQuery])
	matches := p.catalog.Search(query)

	return contractx.ToolResult{
		Tool: contractx.ToolProductSearch,
		Text: catalog.Summarize(matches, query),
		Data: ProductSearchOutput{Query: query, Listing: catalog.IsGeneric(query), Results: matches},
	}, nil
}

type OutletSearchOutput struct {
	Filter  string          `json:"filter"`
	Results []outlet.Record `json:"results"`
}

type outletSearch struct {
	outlets outlet.Querier
}

func NewOutletSearch(q outlet.Querier) Tool {
	return outletSearch{outlets: q}
}

func (outletSearch) Name() string { return contractx.ToolOutletSearch }

// Run builds a filter from slot values; it never sees the raw utterance.
func (o outletSearch) Run(ctx context.Context, args map[string]string) (contractx.ToolResult, error) {
	criteria := outlet.Criteria{
		Location:   args[contractx.SlotLocation],
		OutletName: args[contractx.SlotOutletName],
		Services:   SplitList(args[contractx.SlotServices]),
		All:        args[contractx.SlotScope] == contractx.ScopeAll,
	}

	f, err := outlet.Build(criteria)
	if errors.Is(err, contractx.ErrUnsupportedQueryShape) {
		return contractx.ToolResult{
			Tool:      contractx.ToolOutletSearch,
			Error:     "I couldn't tell which outlets you mean. Name a town like Klang or Petaling Jaya, an outlet like SS 2, or a service like drive-through.",
			ErrorCode: contractx.CodeUnsupportedQueryShape,
		}, nil
	}
	if err != nil {
		return contractx.ToolResult{}, err
	}

	records, err := o.outlets.Query(ctx, f)
	if err != nil {
		return contractx.ToolResult{}, err
	}

	return contractx.ToolResult{
		Tool: contractx.ToolOutletSearch,
		Text: outlet.Format(records, outlet.Detail(args[contractx.SlotDetail])),
		Data: OutletSearchOutput{Filter: f.String(), Results: records},
	}, nil
}

// SplitList splits a comma-separated slot value.
func SplitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
