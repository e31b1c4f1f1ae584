package contract

import "time"

type Intent string

const (
	IntentCalculate      Intent = "calculate"
	IntentSearchProducts Intent = "search_products"
	IntentSearchOutlets  Intent = "search_outlets"
	IntentSmalltalk      Intent = "smalltalk"
	IntentUnknown        Intent = "unknown"
)

// Slot names shared by the classifier, the planner and the tools.
const (
	SlotExpression   = "expression"
	SlotProductQuery = "product_query"
	SlotLocation     = "location"
	SlotOutletName   = "outlet_name"
	SlotServices     = "services"
	SlotScope        = "scope"
	SlotDetail       = "detail"
)

// ScopeAll is the scope slot value for "every outlet".
const ScopeAll = "all"

const (
	ToolCalculator    = "calculator"
	ToolProductSearch = "product_search"
	ToolOutletSearch  = "outlet_search"
)

type ResultKind string

const (
	KindAnswer        ResultKind = "answer"
	KindClarification ResultKind = "clarification"
	KindError         ResultKind = "error"
	KindFallback      ResultKind = "fallback"
)

// Error codes carried on a Result when a tool failed.
const (
	CodeInvalidExpression     = "invalid_expression"
	CodeDivisionByZero        = "division_by_zero"
	CodeUnsupportedQueryShape = "unsupported_query_shape"
	CodeToolUnavailable       = "tool_unavailable"
)

// Classification is the output of intent detection for a single utterance.
type Classification struct {
	Intent     Intent            `json:"intent"`
	Slots      map[string]string `json:"slots,omitempty"`
	Confidence float64           `json:"confidence"`
}

type ToolRequest struct {
	Tool string            `json:"tool"`
	Args map[string]string `json:"args,omitempty"`
}

type ToolResult struct {
	Tool      string `json:"tool"`
	Text      string `json:"text,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// Result is what a single turn hands back to the request boundary.
type Result struct {
	Kind      ResultKind `json:"kind"`
	Intent    Intent     `json:"intent"`
	Tool      string     `json:"tool,omitempty"`
	Text      string     `json:"text"`
	Data      any        `json:"data,omitempty"`
	ErrorCode string     `json:"error_code,omitempty"`
	At        time.Time  `json:"at"`
}

func (r Result) ToolsUsed() []string {
	if r.Tool == "" {
		return []string{}
	}
	return []string{r.Tool}
}
