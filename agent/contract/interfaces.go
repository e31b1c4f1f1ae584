package contract

import "context"

type Classifier interface {
	Classify(text string) Classification
}

type ToolGateway interface {
	Execute(ctx context.Context, req ToolRequest) (ToolResult, error)
}
