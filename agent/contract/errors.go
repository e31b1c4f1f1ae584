package contract

import "errors"

var (
	ErrValidation = errors.New("validation failed")

	ErrInvalidExpression     = errors.New("invalid expression")
	ErrDivisionByZero        = errors.New("division by zero")
	ErrUnsupportedQueryShape = errors.New("unsupported query shape")
	ErrUnknownIntent         = errors.New("unknown intent")
	ErrMissingSlot           = errors.New("missing slot")
)
