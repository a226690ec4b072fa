package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler is the signature a plain Go function must have to be
// registered as a tool.
type Handler func(ctx context.Context, args map[string]any, tc Context) (any, error)

// Func adapts a Handler into the Tool contract. String results pass
// through unchanged; any other result is JSON-encoded so the model
// receives structured data it can parse.
type Func struct {
	name        string
	description string
	schema      json.RawMessage
	handler     Handler
}

// NewFunc wraps handler as a named tool. schema may be nil for tools
// that take no arguments.
func NewFunc(name, description string, schema json.RawMessage, handler Handler) *Func {
	return &Func{
		name:        name,
		description: description,
		schema:      schema,
		handler:     handler,
	}
}

func (f *Func) Name() string                { return f.name }
func (f *Func) Description() string         { return f.description }
func (f *Func) InputSchema() json.RawMessage { return f.schema }

func (f *Func) Call(ctx context.Context, args map[string]any, tc Context) (string, error) {
	result, err := f.handler(ctx, args, tc)
	if err != nil {
		return "", err
	}

	switch v := result.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encoding result of tool %s: %w", f.name, err)
		}
		return string(encoded), nil
	}
}

var _ Tool = (*Func)(nil)
