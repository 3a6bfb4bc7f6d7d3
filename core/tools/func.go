package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// funcProvider adapts a typed Go function into a [Provider], reflecting the
// parameter struct into a JSON schema at construction time.
type funcProvider[P any] struct {
	name        string
	description string
	schema      *jsonschema.Schema
	fn          func(ctx context.Context, params P) (string, error)
}

// NewFunc wraps fn as a provider named name. The parameter type's exported
// fields (with json tags) become the tool's parameter schema.
func NewFunc[P any](name, description string, fn func(ctx context.Context, params P) (string, error)) Provider {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return &funcProvider[P]{
		name:        name,
		description: description,
		schema:      reflector.Reflect(new(P)),
		fn:          fn,
	}
}

func (p *funcProvider[P]) Name() string        { return p.name }
func (p *funcProvider[P]) Description() string { return p.description }
func (p *funcProvider[P]) Schema() any         { return p.schema }

func (p *funcProvider[P]) Invoke(ctx context.Context, arguments json.RawMessage) (string, error) {
	var params P
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &params); err != nil {
			return "", fmt.Errorf("failed to decode arguments for tool %q: %w", p.name, err)
		}
	}
	return p.fn(ctx, params)
}
