package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/jinzhu/copier"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrNotFound reports an invocation of a name with no registered provider.
// It travels back through the ordinary function-result channel so the
// service always receives closure for every call it issues.
var ErrNotFound = errors.New("tool not found")

// Provider is a capability that can be invoked by the remote service.
// Invoke may run concurrently with other invocations and may block for as
// long as it needs; a slow provider stalls only its own call's closure.
type Provider interface {
	Name() string
	Description() string
	// Schema describes the provider's parameters as a JSON schema document.
	Schema() any
	Invoke(ctx context.Context, arguments json.RawMessage) (string, error)
}

// Descriptor is the immutable registration record for one provider.
type Descriptor struct {
	Name        string
	Description string
	Schema      any
}

// Registry binds tool names to providers. Registration is validated up
// front so call-time dispatch never has to.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) (*Registry, error) {
	registry := &Registry{providers: map[string]Provider{}}
	for _, provider := range providers {
		if err := registry.Register(provider); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register validates and adds a provider. Empty names, nil schemas and
// duplicate names are registration-time errors.
func (r *Registry) Register(provider Provider) error {
	if provider == nil {
		return fmt.Errorf("cannot register nil provider")
	}
	if provider.Name() == "" {
		return fmt.Errorf("cannot register provider with empty name")
	}
	if provider.Schema() == nil {
		return fmt.Errorf("cannot register provider %q with nil schema", provider.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[provider.Name()]; exists {
		return fmt.Errorf("provider %q already registered", provider.Name())
	}
	r.providers[provider.Name()] = provider
	return nil
}

// Snapshot returns a point-in-time copy of all registered descriptors,
// detached from later registrations and sorted by name.
func (r *Registry) Snapshot() []Descriptor {
	r.mu.RLock()
	descriptors := make([]Descriptor, 0, len(r.providers))
	for _, provider := range r.providers {
		descriptors = append(descriptors, Descriptor{
			Name:        provider.Name(),
			Description: provider.Description(),
			Schema:      provider.Schema(),
		})
	}
	r.mu.RUnlock()

	slices.SortFunc(descriptors, func(a, b Descriptor) int {
		return strings.Compare(a.Name, b.Name)
	})

	snapshot := make([]Descriptor, 0, len(descriptors))
	if err := copier.Copy(&snapshot, descriptors); err != nil {
		return descriptors
	}
	return snapshot
}

// Invoke dispatches arguments to the named provider. An unregistered name
// yields [ErrNotFound] rather than escaping the dispatch path.
func (r *Registry) Invoke(ctx context.Context, name string, arguments json.RawMessage) (string, error) {
	r.mu.RLock()
	provider, ok := r.providers[name]
	r.mu.RUnlock()

	ctx, span := tracer.Start(ctx, "execute tool")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", name))

	if !ok {
		err := fmt.Errorf("%w: %s", ErrNotFound, name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	response, err := provider.Invoke(ctx, arguments)
	if err != nil {
		err = fmt.Errorf("failed to execute tool %q: %w", name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return response, nil
}
