// Package tools is the dispatch boundary between the deployment core and
// the external agent runtime: a closed set of named operations with flat
// string parameters and human-readable text results.
package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ValidationError reports malformed input at the dispatch boundary: an
// unknown tool name, a missing required parameter, or a value of the wrong
// shape.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Args is the flat parameter set of one tool invocation.
type Args map[string]string

// String returns a required parameter, failing with ValidationError when it
// is absent or blank.
func (a Args) String(key string) (string, error) {
	v := strings.TrimSpace(a[key])
	if v == "" {
		return "", &ValidationError{Reason: fmt.Sprintf("missing required parameter %q", key)}
	}
	return v, nil
}

// IntDefault returns an integer parameter, or def when it is absent.
func (a Args) IntDefault(key string, def int) (int, error) {
	v := strings.TrimSpace(a[key])
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ValidationError{Reason: fmt.Sprintf("parameter %q must be an integer, got %q", key, v)}
	}
	return n, nil
}

// Handler executes one tool invocation.
type Handler func(ctx context.Context, args Args) (string, error)

// Tool is one named operation exposed to the agent runtime.
type Tool struct {
	Name        string
	Description string
	Params      []string
	Handler     Handler
}

// Registry is the closed lookup table of tools. Registration happens once
// at startup; dispatch never invokes anything outside the table.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry holding the given tools.
func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range ts {
		r.Register(t)
	}
	return r
}

// Register adds a tool. Re-registering a name replaces the handler.
func (r *Registry) Register(t Tool) {
	if _, ok := r.tools[t.Name]; !ok {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// List returns the registered tools in registration order.
func (r *Registry) List() []Tool {
	result := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.tools[name])
	}
	return result
}

// Dispatch invokes the named tool. Unknown names fail with ValidationError;
// handler errors pass through for the boundary surface to render as failure
// text.
func (r *Registry) Dispatch(ctx context.Context, name string, args Args) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", &ValidationError{Reason: fmt.Sprintf("unknown tool %q", name)}
	}
	return t.Handler(ctx, args)
}
