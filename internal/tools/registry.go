package tools

import (
	"context"
	"fmt"
)

// Registry is the closed, static set of tools exposed to the LLM.
// Grounded on the teacher's tools.Registry dispatch shape, trimmed to a
// fixed nine-tool set (the teacher's registry is open-ended and
// plugin-registered; this one is constructed once at startup and never
// mutated).
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a Registry from an explicit tool list. Order is
// preserved for Schemas().
func NewRegistry(toolList ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(toolList))}
	for _, t := range toolList {
		name := t.Name()
		if _, exists := r.tools[name]; exists {
			panic(fmt.Sprintf("tools: duplicate tool name %q", name))
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return r
}

// Schemas returns the tool definitions in registration order, for the
// Provider Adapter to declare as function-calling tools.
func (r *Registry) Schemas() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Has reports whether name is a registered tool.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Execute dispatches to the named tool. An unknown tool name is a
// handler-level failure, not a panic or orchestrator-level error, per
// spec.md §4.4.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, sessionID string) *Result {
	t, ok := r.tools[name]
	if !ok {
		return Err(fmt.Sprintf("unknown tool: %s", name))
	}
	return t.Execute(ctx, args, sessionID)
}
