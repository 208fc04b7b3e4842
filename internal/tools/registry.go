package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// namePattern enforces dot-namespaced tool names such as "system.memory_usage".
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

// RegistryBuilder collects tools before the registry is frozen.
// It is not safe for concurrent use.
type RegistryBuilder struct {
	tools []Tool
}

// NewRegistryBuilder creates an empty builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{}
}

// Add queues tools for registration. Validation happens in Build.
func (b *RegistryBuilder) Add(tools ...Tool) *RegistryBuilder {
	b.tools = append(b.tools, tools...)
	return b
}

// Build validates every queued tool and returns an immutable registry.
// It fails on nil tools, malformed or duplicate names and schemas that do not compile.
func (b *RegistryBuilder) Build() (*Registry, error) {
	r := &Registry{entries: make(map[string]*Entry, len(b.tools))}

	for _, tool := range b.tools {
		if tool == nil {
			return nil, NewInvalidArgsError("registry", "tool cannot be nil", nil)
		}

		desc := tool.Descriptor().clone()
		if desc.Name == "" {
			return nil, NewInvalidArgsError("registry", "tool name cannot be empty", nil)
		}
		if !namePattern.MatchString(desc.Name) {
			return nil, NewInvalidArgsError("registry", fmt.Sprintf("tool name %q is not dot-namespaced", desc.Name), nil)
		}
		if _, exists := r.entries[desc.Name]; exists {
			return nil, NewToolAlreadyExistsError(desc.Name)
		}
		if desc.Risk == "" {
			desc.Risk = RiskNone
		}
		if desc.Schema == nil {
			desc.Schema = emptyObjectSchema()
		}
		if desc.Destructive {
			desc.Schema = withConfirm(desc.Schema)
		}

		compiled, err := compileSchema(desc.Name, desc.Schema)
		if err != nil {
			return nil, err
		}

		r.entries[desc.Name] = &Entry{desc: desc, tool: tool, schema: compiled}
		r.names = append(r.names, desc.Name)
	}

	sort.Strings(r.names)
	return r, nil
}

// MustBuild is like Build but panics on error.
// Useful for wiring built-in tools during initialization.
func (b *RegistryBuilder) MustBuild() *Registry {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}
	return r
}

// Registry is the immutable, name-indexed catalog of tools.
// It is safe for concurrent use because nothing mutates it after Build.
type Registry struct {
	entries map[string]*Entry
	names   []string
}

// Get retrieves a tool entry by name.
func (r *Registry) Get(name string) (*Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// List returns the descriptors of all tools in name order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.entries[name].Descriptor())
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Invoke runs a tool by name through its guarded entry point.
// Returns ErrToolNotFound if the tool is not registered.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (Result, error) {
	e, ok := r.Get(name)
	if !ok {
		return nil, NewToolNotFoundError(name)
	}
	return e.Execute(ctx, args)
}

// Catalog renders the tool list as JSON for planner prompts and the HTTP API.
func (r *Registry) Catalog() ([]byte, error) {
	type item struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Destructive bool           `json:"is_destructive,omitempty"`
		Schema      map[string]any `json:"schema"`
	}
	items := make([]item, 0, len(r.names))
	for _, name := range r.names {
		d := r.entries[name].desc
		items = append(items, item{Name: d.Name, Description: d.Description, Destructive: d.Destructive, Schema: d.Schema})
	}
	return json.Marshal(items)
}

// Entry is a registered tool together with its compiled argument schema.
// Execute is the only path to the underlying tool.
type Entry struct {
	desc   Descriptor
	tool   Tool
	schema *jsonschema.Schema
}

// Descriptor returns a copy of the registered descriptor.
func (e *Entry) Descriptor() Descriptor {
	return e.desc.clone()
}

// ValidateArgs checks args against the tool schema without executing anything.
func (e *Entry) ValidateArgs(args map[string]any) error {
	return validateArgs(e.desc.Name, e.schema, args)
}

// Execute runs the tool behind its guards. A destructive tool is refused unless
// args["confirm"] is exactly the boolean true; the refusal happens before schema
// validation and the tool body is never called.
func (e *Entry) Execute(ctx context.Context, args map[string]any) (Result, error) {
	if e.desc.Destructive && !Confirmed(args) {
		return Refused{
			Message:  fmt.Sprintf("%s is destructive and requires explicit confirmation", e.desc.Name),
			Required: map[string]any{"confirm": true},
		}, nil
	}

	if err := e.ValidateArgs(args); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := e.tool.Execute(ctx, args)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, NewContractViolationError(e.desc.Name, "tool returned no result")
	}
	return res, nil
}

// Confirmed reports whether args carry confirm=true as a boolean.
// Strings, numbers and other truthy values do not count.
func Confirmed(args map[string]any) bool {
	v, ok := args["confirm"].(bool)
	return ok && v
}
