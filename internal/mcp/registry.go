package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// Tool is the interface that all library MCP tools must implement.
type Tool interface {
	// Name returns the tool name (e.g. "checkout_book", "search_catalog").
	Name() string

	// Description returns a human-readable description of what the tool does.
	Description() string

	// InputSchema returns the JSON Schema for the tool's parameters.
	InputSchema() json.RawMessage

	// Execute runs the tool with the given parameters and returns the result.
	Execute(ctx context.Context, params json.RawMessage) (*ToolsCallResult, error)
}

// ProgressTool is implemented by tools that report incremental progress
// on long-running operations (bulk_import_books, catalog_maintenance).
// Reporter may be nil when the client did not supply a progress token.
type ProgressTool interface {
	Tool
	ExecuteWithProgress(ctx context.Context, params json.RawMessage, reporter *ProgressReporter) (*ToolsCallResult, error)
}

// Prompt is the interface for MCP prompts.
type Prompt interface {
	// Definition returns the prompt metadata (name, description, arguments).
	Definition() PromptDefinition

	// Get returns the prompt messages, optionally customized by arguments.
	Get(arguments map[string]string) (*PromptsGetResult, error)
}

// Resource is the interface for MCP resources. Definition().URI may be a
// URI template such as "library://books/{isbn}"; Read receives the
// values bound from the template plus any query parameters from the
// concrete URI that was requested (e.g. ?page=2&page_size=20).
type Resource interface {
	Definition() ResourceDefinition
	Read(ctx context.Context, uriParams map[string]string, query url.Values) (*ResourcesReadResult, error)
}

// Registry holds all registered tools, prompts, and resources.
type Registry struct {
	mu            sync.RWMutex
	tools         map[string]Tool
	toolOrder     []string
	prompts       map[string]Prompt
	promptOrder   []string
	resources     map[string]Resource // keyed by template URI
	resourceOrder []string
	resourcePatterns map[string]*regexp.Regexp
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:            make(map[string]Tool),
		prompts:          make(map[string]Prompt),
		resources:        make(map[string]Resource),
		resourcePatterns: make(map[string]*regexp.Regexp),
	}
}

// --- Tools ---

// Register adds a tool to the registry.
// Panics if a tool with the same name is already registered.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; exists {
		panic(fmt.Sprintf("tool %q already registered", name))
	}
	r.tools[name] = t
	r.toolOrder = append(r.toolOrder, name)
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// List returns all registered tool definitions in registration order.
func (r *Registry) List() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(r.toolOrder))
	for _, name := range r.toolOrder {
		t := r.tools[name]
		defs = append(defs, ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return defs
}

// --- Prompts ---

// RegisterPrompt adds a prompt to the registry.
// Panics if a prompt with the same name is already registered.
func (r *Registry) RegisterPrompt(p Prompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Definition().Name
	if _, exists := r.prompts[name]; exists {
		panic(fmt.Sprintf("prompt %q already registered", name))
	}
	r.prompts[name] = p
	r.promptOrder = append(r.promptOrder, name)
}

// GetPrompt returns a prompt by name, or nil if not found.
func (r *Registry) GetPrompt(name string) Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prompts[name]
}

// ListPrompts returns all registered prompt definitions in registration order.
func (r *Registry) ListPrompts() []PromptDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]PromptDefinition, 0, len(r.promptOrder))
	for _, name := range r.promptOrder {
		defs = append(defs, r.prompts[name].Definition())
	}
	return defs
}

// HasPrompts returns true if any prompts are registered.
func (r *Registry) HasPrompts() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.prompts) > 0
}

// --- Resources ---

var templateParam = regexp.MustCompile(`\{([a-zA-Z_]+)\}`)

// RegisterResource adds a resource to the registry, keyed by its
// (possibly templated) URI. Panics if the same template is already
// registered.
func (r *Registry) RegisterResource(res Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	uri := res.Definition().URI
	if _, exists := r.resources[uri]; exists {
		panic(fmt.Sprintf("resource %q already registered", uri))
	}
	r.resources[uri] = res
	r.resourceOrder = append(r.resourceOrder, uri)
	r.resourcePatterns[uri] = compileTemplate(uri)
}

// compileTemplate converts a URI template like "library://books/{isbn}"
// into a regexp that captures named groups for each {param}.
func compileTemplate(template string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(template)
	// QuoteMeta escapes the braces too; undo that so templateParam can match.
	escaped = strings.ReplaceAll(escaped, `\{`, "{")
	escaped = strings.ReplaceAll(escaped, `\}`, "}")
	pattern := templateParam.ReplaceAllString(escaped, `(?P<$1>[^/?]+)`)
	return regexp.MustCompile("^" + pattern + "$")
}

// GetResource returns a resource by name, or nil if not found. Used
// when the caller already has the exact registered template string.
func (r *Registry) GetResource(uri string) Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resources[uri]
}

// Resolve matches a concrete requested URI (e.g.
// "library://books/9780132350884?page=2") against the registered
// templates, returning the matching resource, the registered template
// URI it matched (used to key subscriptions), the values bound from
// the template, and the parsed query string.
func (r *Registry) Resolve(requested string) (res Resource, template string, uriParams map[string]string, query url.Values, ok bool) {
	base := requested
	if idx := strings.IndexByte(requested, '?'); idx >= 0 {
		base = requested[:idx]
		query, _ = url.ParseQuery(requested[idx+1:])
	} else {
		query = url.Values{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	// Prefer an exact match before falling back to template matching,
	// so static resources (e.g. library://stats) never get shadowed.
	if resource, found := r.resources[base]; found {
		return resource, base, map[string]string{}, query, true
	}

	for _, uri := range r.resourceOrder {
		pattern := r.resourcePatterns[uri]
		match := pattern.FindStringSubmatch(base)
		if match == nil {
			continue
		}
		params := map[string]string{}
		for i, name := range pattern.SubexpNames() {
			if i == 0 || name == "" {
				continue
			}
			params[name] = match[i]
		}
		return r.resources[uri], uri, params, query, true
	}

	return nil, "", nil, nil, false
}

// ListResources returns all registered resource definitions in
// registration order, with Template set for any URI containing a
// {param} placeholder.
func (r *Registry) ListResources() []ResourceDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ResourceDefinition, 0, len(r.resourceOrder))
	for _, uri := range r.resourceOrder {
		def := r.resources[uri].Definition()
		def.Template = strings.Contains(def.URI, "{")
		defs = append(defs, def)
	}
	return defs
}

// HasResources returns true if any resources are registered.
func (r *Registry) HasResources() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.resources) > 0
}
