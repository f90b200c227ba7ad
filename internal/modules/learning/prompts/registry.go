package prompts

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Prompt is a rendered template ready for a chat completion.
type Prompt struct {
	Name       PromptName
	Version    int
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
}

type Registry struct {
	mu        sync.RWMutex
	templates map[PromptName]Template
}

func NewRegistry() *Registry {
	return &Registry{templates: map[PromptName]Template{}}
}

// Builtin returns a registry holding every prompt this service renders.
func Builtin() *Registry {
	r := NewRegistry()
	RegisterAll(r)
	return r
}

func (r *Registry) Register(t Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.Name] = t
}

// RegisterSpec compiles and registers s. A malformed built-in spec is a programming error.
func (r *Registry) RegisterSpec(s Spec) {
	t, err := MakeTemplate(s)
	if err != nil {
		panic(err)
	}
	r.Register(t)
}

func (r *Registry) lookup(name PromptName) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[name]
	return t, ok
}

// Build validates in and renders the named prompt.
func (r *Registry) Build(name PromptName, in Input) (Prompt, error) {
	t, ok := r.lookup(name)
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt: %s", name)
	}
	if t.Validate != nil {
		if err := t.Validate(in); err != nil {
			return Prompt{}, fmt.Errorf("%s: %w", name, err)
		}
	}
	sys, err := t.System(in)
	if err != nil {
		return Prompt{}, err
	}
	user, err := t.User(in)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{
		Name:       t.Name,
		Version:    t.Version,
		SchemaName: strings.TrimSpace(t.SchemaName),
		Schema:     t.Schema(),
		System:     sys,
		User:       user,
	}, nil
}

func (r *Registry) Schema(name PromptName) (schemaName string, schema map[string]any, ok bool) {
	t, ok := r.lookup(name)
	if !ok || t.Schema == nil {
		return "", nil, false
	}
	return t.SchemaName, t.Schema(), true
}

// Names lists registered prompts in sorted order.
func (r *Registry) Names() []PromptName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PromptName, 0, len(r.templates))
	for n := range r.templates {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
