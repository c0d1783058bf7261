// Package topicmgr keeps the catalogue of pub/sub topics so they can be
// validated at startup and listed from the CLI.
package topicmgr

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"
)

// Scope separates infrastructure topics from feature topics.
type Scope string

const (
	ScopeFramework Scope = "framework"
	ScopeModule    Scope = "module"
)

// TopicConfig describes a topic.
type TopicConfig struct {
	Name        string         `json:"name"`
	Module      string         `json:"module"`
	Scope       Scope          `json:"scope"`
	Description string         `json:"description"`
	Example     string         `json:"example,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Entry is a registered topic.
type Entry struct {
	TopicConfig
	RegisteredAt time.Time `json:"registered_at"`
}

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

// ErrInvalidTopic reports a malformed or duplicate definition.
type ErrInvalidTopic struct {
	Name   string
	Reason string
}

func (e *ErrInvalidTopic) Error() string {
	return fmt.Sprintf("invalid topic %q: %s", e.Name, e.Reason)
}

// Validate checks the name format and scope rules.
func (c TopicConfig) Validate() error {
	if !namePattern.MatchString(c.Name) {
		return &ErrInvalidTopic{Name: c.Name, Reason: "name must be lower-case dot separated segments"}
	}
	switch c.Scope {
	case ScopeFramework:
	case ScopeModule:
		if c.Module == "" {
			return &ErrInvalidTopic{Name: c.Name, Reason: "module topics need an owning module"}
		}
	default:
		return &ErrInvalidTopic{Name: c.Name, Reason: fmt.Sprintf("unknown scope %q", c.Scope)}
	}
	if strings.TrimSpace(c.Description) == "" {
		return &ErrInvalidTopic{Name: c.Name, Reason: "description is required"}
	}
	return nil
}

// Registry holds topic definitions by name.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register validates and adds a topic. Names must be unique.
func (r *Registry) Register(c TopicConfig) error {
	if err := c.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[c.Name]; ok {
		return &ErrInvalidTopic{Name: c.Name, Reason: "already registered"}
	}
	r.entries[c.Name] = Entry{TopicConfig: c, RegisteredAt: time.Now()}
	return nil
}

// MustRegister panics on an invalid definition. Use it for package-level topics.
func (r *Registry) MustRegister(c TopicConfig) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// List returns every topic sorted by name.
func (r *Registry) List() []Entry {
	return r.filter(func(Entry) bool { return true })
}

func (r *Registry) ListByModule(module string) []Entry {
	return r.filter(func(e Entry) bool { return e.Module == module })
}

func (r *Registry) ListByScope(scope Scope) []Entry {
	return r.filter(func(e Entry) bool { return e.Scope == scope })
}

// Modules lists the distinct owning modules.
func (r *Registry) Modules() []string {
	var out []string
	for _, e := range r.List() {
		if e.Module != "" && !slices.Contains(out, e.Module) {
			out = append(out, e.Module)
		}
	}
	slices.Sort(out)
	return out
}

func (r *Registry) filter(keep func(Entry) bool) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return out
}

var defaultRegistry = NewRegistry()

// Default is the process-wide registry typed events register with.
func Default() *Registry {
	return defaultRegistry
}
