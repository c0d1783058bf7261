// Package prompts holds the language model prompt templates. Defaults are
// compiled in; files in an override directory replace them by name and are
// reloaded while the server runs.
package prompts

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nfrund/tafep-voice/internal/domain"
)

// Template names.
const (
	Classify    = "classify"
	ClassifyXML = "classify_xml"
	Tone        = "tone"
	Establish   = "establish"
	Categorize  = "categorize"
	Probe       = "probe"
	AskToFile   = "ask_to_file"
	Closure     = "closure"
	CaseSummary = "case_summary"
)

const ext = ".tmpl"

// toneBlock is shared by the generation prompts.
const toneBlock = `{{define "tone_guidance"}}{{with .Tone}}
Tone guidance: {{.}}{{end}}{{end}}`

//go:embed defaults/*.tmpl
var defaults embed.FS

var ErrUnknownPrompt = errors.New("prompts: unknown template")

// Source tells where a template was loaded from.
type Source string

const (
	SourceEmbedded Source = "embedded"
	SourceExternal Source = "external"
)

// Data is the value every template is executed with.
type Data struct {
	Input         string
	History       string
	State         domain.ConversationState
	ProbeLimit    int
	Emotions      []domain.EmotionScore
	Tone          string
	CaseReference string
}

// Metadata describes a loaded template without its body.
type Metadata struct {
	Name         string
	Source       Source
	Checksum     string
	LastModified time.Time
}

type entry struct {
	tmpl *template.Template
	meta Metadata
}

// Registry resolves prompt templates by name.
type Registry struct {
	mu      sync.RWMutex
	dir     string
	entries map[string]*entry
	watcher *fsnotify.Watcher
}

var funcs = template.FuncMap{
	"yesno": func(b bool) string {
		if b {
			return "Yes"
		}
		return "No"
	},
}

// New loads the embedded defaults and then any overrides found in dir.
// An empty dir disables overrides.
func New(dir string) (*Registry, error) {
	r := &Registry{dir: dir, entries: make(map[string]*entry)}

	files, err := fs.Glob(defaults, "defaults/*"+ext)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		body, err := defaults.ReadFile(f)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(f), ext)
		e, err := compile(name, string(body), SourceEmbedded, time.Now())
		if err != nil {
			return nil, fmt.Errorf("embedded prompt %s: %w", name, err)
		}
		r.entries[name] = e
	}

	if dir == "" {
		return r, nil
	}
	overrides, err := filepath.Glob(filepath.Join(dir, "*"+ext))
	if err != nil {
		return nil, err
	}
	for _, path := range overrides {
		if err := r.loadFile(path); err != nil {
			slog.Warn("Ignoring prompt override", "path", path, "error", err)
		}
	}
	return r, nil
}

func compile(name, body string, src Source, modified time.Time) (*entry, error) {
	t, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, err
	}
	if _, err := t.Parse(toneBlock); err != nil {
		return nil, err
	}
	sum := sha256.Sum256([]byte(body))
	return &entry{
		tmpl: t,
		meta: Metadata{Name: name, Source: src, Checksum: fmt.Sprintf("%x", sum), LastModified: modified},
	}, nil
}

func (r *Registry) loadFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), ext)
	e, err := compile(name, string(body), SourceExternal, info.ModTime())
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.entries[name] = e
	r.mu.Unlock()
	slog.Info("Loaded prompt override", "name", name, "path", path, "size", len(body))
	return nil
}

// revert restores the embedded default after an override is removed.
func (r *Registry) revert(name string) {
	body, err := defaults.ReadFile("defaults/" + name + ext)
	if err != nil {
		r.mu.Lock()
		delete(r.entries, name)
		r.mu.Unlock()
		return
	}
	e, err := compile(name, string(body), SourceEmbedded, time.Now())
	if err != nil {
		return
	}
	r.mu.Lock()
	r.entries[name] = e
	r.mu.Unlock()
	slog.Info("Prompt override removed, using embedded version", "name", name)
}

// Render executes the named template.
func (r *Registry) Render(name string, data Data) (string, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPrompt, name)
	}

	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// List returns metadata for every loaded template, sorted by name.
func (r *Registry) List() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Metadata, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.meta)
	}
	slices.SortFunc(out, func(a, b Metadata) int { return strings.Compare(a.Name, b.Name) })
	return out
}
