package builder

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Target renders a Model into the source text of one output language.
type Target interface {
	// Name is the registry key, e.g. "java".
	Name() string
	// Path maps a descriptor to its destination relative to the sink root.
	Path(d ClassDescriptor) (string, error)
	// SetterName derives the setter method name for a field.
	SetterName(field string) string
	// Render produces the complete source text.
	Render(m Model) ([]byte, error)
}

// Model is the target-independent view of one builder, in rendering order.
type Model struct {
	// Generator and Timestamp form the provenance marker.
	Generator string
	Timestamp string

	// Package is the part of the output qualified name before the last '.'.
	Package string
	// ClassName is the builder type name (metaClassName).
	ClassName string
	// TargetName is the qualified name of the class being built and
	// TargetSimple its simple name.
	TargetName   string
	TargetSimple string

	Fields []FieldModel

	Descriptor ClassDescriptor
}

// FieldModel is one field with its derived setter name.
type FieldModel struct {
	Name   string
	Type   string
	Setter string
}

// NewModel derives the rendering model for d using t's setter naming.
func NewModel(t Target, d ClassDescriptor, generator, timestamp string) Model {
	pkg, className := SplitQualified(d.OutputQualifiedName())
	_, simple := SplitQualified(d.QualifiedName)

	fields := make([]FieldModel, 0, len(d.Fields))
	for _, f := range d.Fields {
		fields = append(fields, FieldModel{
			Name:   f.Name,
			Type:   f.Type,
			Setter: t.SetterName(f.Name),
		})
	}

	return Model{
		Generator:    generator,
		Timestamp:    timestamp,
		Package:      pkg,
		ClassName:    className,
		TargetName:   d.QualifiedName,
		TargetSimple: simple,
		Fields:       fields,
		Descriptor:   d,
	}
}

// -------------------------
// Registry
// -------------------------

// TargetRegistry maps target names to implementations.
type TargetRegistry struct {
	mu    sync.RWMutex
	items map[string]Target
}

// NewTargetRegistry returns a registry holding the built-in targets.
func NewTargetRegistry() *TargetRegistry {
	r := &TargetRegistry{items: map[string]Target{}}
	return r.Provide(JavaTarget{}).Provide(GoTarget{})
}

// Provide registers t under t.Name() and returns the registry for chaining.
func (r *TargetRegistry) Provide(t Target) *TargetRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[t.Name()] = t
	return r
}

// Get returns the named target.
func (r *TargetRegistry) Get(name string) (Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.items[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTarget, name)
	}
	return t, nil
}

// Names lists registered targets in sorted order.
func (r *TargetRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.items))
	for name := range r.items {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// -------------------------
// Templates
// -------------------------

//go:embed templates/*.tmpl
var templateFS embed.FS

var templateCache sync.Map

func renderTemplate(name string, data any) ([]byte, error) {
	tmpl, err := loadTemplate(name)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func loadTemplate(name string) (*template.Template, error) {
	if value, ok := templateCache.Load(name); ok {
		return value.(*template.Template), nil
	}
	tmpl, err := template.New(name).Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return nil, err
	}
	templateCache.Store(name, tmpl)
	return tmpl, nil
}
