// Package descriptor loads class descriptors from YAML or JSON files.
//
// A file holds a "classes" list. Each entry names the qualified class, an
// optional element kind and its fields in declaration order. Fields marked
// "ignore: true" are dropped before the descriptor reaches the generator.
package descriptor

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"sigs.k8s.io/yaml"

	"github.com/sghaida/buildergen/builder"
)

const schemaURL = "https://github.com/sghaida/buildergen/schema/descriptor.schema.json"

//go:embed schema/descriptor.schema.json
var schemaJSON []byte

// ErrSchema marks documents rejected by the descriptor schema.
var ErrSchema = errors.New("descriptor: schema violation")

var (
	schemaOnce     sync.Once
	schemaErr      error
	compiledSchema *jsonschema.Schema
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

type fileDoc struct {
	Classes []classDoc `json:"classes"`
}

type classDoc struct {
	QualifiedName string              `json:"qualifiedName"`
	Kind          builder.ElementKind `json:"kind"`
	PackageName   string              `json:"packageName"`
	Imports       []string            `json:"imports"`
	Fields        []fieldDoc          `json:"fields"`
}

type fieldDoc struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Ignore bool   `json:"ignore"`
}

// Load reads and parses one descriptor file.
func Load(path string) ([]builder.ClassDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("descriptor: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// LoadAll loads every file in order and concatenates the descriptors. The
// first unreadable or invalid file stops the load.
func LoadAll(paths []string) ([]builder.ClassDescriptor, error) {
	var out []builder.ClassDescriptor
	for _, p := range paths {
		descs, err := Load(p)
		if err != nil {
			return nil, err
		}
		out = append(out, descs...)
	}
	return out, nil
}

// Parse decodes a YAML or JSON document. source is recorded on every
// descriptor and used in error messages.
func Parse(data []byte, source string) ([]builder.ClassDescriptor, error) {
	sch, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("descriptor: compile schema: %w", err)
	}

	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("descriptor %s: convert yaml to json: %w", source, err)
	}

	var document any
	if err := json.Unmarshal(jsonData, &document); err != nil {
		return nil, fmt.Errorf("descriptor %s: decode json: %w", source, err)
	}
	if err := sch.Validate(document); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSchema, source, err)
	}

	var doc fileDoc
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("descriptor %s: decode: %w", source, err)
	}

	out := make([]builder.ClassDescriptor, 0, len(doc.Classes))
	for _, c := range doc.Classes {
		out = append(out, c.descriptor(source))
	}
	return out, nil
}

func (c classDoc) descriptor(source string) builder.ClassDescriptor {
	fields := make([]builder.FieldSpec, 0, len(c.Fields))
	for _, f := range c.Fields {
		if f.Ignore {
			continue
		}
		fields = append(fields, builder.FieldSpec{Name: f.Name, Type: f.Type})
	}
	return builder.ClassDescriptor{
		QualifiedName: c.QualifiedName,
		Kind:          c.Kind,
		Fields:        fields,
		Imports:       c.Imports,
		PackageName:   c.PackageName,
		Source:        source,
	}
}
