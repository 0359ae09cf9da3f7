package builder

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"go/format"
	"path"
	"sort"
	"strings"
)

// FieldsetImportPath is the runtime package generated Go builders call into.
const FieldsetImportPath = "github.com/sghaida/buildergen/fieldset"

// GoTarget renders a Go builder. Setters are exported ("With" + PascalCase)
// and Build() assigns each stored value through fieldset.Set, discarding the
// result.
type GoTarget struct{}

func (GoTarget) Name() string { return "go" }

// SetterName returns "With" + PascalCase(field).
func (GoTarget) SetterName(field string) string { return "With" + PascalCase(field) }

// Path returns "<builder_type>.gen.go" next to the scanned source when the
// descriptor names its Go package, e.g. "person_builder.gen.go". Otherwise
// the file goes under the package path: "a.b.Person" lands at
// "a/b/person_builder.gen.go" and "github.com/acme/models.Person" at
// "github.com/acme/models/person_builder.gen.go".
func (GoTarget) Path(d ClassDescriptor) (string, error) {
	pkg, className := SplitQualified(d.OutputQualifiedName())
	file := snakeCase(className) + ".gen.go"
	if d.PackageName != "" || pkg == "" {
		return file, nil
	}
	if !strings.Contains(pkg, "/") {
		pkg = strings.ReplaceAll(pkg, ".", "/")
	}
	return path.Join(pkg, file), nil
}

// GoImport is one import line: optional alias plus path.
type GoImport struct {
	Name string
	Path string
}

type goTemplateData struct {
	Model
	PackageName    string
	Imports        []GoImport
	DescriptorHash string
}

func (GoTarget) Render(m Model) ([]byte, error) {
	pkgName, err := goPackageName(m.Descriptor)
	if err != nil {
		return nil, err
	}

	for _, f := range m.Fields {
		if f.Name == "Build" {
			return nil, fmt.Errorf("field %q collides with the Build method", f.Name)
		}
	}

	var imports []GoImport
	if len(m.Fields) > 0 {
		imports = append(imports, GoImport{Path: FieldsetImportPath})
	}
	for _, raw := range m.Descriptor.Imports {
		gi, ok := parseGoImport(raw)
		if !ok {
			return nil, fmt.Errorf("invalid import %q", raw)
		}
		imports = append(imports, gi)
	}

	hash, err := descriptorHash(m.Descriptor)
	if err != nil {
		return nil, err
	}

	src, err := renderTemplate("go.tmpl", goTemplateData{
		Model:          m,
		PackageName:    pkgName,
		Imports:        dedupeAndSortImports(imports),
		DescriptorHash: hash,
	})
	if err != nil {
		return nil, err
	}

	formatted, err := format.Source(src)
	if err != nil {
		return nil, fmt.Errorf("gofmt/format failed: %w", err)
	}
	return formatted, nil
}

// goPackageName prefers the descriptor's explicit package name, else the last
// element of the package path ("github.com/acme/models" -> "models",
// "a.b" -> "b").
func goPackageName(d ClassDescriptor) (string, error) {
	if d.PackageName != "" {
		return d.PackageName, nil
	}
	pkg, _ := SplitQualified(d.QualifiedName)
	if pkg == "" {
		return "", ErrUnpackaged
	}
	if i := strings.LastIndexAny(pkg, "/."); i >= 0 {
		pkg = pkg[i+1:]
	}
	if !isIdentifier(pkg) || strings.Contains(pkg, "$") {
		return "", fmt.Errorf("cannot derive a Go package name from %q", d.QualifiedName)
	}
	return pkg, nil
}

// parseGoImport accepts `path`, `"path"`, `alias path` and `alias "path"`.
func parseGoImport(raw string) (GoImport, bool) {
	parts := strings.Fields(raw)
	switch len(parts) {
	case 1:
		p := strings.Trim(parts[0], `"`)
		return GoImport{Path: p}, p != ""
	case 2:
		p := strings.Trim(parts[1], `"`)
		return GoImport{Name: parts[0], Path: p}, p != ""
	default:
		return GoImport{}, false
	}
}

func dedupeAndSortImports(imps []GoImport) []GoImport {
	seen := map[GoImport]bool{}
	out := make([]GoImport, 0, len(imps))
	for _, gi := range imps {
		if seen[gi] {
			continue
		}
		seen[gi] = true
		out = append(out, gi)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path == out[j].Path {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func descriptorHash(d ClassDescriptor) (string, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
