// Package goscan turns annotated Go struct declarations into class
// descriptors.
//
// A type opts in with a "//buildergen:generate" line in its doc comment.
// Fields tagged `builder:"-"` are left out; embedded fields are skipped.
package goscan

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/sghaida/buildergen/builder"
)

// Directive marks a type declaration for builder generation.
const Directive = "//buildergen:generate"

// TagKey is the struct tag key read for the ignore marker.
const TagKey = "builder"

// Package is the result of scanning one directory.
type Package struct {
	Dir        string
	ImportPath string
	Name       string
	Module     Module

	// Descriptors holds one entry per directive-marked type, in file then
	// declaration order. Non-struct types are included with a non-class kind.
	Descriptors []builder.ClassDescriptor
}

// Scan parses the non-test, non-generated Go files in dir.
func Scan(dir string) (Package, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Package{}, err
	}
	mod, err := findModule(abs)
	if err != nil {
		return Package{}, err
	}
	importPath, err := mod.ImportPath(abs)
	if err != nil {
		return Package{}, err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return Package{}, fmt.Errorf("goscan: read %s: %w", abs, err)
	}

	pkg := Package{Dir: abs, ImportPath: importPath, Module: mod}
	fset := token.NewFileSet()

	for _, e := range entries {
		if e.IsDir() || !isSourceFile(e.Name()) {
			continue
		}

		full := filepath.Join(abs, e.Name())
		f, err := parser.ParseFile(fset, full, nil, parser.ParseComments)
		if err != nil {
			return Package{}, fmt.Errorf("goscan: parse %s: %w", full, err)
		}
		if ast.IsGenerated(f) {
			continue
		}
		if pkg.Name == "" {
			pkg.Name = f.Name.Name
		}
		pkg.Descriptors = append(pkg.Descriptors, scanFile(f, full, importPath)...)
	}
	return pkg, nil
}

func isSourceFile(name string) bool {
	if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
		return false
	}
	// generated outputs never feed back into a scan
	return !strings.HasSuffix(name, ".gen.go") && !strings.HasSuffix(name, "_gen.go")
}

func scanFile(f *ast.File, source, importPath string) []builder.ClassDescriptor {
	var out []builder.ClassDescriptor
	imports := fileImports(f)

	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			doc := ts.Doc
			if doc == nil && len(gd.Specs) == 1 {
				doc = gd.Doc
			}
			if !hasDirective(doc) {
				continue
			}

			d := builder.ClassDescriptor{
				QualifiedName: importPath + "." + ts.Name.Name,
				Kind:          kindOf(ts),
				PackageName:   f.Name.Name,
				Source:        source,
			}
			if st, ok := ts.Type.(*ast.StructType); ok && d.Kind == builder.KindClass {
				d.Fields, d.Imports = structFields(st, imports)
			}
			out = append(out, d)
		}
	}
	return out
}

func hasDirective(doc *ast.CommentGroup) bool {
	if doc == nil {
		return false
	}
	for _, c := range doc.List {
		if strings.TrimSpace(c.Text) == Directive {
			return true
		}
	}
	return false
}

func kindOf(ts *ast.TypeSpec) builder.ElementKind {
	switch ts.Type.(type) {
	case *ast.StructType:
		if ts.TypeParams != nil && len(ts.TypeParams.List) > 0 {
			return builder.KindOther
		}
		return builder.KindClass
	case *ast.InterfaceType:
		return builder.KindInterface
	default:
		return builder.KindOther
	}
}

func structFields(st *ast.StructType, imports map[string]string) ([]builder.FieldSpec, []string) {
	fields := []builder.FieldSpec{}
	used := map[string]string{}

	for _, field := range st.Fields.List {
		if len(field.Names) == 0 || ignored(field.Tag) {
			continue
		}
		typ := types.ExprString(field.Type)
		for _, name := range field.Names {
			if name.Name == "_" {
				continue
			}
			fields = append(fields, builder.FieldSpec{Name: name.Name, Type: typ})
		}
		for _, q := range qualifiers(field.Type) {
			if spec, ok := imports[q]; ok {
				used[q] = spec
			}
		}
	}

	var specs []string
	for _, spec := range used {
		specs = append(specs, spec)
	}
	sort.Strings(specs)
	return fields, specs
}

func ignored(tag *ast.BasicLit) bool {
	if tag == nil {
		return false
	}
	raw, err := strconv.Unquote(tag.Value)
	if err != nil {
		return false
	}
	return reflect.StructTag(raw).Get(TagKey) == "-"
}

// qualifiers returns the package names referenced as pkg.Name in expr.
func qualifiers(expr ast.Expr) []string {
	var out []string
	ast.Inspect(expr, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok {
				out = append(out, id.Name)
			}
		}
		return true
	})
	return out
}

// fileImports maps the local package name of each import to its spec text:
// "path" for plain imports and "alias path" for renamed ones.
func fileImports(f *ast.File) map[string]string {
	out := map[string]string{}
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		if imp.Name != nil {
			switch imp.Name.Name {
			case "_", ".":
				continue
			}
			out[imp.Name.Name] = imp.Name.Name + " " + p
			continue
		}
		out[localName(p)] = p
	}
	return out
}

// localName guesses the package name of an import path: the last element,
// skipping a major-version suffix and trimming a "go-" prefix.
func localName(importPath string) string {
	base := path.Base(importPath)
	if len(base) > 1 && base[0] == 'v' && isDigits(base[1:]) {
		base = path.Base(path.Dir(importPath))
	}
	base = strings.TrimPrefix(base, "go-")
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return strings.ReplaceAll(base, "-", "")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
