package builder

import (
	"path"
	"strings"
)

// JavaTarget renders a Java builder that assigns fields reflectively.
//
// Each field is assigned in its own try block; lookup or access failures are
// swallowed so build() always returns an instance, possibly with some fields
// left at their defaults.
type JavaTarget struct{}

func (JavaTarget) Name() string { return "java" }

// Path returns the package directory plus "<Builder>.java". A descriptor with
// no package lands at the sink root.
func (JavaTarget) Path(d ClassDescriptor) (string, error) {
	pkg, className := SplitQualified(d.OutputQualifiedName())
	if pkg == "" {
		return className + ".java", nil
	}
	return path.Join(strings.ReplaceAll(pkg, ".", "/"), className+".java"), nil
}

// SetterName returns "with" + PascalCase(field).
func (JavaTarget) SetterName(field string) string { return "with" + PascalCase(field) }

func (JavaTarget) Render(m Model) ([]byte, error) {
	return renderTemplate("java.tmpl", m)
}
