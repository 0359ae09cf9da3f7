package builder

// ElementKind is the kind of source element a descriptor was captured from.
type ElementKind string

const (
	KindClass      ElementKind = "class"
	KindInterface  ElementKind = "interface"
	KindEnum       ElementKind = "enum"
	KindRecord     ElementKind = "record"
	KindAnnotation ElementKind = "annotation"
	KindOther      ElementKind = "other"
)

// IsClassLike reports whether a builder can be generated for the element.
// The zero value counts as a class.
func (k ElementKind) IsClassLike() bool {
	return k == "" || k == KindClass
}

// FieldSpec is one storage field of the target class.
//
// Type is the literal spelling of the declared type and is emitted verbatim.
type FieldSpec struct {
	Name string `json:"name" yaml:"name" validate:"required,identifier"`
	Type string `json:"type" yaml:"type" validate:"required"`
}

// ClassDescriptor describes one class that requested a builder.
//
// Fields are in source declaration order with ignore-marked fields already
// removed. Imports and PackageName are only read by the go target.
type ClassDescriptor struct {
	QualifiedName string      `json:"qualifiedName" yaml:"qualifiedName" validate:"required,qualified"`
	Kind          ElementKind `json:"kind,omitempty" yaml:"kind,omitempty" validate:"omitempty,oneof=class interface enum record annotation other"`
	Fields        []FieldSpec `json:"fields" yaml:"fields" validate:"dive"`
	Imports       []string    `json:"imports,omitempty" yaml:"imports,omitempty"`
	PackageName   string      `json:"packageName,omitempty" yaml:"packageName,omitempty" validate:"omitempty,identifier"`

	// Source names where the descriptor came from (file, package dir).
	Source string `json:"-" yaml:"-"`
}

// OutputQualifiedName is the qualified name of the generated builder.
func (d ClassDescriptor) OutputQualifiedName() string {
	return d.QualifiedName + BuilderSuffix
}

// GeneratedUnit is the result of one generation call.
type GeneratedUnit struct {
	OutputQualifiedName string
	// Path is the target-specific destination relative to the sink root.
	Path       string
	SourceText string
}
