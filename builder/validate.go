package builder

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func descriptorValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
			return isIdentifier(fl.Field().String())
		})
		_ = v.RegisterValidation("qualified", func(fl validator.FieldLevel) bool {
			q := fl.Field().String()
			if strings.ContainsAny(q, " \t\r\n") {
				return false
			}
			_, simple := SplitQualified(q)
			return isIdentifier(simple)
		})
		validate = v
	})
	return validate
}

// Validate checks the descriptor shape: qualified name, identifier-shaped
// unique field names, non-empty types and distinct setter names.
func Validate(d ClassDescriptor) error {
	if err := descriptorValidator().Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &DescriptorError{QualifiedName: d.QualifiedName, Reason: describeFieldError(verrs[0])}
		}
		return &DescriptorError{QualifiedName: d.QualifiedName, Reason: "invalid", Err: err}
	}

	names := make(map[string]struct{}, len(d.Fields))
	setters := make(map[string]string, len(d.Fields))
	for _, f := range d.Fields {
		if _, ok := names[f.Name]; ok {
			return &DescriptorError{QualifiedName: d.QualifiedName, Reason: "duplicate field " + strconv.Quote(f.Name)}
		}
		names[f.Name] = struct{}{}

		setter := PascalCase(f.Name)
		if other, ok := setters[setter]; ok {
			return &DescriptorError{
				QualifiedName: d.QualifiedName,
				Reason:        "fields " + strconv.Quote(other) + " and " + strconv.Quote(f.Name) + " produce the same setter",
			}
		}
		setters[setter] = f.Name
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "ClassDescriptor.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "identifier":
		return field + " " + strconv.Quote(fe.Value().(string)) + " is not an identifier"
	case "qualified":
		return field + " " + strconv.Quote(fe.Value().(string)) + " is not a qualified name"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	default:
		return field + " failed " + fe.Tag()
	}
}
