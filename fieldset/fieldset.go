package fieldset

import (
	"fmt"
	"reflect"
	"strconv"
	"unsafe"
)

// Outcome tags the result of a Set call.
type Outcome int

const (
	// Assigned means the value was stored.
	Assigned Outcome = iota
	// NotFound means the target has no field with that name.
	NotFound
	// TypeMismatch means the value is not assignable to the field type.
	TypeMismatch
	// InvalidTarget means the target is not a non-nil pointer to a struct.
	InvalidTarget
	// Panicked means reflection panicked; the panic value is in Result.Err.
	Panicked
)

func (o Outcome) String() string {
	switch o {
	case Assigned:
		return "assigned"
	case NotFound:
		return "not_found"
	case TypeMismatch:
		return "type_mismatch"
	case InvalidTarget:
		return "invalid_target"
	case Panicked:
		return "panicked"
	default:
		return "outcome(" + strconv.Itoa(int(o)) + ")"
	}
}

// Result is the tagged outcome of Set.
type Result struct {
	Field   string
	Outcome Outcome
	Err     error
}

// OK reports whether the field was assigned.
func (r Result) OK() bool { return r.Outcome == Assigned }

// String renders the result for logs, e.g. `fieldset: "age" type_mismatch: ...`.
func (r Result) String() string {
	s := "fieldset: " + strconv.Quote(r.Field) + " " + r.Outcome.String()
	if r.Err != nil {
		s += ": " + r.Err.Error()
	}
	return s
}

// Set assigns value to the field called name on target, which must be a
// non-nil pointer to a struct. Unexported fields are assigned too. A nil
// value stores the field's zero value. Set never panics.
func Set(target any, name string, value any) (res Result) {
	res.Field = name
	defer func() {
		if rec := recover(); rec != nil {
			res.Outcome = Panicked
			res.Err = fmt.Errorf("fieldset: panic: %v", rec)
		}
	}()

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		res.Outcome = InvalidTarget
		res.Err = fmt.Errorf("fieldset: target must be a non-nil struct pointer, got %T", target)
		return res
	}

	field := rv.Elem().FieldByName(name)
	if !field.IsValid() {
		res.Outcome = NotFound
		return res
	}
	if !field.CanSet() {
		// Unexported: address the same memory through a settable value.
		field = reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem()
	}

	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		res.Outcome = Assigned
		return res
	}

	vv := reflect.ValueOf(value)
	if !vv.Type().AssignableTo(field.Type()) {
		res.Outcome = TypeMismatch
		res.Err = fmt.Errorf("fieldset: cannot assign %s to %s", vv.Type(), field.Type())
		return res
	}
	field.Set(vv)
	res.Outcome = Assigned
	return res
}
