// Package fieldset assigns struct fields by name at runtime.
//
// It is the runtime half of generated Go builders: Build() calls Set once per
// stored field and discards the Result, so a field that was renamed or
// removed after the builder was generated simply keeps its zero value.
//
// Set reaches unexported fields as well, the way the generated Java builders
// force reflective access.
//
//	res := fieldset.Set(&p, "age", 42)
//	if !res.OK() {
//		log.Printf("age not set: %v", res)
//	}
package fieldset
