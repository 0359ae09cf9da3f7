// Package builder generates the source text of companion "builder" types.
//
// A ClassDescriptor (qualified name plus ordered fields) goes in, a
// GeneratedUnit (output name, destination path, source text) comes out and is
// handed to a Sink. Rendering order is fixed:
//
//   - header and provenance marker (generator name + UTC timestamp)
//   - one private storage field per descriptor field
//   - one fluent setter per field ("with" + first letter upper-cased)
//   - a terminal build method that default-constructs the target and assigns
//     every stored value by name, silently skipping fields it cannot set
//
// The clock is read once per call and is the only source of nondeterminism:
// with a fixed clock, output is byte-identical.
//
// Targets
//
// Two targets ship with the package:
//
//   - java: the classic builder with reflective field assignment
//   - go:   a Go builder whose Build() assigns through the fieldset runtime
//
// Errors
//
// Only sink failures are fatal (*GenerationError). Non-class elements
// (ErrNotClass) and malformed descriptors (*DescriptorError) are skipped with
// a warning by Run, and the pass continues with the next descriptor.
//
// Typical use:
//
//	gen := builder.New(builder.NewDirSink("generated"),
//		builder.WithLogger(logger),
//	)
//	report, err := gen.Run(ctx, descriptors)
package builder
