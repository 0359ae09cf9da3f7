// Package buildergen generates fluent builders for classes described by
// class descriptors.
//
// The repository is organised as:
//
//   - builder: descriptor model, validation, the java and go targets, sinks
//     and the generation pass (Generator.Run)
//   - fieldset: the runtime helper generated Go builders call from Build()
//   - internal/descriptor: YAML/JSON descriptor files and glob discovery
//   - internal/goscan: descriptors from //buildergen:generate Go structs
//   - cmd/buildergen: the CLI (generate, scan, watch, targets)
//   - examples/*: a Go package using generated builders and a Java descriptor
//     project
//
// A pass never stops on a bad descriptor: non-class elements and invalid
// descriptors are skipped with a warning. Only sink failures abort it.
package buildergen
