package goscan

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoModule is returned when no go.mod is found above the scanned directory.
var ErrNoModule = errors.New("goscan: could not find go.mod")

// ModuleError reports a go.mod that was found but cannot name the module.
type ModuleError struct {
	GoMod  string
	Reason string
	Err    error
}

func (e *ModuleError) Error() string {
	msg := "goscan: " + filepath.ToSlash(e.GoMod) + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ModuleError) Unwrap() error { return e.Err }

// Module is the Go module that owns a scanned directory.
type Module struct {
	// Root is the directory holding go.mod.
	Root string
	// Path is the module path from the module directive.
	Path string
}

// ImportPath maps dir, which must sit inside m.Root, to its import path.
func (m Module) ImportPath(dir string) (string, error) {
	rel, err := filepath.Rel(m.Root, dir)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	switch {
	case rel == ".":
		return m.Path, nil
	case rel == ".." || strings.HasPrefix(rel, "../"):
		return "", fmt.Errorf("goscan: %s is outside module %s rooted at %s", filepath.ToSlash(dir), m.Path, filepath.ToSlash(m.Root))
	default:
		return m.Path + "/" + rel, nil
	}
}

// findModule returns the module of the nearest go.mod at or above dir.
func findModule(dir string) (Module, error) {
	for cur := dir; ; {
		gomod := filepath.Join(cur, "go.mod")
		if st, err := os.Stat(gomod); err == nil && !st.IsDir() {
			modPath, err := readModulePath(gomod)
			if err != nil {
				return Module{}, err
			}
			return Module{Root: cur, Path: modPath}, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return Module{}, fmt.Errorf("%w starting from %s", ErrNoModule, filepath.ToSlash(dir))
		}
		cur = parent
	}
}

// readModulePath returns the path named by the module directive of gomod.
// Trailing line comments and quoting are accepted.
func readModulePath(gomod string) (string, error) {
	data, err := os.ReadFile(gomod)
	if err != nil {
		return "", &ModuleError{GoMod: gomod, Reason: "read failed", Err: err}
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != "module" {
			continue
		}
		if len(fields) != 2 {
			return "", &ModuleError{GoMod: gomod, Reason: "malformed module directive"}
		}
		return strings.Trim(fields[1], "\"`"), nil
	}
	return "", &ModuleError{GoMod: gomod, Reason: "missing module directive"}
}
