package descriptor

import (
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludes are editor and backup artifacts never treated as descriptors.
var DefaultExcludes = []string{
	"**/.#*",   // Emacs lock files
	"**/*~",    // Backup files
	"**/*.bak", // Backup files
	"**/*.swp", // Vim swap files
	"**/*.tmp", // Temporary files
	"**/._*",   // macOS resource forks
}

// Discoverer expands glob patterns below a root directory.
type Discoverer struct {
	root string
}

// NewDiscoverer returns a Discoverer rooted at root.
func NewDiscoverer(root string) *Discoverer {
	return &Discoverer{root: root}
}

// Discover returns the sorted, de-duplicated files matching any include
// pattern and no exclude pattern. Patterns are relative to the root;
// absolute patterns and ".." segments are rejected.
func (d *Discoverer) Discover(includes, excludes []string) ([]string, error) {
	if len(includes) == 0 {
		return []string{}, nil
	}
	discovered := make(map[string]bool)
	for _, pattern := range includes {
		if err := validatePattern(pattern); err != nil {
			return nil, err
		}

		// doublestar does not follow symbolic links.
		matches, err := doublestar.FilepathGlob(filepath.Join(d.root, pattern), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("descriptor: invalid glob pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			rel, err := filepath.Rel(d.root, match)
			if err != nil || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
				return nil, fmt.Errorf("descriptor: %s escapes root %s", match, d.root)
			}
			discovered[match] = true
		}
	}

	files := make([]string, 0, len(discovered))
	for file := range discovered {
		if d.excluded(file, excludes) {
			continue
		}
		files = append(files, file)
	}
	sort.Strings(files)
	return files, nil
}

func validatePattern(pattern string) error {
	clean := filepath.Clean(pattern)
	if filepath.IsAbs(clean) {
		return fmt.Errorf("descriptor: absolute pattern not allowed: %s", pattern)
	}
	if slices.Contains(strings.Split(filepath.ToSlash(clean), "/"), "..") {
		return fmt.Errorf("descriptor: parent directory reference not allowed: %s", pattern)
	}
	return nil
}

func (d *Discoverer) excluded(file string, excludes []string) bool {
	rel, err := filepath.Rel(d.root, file)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(file)
	for _, pattern := range append(slices.Clone(DefaultExcludes), excludes...) {
		pattern = filepath.ToSlash(pattern)
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}
