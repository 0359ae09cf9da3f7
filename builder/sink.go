package builder

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// Destination names where a unit goes: keyed by the output qualified name,
// placed at Path relative to the sink root.
type Destination struct {
	QualifiedName string
	Path          string
}

// Sink persists generated source text. Open must return a writer that is
// fully written and closed by the caller; the unit is committed on Close.
type Sink interface {
	Open(dst Destination) (io.WriteCloser, error)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(dst Destination) (io.WriteCloser, error)

func (f SinkFunc) Open(dst Destination) (io.WriteCloser, error) { return f(dst) }

// -------------------------
// DirSink
// -------------------------

// tempFile abstracts an os.File for testability.
type tempFile interface {
	Name() string
	Write([]byte) (int, error)
	Close() error
}

// File operation hooks, overridden in tests.
var (
	createTempFile = func(dir, pattern string) (tempFile, error) { return os.CreateTemp(dir, pattern) }
	mkdirAll       = os.MkdirAll
	chmodFile      = os.Chmod
	renameFile     = os.Rename
	removeFile     = os.Remove
)

// DirSink writes units below a root directory.
//
// Every unit is written to a temp file next to its destination and renamed
// over it on Close, so readers never observe a partial file. A qualified name
// or a file path may be opened once per sink; create a new DirSink for each
// pass.
type DirSink struct {
	root string
	perm os.FileMode

	mu     sync.Mutex
	opened map[string]bool
	paths  map[string]string
}

// NewDirSink returns a sink rooted at root writing files with mode 0644.
func NewDirSink(root string) *DirSink {
	return &DirSink{root: root, perm: 0o644, opened: map[string]bool{}, paths: map[string]string{}}
}

// Root returns the sink's root directory.
func (s *DirSink) Root() string { return s.root }

// Open reserves dst and returns an atomic writer for it.
func (s *DirSink) Open(dst Destination) (io.WriteCloser, error) {
	rel := filepath.Clean(filepath.FromSlash(dst.Path))
	if dst.Path == "" || filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("builder: destination path %q escapes sink root", dst.Path)
	}

	s.mu.Lock()
	if s.opened[dst.QualifiedName] {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateDestination, dst.QualifiedName)
	}
	if owner, ok := s.paths[rel]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s and %s both write %s", ErrDuplicateDestination, owner, dst.QualifiedName, dst.Path)
	}
	s.opened[dst.QualifiedName] = true
	s.paths[rel] = dst.QualifiedName
	s.mu.Unlock()

	w, err := s.openAtomic(filepath.Join(s.root, rel))
	if err != nil {
		s.mu.Lock()
		delete(s.opened, dst.QualifiedName)
		delete(s.paths, rel)
		s.mu.Unlock()
		return nil, err
	}
	return w, nil
}

func (s *DirSink) openAtomic(targetPath string) (*atomicFile, error) {
	targetDir := filepath.Dir(targetPath)
	if err := mkdirAll(targetDir, 0o755); err != nil {
		return nil, err
	}
	tmp, err := createTempFile(targetDir, filepath.Base(targetPath)+".tmp-*")
	if err != nil {
		return nil, err
	}
	return &atomicFile{tmp: tmp, target: targetPath, perm: s.perm}, nil
}

// atomicFile commits to target on Close unless a write failed.
type atomicFile struct {
	tmp    tempFile
	target string
	perm   os.FileMode

	writeErr error
	closed   bool
}

func (f *atomicFile) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	n, err := f.tmp.Write(p)
	if err != nil {
		f.writeErr = err
	}
	return n, err
}

func (f *atomicFile) Close() (err error) {
	if f.closed {
		return nil
	}
	f.closed = true

	tmpPath := f.tmp.Name()
	defer func() {
		if err != nil || f.writeErr != nil {
			_ = removeFile(tmpPath)
		}
	}()

	if f.writeErr != nil {
		_ = f.tmp.Close()
		return nil
	}
	if err = f.tmp.Close(); err != nil {
		return err
	}
	if err = chmodFile(tmpPath, f.perm); err != nil {
		return err
	}
	return renameFile(tmpPath, f.target)
}

// -------------------------
// MemorySink
// -------------------------

// MemorySink keeps committed units in memory. Used for dry runs and tests.
type MemorySink struct {
	mu      sync.Mutex
	units   []GeneratedUnit
	byName  map[string]int
	pending map[string]bool
	paths   map[string]string
}

func NewMemorySink() *MemorySink {
	return &MemorySink{byName: map[string]int{}, pending: map[string]bool{}, paths: map[string]string{}}
}

func (s *MemorySink) Open(dst Destination) (io.WriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[dst.QualifiedName]; ok || s.pending[dst.QualifiedName] {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateDestination, dst.QualifiedName)
	}
	rel := path.Clean(filepath.ToSlash(dst.Path))
	if owner, ok := s.paths[rel]; ok {
		return nil, fmt.Errorf("%w: %s and %s both write %s", ErrDuplicateDestination, owner, dst.QualifiedName, dst.Path)
	}
	s.pending[dst.QualifiedName] = true
	s.paths[rel] = dst.QualifiedName
	return &memoryFile{sink: s, dst: dst}, nil
}

// Units returns committed units in commit order.
func (s *MemorySink) Units() []GeneratedUnit {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GeneratedUnit, len(s.units))
	copy(out, s.units)
	return out
}

// Get returns the committed source for an output qualified name.
func (s *MemorySink) Get(qualifiedName string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byName[qualifiedName]
	if !ok {
		return "", false
	}
	return s.units[i].SourceText, true
}

func (s *MemorySink) commit(dst Destination, src string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, dst.QualifiedName)
	s.byName[dst.QualifiedName] = len(s.units)
	s.units = append(s.units, GeneratedUnit{
		OutputQualifiedName: dst.QualifiedName,
		Path:                dst.Path,
		SourceText:          src,
	})
}

type memoryFile struct {
	sink   *MemorySink
	dst    Destination
	buf    bytes.Buffer
	closed bool
}

func (f *memoryFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	return f.buf.Write(p)
}

func (f *memoryFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.sink.commit(f.dst, f.buf.String())
	return nil
}
