package builder

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//
// -----------------------------------------------------------------------------
// DirSink seam helpers
// -----------------------------------------------------------------------------

// fakeTempFile is a controllable stand-in for the temp file DirSink writes to.
type fakeTempFile struct {
	fileName string
	writeErr error
	closeErr error
}

func (f *fakeTempFile) Name() string { return f.fileName }

func (f *fakeTempFile) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return len(p), nil
}

func (f *fakeTempFile) Close() error { return f.closeErr }

// restoreSinkSeams puts the real file operations back when t ends.
func restoreSinkSeams(t *testing.T) {
	t.Helper()
	origCreate, origMkdir, origChmod, origRename, origRemove := createTempFile, mkdirAll, chmodFile, renameFile, removeFile
	t.Cleanup(func() {
		createTempFile = origCreate
		mkdirAll = origMkdir
		chmodFile = origChmod
		renameFile = origRename
		removeFile = origRemove
	})
}

func writeUnit(s Sink, dst Destination, text string) error {
	w, err := s.Open(dst)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, text); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

//
// -----------------------------------------------------------------------------
// DirSink
// -----------------------------------------------------------------------------

func TestDirSink_WritesBelowRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := NewDirSink(root)
	assert.Equal(t, root, s.Root())

	dst := Destination{QualifiedName: "a.b.PersonBuilder", Path: "a/b/PersonBuilder.java"}
	require.NoError(t, writeUnit(s, dst, "class PersonBuilder {}"))

	got, err := os.ReadFile(filepath.Join(root, "a", "b", "PersonBuilder.java"))
	require.NoError(t, err)
	assert.Equal(t, "class PersonBuilder {}", string(got))

	info, err := os.Stat(filepath.Join(root, "a", "b", "PersonBuilder.java"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	// No temp files survive a commit.
	entries, err := os.ReadDir(filepath.Join(root, "a", "b"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDirSink_NothingVisibleBeforeClose(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w, err := NewDirSink(root).Open(Destination{QualifiedName: "XBuilder", Path: "XBuilder.java"})
	require.NoError(t, err)
	_, err = io.WriteString(w, "partial")
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(root, "XBuilder.java"))
	assert.True(t, os.IsNotExist(statErr))

	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second Close is a no-op")
	_, statErr = os.Stat(filepath.Join(root, "XBuilder.java"))
	assert.NoError(t, statErr)
}

func TestDirSink_OverwritesExistingFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "XBuilder.java"), []byte("old"), 0o600))

	require.NoError(t, writeUnit(NewDirSink(root), Destination{QualifiedName: "XBuilder", Path: "XBuilder.java"}, "new"))
	got, err := os.ReadFile(filepath.Join(root, "XBuilder.java"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestDirSink_RejectsDuplicateDestination(t *testing.T) {
	t.Parallel()

	s := NewDirSink(t.TempDir())
	dst := Destination{QualifiedName: "a.XBuilder", Path: "a/XBuilder.java"}
	require.NoError(t, writeUnit(s, dst, "one"))

	_, err := s.Open(dst)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateDestination)
}

func TestDirSink_RejectsSharedPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := NewDirSink(root)
	require.NoError(t, writeUnit(s, Destination{QualifiedName: "a.b.PersonBuilder", Path: "person_builder.gen.go"}, "package b"))

	_, err := s.Open(Destination{QualifiedName: "c.d.PersonBuilder", Path: "./person_builder.gen.go"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateDestination)
	assert.Contains(t, err.Error(), "a.b.PersonBuilder")

	got, err := os.ReadFile(filepath.Join(root, "person_builder.gen.go"))
	require.NoError(t, err)
	assert.Equal(t, "package b", string(got), "first unit is kept")
}

func TestDirSink_FailedOpenReleasesPath(t *testing.T) {
	restoreSinkSeams(t)

	s := NewDirSink(t.TempDir())
	dst := Destination{QualifiedName: "XBuilder", Path: "XBuilder.java"}

	mkdirAll = func(string, os.FileMode) error { return errors.New("mkdir boom") }
	_, err := s.Open(dst)
	require.Error(t, err)

	mkdirAll = os.MkdirAll
	require.NoError(t, writeUnit(s, dst, "ok"))
}

func TestDirSink_RejectsEscapingPaths(t *testing.T) {
	t.Parallel()

	s := NewDirSink(t.TempDir())
	for _, p := range []string{"", "../x.java", "a/../../x.java", "/etc/x.java"} {
		_, err := s.Open(Destination{QualifiedName: "X" + p, Path: p})
		require.Error(t, err, p)
		assert.Contains(t, err.Error(), "escapes sink root", p)
	}
}

// TestDirSink_ConcurrentDistinctDestinations opens many units at once.
func TestDirSink_ConcurrentDistinctDestinations(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := NewDirSink(root)

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('A'+i)) + "Builder"
			errs[i] = writeUnit(s, Destination{QualifiedName: "p." + name, Path: "p/" + name + ".java"}, name)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	entries, err := os.ReadDir(filepath.Join(root, "p"))
	require.NoError(t, err)
	assert.Len(t, entries, 16)
}

// Covers every DirSink failure branch including temp cleanup:
// - mkdir failure
// - createTempFile failure
// - Write failure removes temp on Close
// - Close failure removes temp
// - chmod failure removes temp
// - rename failure removes temp
func TestDirSink_AllErrorBranches(t *testing.T) {
	// NOT parallel: mutates global seams.

	fakeCreate := func(f *fakeTempFile) func(dir, pattern string) (tempFile, error) {
		return func(dir, pattern string) (tempFile, error) {
			f.fileName = filepath.Join(dir, "tmpfile")
			return f, nil
		}
	}

	testCases := []struct {
		name          string
		mkdir         func(string, os.FileMode) error
		createTemp    func(dir, pattern string) (tempFile, error)
		chmod         func(string, os.FileMode) error
		rename        func(string, string) error
		wantOpenErr   string
		wantWriteErr  string
		wantCloseErr  string
		wantRemovals  int
		reopenAllowed bool
	}{
		{
			name:          "mkdir error",
			mkdir:         func(string, os.FileMode) error { return errors.New("mkdir failed") },
			wantOpenErr:   "mkdir failed",
			reopenAllowed: true,
		},
		{
			name:          "create temp error",
			createTemp:    func(string, string) (tempFile, error) { return nil, errors.New("create temp failed") },
			wantOpenErr:   "create temp failed",
			reopenAllowed: true,
		},
		{
			name:         "write error removes temp on close",
			createTemp:   fakeCreate(&fakeTempFile{writeErr: errors.New("write failed")}),
			wantWriteErr: "write failed",
			wantRemovals: 1,
		},
		{
			name:         "close error removes temp",
			createTemp:   fakeCreate(&fakeTempFile{closeErr: errors.New("close failed")}),
			wantCloseErr: "close failed",
			wantRemovals: 1,
		},
		{
			name:         "chmod error removes temp",
			createTemp:   fakeCreate(&fakeTempFile{}),
			chmod:        func(string, os.FileMode) error { return errors.New("chmod failed") },
			wantCloseErr: "chmod failed",
			wantRemovals: 1,
		},
		{
			name:         "rename error removes temp",
			createTemp:   fakeCreate(&fakeTempFile{}),
			rename:       func(string, string) error { return errors.New("rename failed") },
			wantCloseErr: "rename failed",
			wantRemovals: 1,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			restoreSinkSeams(t)

			var removed []string
			removeFile = func(p string) error {
				removed = append(removed, p)
				return nil
			}
			if tc.mkdir != nil {
				mkdirAll = tc.mkdir
			}
			if tc.createTemp != nil {
				createTempFile = tc.createTemp
			}
			chmodFile = func(string, os.FileMode) error { return nil }
			if tc.chmod != nil {
				chmodFile = tc.chmod
			}
			renameFile = func(string, string) error { return nil }
			if tc.rename != nil {
				renameFile = tc.rename
			}

			s := NewDirSink(t.TempDir())
			dst := Destination{QualifiedName: "a.XBuilder", Path: "a/XBuilder.java"}

			w, err := s.Open(dst)
			if tc.wantOpenErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantOpenErr)

				// A failed open releases the reservation.
				mkdirAll = os.MkdirAll
				createTempFile = fakeCreate(&fakeTempFile{})
				_, err = s.Open(dst)
				assert.Equal(t, tc.reopenAllowed, err == nil)
				return
			}
			require.NoError(t, err)

			_, err = io.WriteString(w, "x")
			if tc.wantWriteErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantWriteErr)
			} else {
				require.NoError(t, err)
			}

			err = w.Close()
			if tc.wantCloseErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantCloseErr)
			} else {
				require.NoError(t, err)
			}
			assert.Len(t, removed, tc.wantRemovals)
		})
	}
}

//
// -----------------------------------------------------------------------------
// MemorySink
// -----------------------------------------------------------------------------

func TestMemorySink_CommitsOnClose(t *testing.T) {
	t.Parallel()

	s := NewMemorySink()
	dst := Destination{QualifiedName: "a.XBuilder", Path: "a/XBuilder.java"}

	w, err := s.Open(dst)
	require.NoError(t, err)
	_, err = io.WriteString(w, "hello")
	require.NoError(t, err)

	_, ok := s.Get("a.XBuilder")
	assert.False(t, ok, "not visible before Close")
	assert.Empty(t, s.Units())

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	got, ok := s.Get("a.XBuilder")
	require.True(t, ok)
	assert.Equal(t, "hello", got)
	assert.Equal(t, []GeneratedUnit{{OutputQualifiedName: "a.XBuilder", Path: "a/XBuilder.java", SourceText: "hello"}}, s.Units())

	_, err = w.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestMemorySink_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	s := NewMemorySink()
	dst := Destination{QualifiedName: "a.XBuilder", Path: "a/XBuilder.java"}

	w, err := s.Open(dst)
	require.NoError(t, err)

	_, err = s.Open(dst)
	assert.ErrorIs(t, err, ErrDuplicateDestination, "pending")

	require.NoError(t, w.Close())
	_, err = s.Open(dst)
	assert.ErrorIs(t, err, ErrDuplicateDestination, "committed")
}

func TestMemorySink_RejectsSharedPath(t *testing.T) {
	t.Parallel()

	s := NewMemorySink()
	require.NoError(t, writeUnit(s, Destination{QualifiedName: "a.b.PersonBuilder", Path: "x/person_builder.gen.go"}, "one"))

	_, err := s.Open(Destination{QualifiedName: "c.d.PersonBuilder", Path: "x/./person_builder.gen.go"})
	assert.ErrorIs(t, err, ErrDuplicateDestination)
	assert.Len(t, s.Units(), 1)
}
