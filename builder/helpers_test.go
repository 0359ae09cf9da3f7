package builder

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

var fixedTime = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

func personDescriptor() ClassDescriptor {
	return ClassDescriptor{
		QualifiedName: "a.b.Person",
		Fields: []FieldSpec{
			{Name: "firstName", Type: "String"},
			{Name: "age", Type: "int"},
		},
	}
}

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func assertContainsInOrder(t testing.TB, s string, parts ...string) {
	t.Helper()
	pos := 0
	for _, p := range parts {
		i := strings.Index(s[pos:], p)
		if i < 0 {
			t.Fatalf("expected to find %q after pos=%d in:\n%s", p, pos, s)
		}
		pos += i + len(p)
	}
}

// failingSink fails Open for one qualified name and delegates the rest.
func failingSink(next Sink, failFor string, err error) Sink {
	return SinkFunc(func(dst Destination) (io.WriteCloser, error) {
		if dst.QualifiedName == failFor {
			return nil, err
		}
		return next.Open(dst)
	})
}

// trackingWriter records whether Close was called and can fail Write/Close.
type trackingWriter struct {
	buf      bytes.Buffer
	writeErr error
	closeErr error
	closed   bool
}

func (w *trackingWriter) Write(p []byte) (int, error) {
	if w.writeErr != nil {
		return 0, w.writeErr
	}
	return w.buf.Write(p)
}

func (w *trackingWriter) Close() error {
	w.closed = true
	return w.closeErr
}

var errDiskFull = errors.New("disk full")

// recordingRecorder counts Recorder calls.
type recordingRecorder struct {
	mu        sync.Mutex
	generated map[string]int
	skipped   map[string]int
	fatal     map[string]int
	renders   int
	passes    int
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{generated: map[string]int{}, skipped: map[string]int{}, fatal: map[string]int{}}
}

func (r *recordingRecorder) IncGenerated(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generated[target]++
}

func (r *recordingRecorder) IncSkipped(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped[reason]++
}

func (r *recordingRecorder) IncFatal(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fatal[target]++
}

func (r *recordingRecorder) ObserveRender(string, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders++
}

func (r *recordingRecorder) ObservePass(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes++
}
