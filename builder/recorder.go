package builder

import "time"

// Skip reasons reported to Recorder.IncSkipped and in Report.Skipped.
const (
	SkipNotClass = "not_class"
	SkipInvalid  = "invalid"
)

// Recorder receives generation metrics. Implementations must be safe for
// concurrent use.
type Recorder interface {
	IncGenerated(target string)
	IncSkipped(reason string)
	IncFatal(target string)
	ObserveRender(target string, d time.Duration)
	ObservePass(d time.Duration)
}

// NoopRecorder is the default Recorder.
type NoopRecorder struct{}

func (NoopRecorder) IncGenerated(string)                 {}
func (NoopRecorder) IncSkipped(string)                   {}
func (NoopRecorder) IncFatal(string)                     {}
func (NoopRecorder) ObserveRender(string, time.Duration) {}
func (NoopRecorder) ObservePass(time.Duration)           {}
