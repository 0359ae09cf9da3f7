package logfields

import "log/slog"

// Canonical log field names shared by the generator, producers and CLI.
const (
	KeyPassID     = "pass_id"
	KeyClass      = "class"
	KeyUnit       = "unit"
	KeyTarget     = "target"
	KeyPath       = "path"
	KeySource     = "source"
	KeyReason     = "reason"
	KeyUnits      = "units"
	KeySkipped    = "skipped"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

func PassID(id string) slog.Attr      { return slog.String(KeyPassID, id) }
func Class(name string) slog.Attr     { return slog.String(KeyClass, name) }
func Unit(name string) slog.Attr      { return slog.String(KeyUnit, name) }
func Target(name string) slog.Attr    { return slog.String(KeyTarget, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Source(s string) slog.Attr       { return slog.String(KeySource, s) }
func Reason(r string) slog.Attr       { return slog.String(KeyReason, r) }
func Units(n int) slog.Attr           { return slog.Int(KeyUnits, n) }
func Skipped(n int) slog.Attr         { return slog.Int(KeySkipped, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// Error renders err as a string attribute; nil yields an empty value.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
