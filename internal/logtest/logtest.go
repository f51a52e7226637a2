// Package logtest records slog output so tests can assert on diagnostics.
package logtest

import (
	"context"
	"log/slog"
	"sync"
)

// Record is one captured log call.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Recorder is a slog.Handler that keeps every record at or above Debug.
type Recorder struct {
	mu      *sync.Mutex
	records *[]Record
	attrs   []slog.Attr
}

// New returns a recorder and a logger writing to it.
func New() (*Recorder, *slog.Logger) {
	r := &Recorder{mu: &sync.Mutex{}, records: &[]Record{}}
	return r, slog.New(r)
}

func (r *Recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	attrs := make(map[string]any, len(r.attrs)+rec.NumAttrs())
	for _, a := range r.attrs {
		attrs[a.Key] = a.Value.Any()
	}

	rec.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	r.mu.Lock()
	*r.records = append(*r.records, Record{Level: rec.Level, Message: rec.Message, Attrs: attrs})
	r.mu.Unlock()

	return nil
}

func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *r
	next.attrs = append(append([]slog.Attr(nil), r.attrs...), attrs...)

	return &next
}

// WithGroup keeps attribute keys flat; tests match on keys only.
func (r *Recorder) WithGroup(string) slog.Handler {
	next := *r
	return &next
}

// Records returns a copy of everything captured so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Record(nil), *r.records...)
}

// Count returns how many records have the given level and message.
func (r *Recorder) Count(level slog.Level, msg string) int {
	n := 0

	for _, rec := range r.Records() {
		if rec.Level == level && rec.Message == msg {
			n++
		}
	}

	return n
}

// Errors returns how many records were logged at Error.
func (r *Recorder) Errors() int {
	n := 0

	for _, rec := range r.Records() {
		if rec.Level == slog.LevelError {
			n++
		}
	}

	return n
}
