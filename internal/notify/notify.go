// Package notify carries user-facing toast notifications from the state
// manager to whoever renders or records them.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/logger"
)

// Level is the visual style of a notification.
type Level string

const (
	LevelInfo        Level = "info"
	LevelSuccess     Level = "success"
	LevelDestructive Level = "destructive"
)

// Notification is one toast.
type Notification struct {
	Level     Level  `json:"level"`
	Title     string `json:"title"`
	Message   string `json:"message,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// Sink receives notifications. Implementations must be safe for concurrent use.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f SinkFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Discard drops every notification.
var Discard Sink = SinkFunc(func(context.Context, Notification) error { return nil })

// Recorder collects notifications in memory, typically for a single request.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify appends n.
func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
	return nil
}

// Notifications returns a copy of everything recorded so far.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Len returns the number of recorded notifications.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

type recorderKey struct{}

// WithRecorder attaches rec to ctx so that ContextSink can find it.
func WithRecorder(ctx context.Context, rec *Recorder) context.Context {
	return context.WithValue(ctx, recorderKey{}, rec)
}

// RecorderFromContext returns the recorder attached to ctx, if any.
func RecorderFromContext(ctx context.Context) (*Recorder, bool) {
	rec, ok := ctx.Value(recorderKey{}).(*Recorder)
	return rec, ok && rec != nil
}

// ContextSink forwards to the request-scoped recorder in ctx and drops the
// notification when there is none.
type ContextSink struct{}

// Notify implements Sink.
func (ContextSink) Notify(ctx context.Context, n Notification) error {
	if rec, ok := RecorderFromContext(ctx); ok {
		return rec.Notify(ctx, n)
	}
	return nil
}

// LogSink writes notifications to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a log sink. Request-scoped fields are taken from ctx on each call.
func NewLogSink(l *slog.Logger) *LogSink {
	return &LogSink{logger: l}
}

// Notify implements Sink.
func (s *LogSink) Notify(ctx context.Context, n Notification) error {
	level := slog.LevelInfo
	if n.Level == LevelDestructive {
		level = slog.LevelWarn
	}
	logger.WithContext(ctx, s.logger).LogAttrs(ctx, level, "notification",
		slog.String("notification_level", string(n.Level)),
		slog.String("title", n.Title),
		slog.String("message", n.Message),
		slog.String("operation", n.Operation),
	)
	return nil
}

// Multi fans a notification out to every sink. All sinks are called even
// when some fail; their errors are combined.
type Multi []Sink

// Notify implements Sink.
func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs error
	for _, s := range m {
		errs = multierr.Append(errs, s.Notify(ctx, n))
	}
	return errs
}
