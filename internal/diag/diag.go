// Package diag carries process-wide diagnostics into analysis components
// without threading a logger through every call.
package diag

import (
	"sync"

	"github.com/rs/zerolog"
)

// Level is the severity of an event.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Event is a single diagnostic record.
type Event struct {
	Level     Level
	Component string
	Message   string
	Fields    map[string]any
}

// Sink records diagnostic events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Record(Event)
}

type nopSink struct{}

func (nopSink) Record(Event) {}

// Nop returns a sink that discards every event.
func Nop() Sink {
	return nopSink{}
}

// OrNop returns s, or the no-op sink when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop()
	}
	return s
}

type loggerSink struct {
	logger zerolog.Logger
}

// FromLogger adapts a zerolog logger into a Sink.
func FromLogger(logger zerolog.Logger) Sink {
	return &loggerSink{logger: logger}
}

func (s *loggerSink) Record(ev Event) {
	var e *zerolog.Event
	switch ev.Level {
	case LevelDebug:
		e = s.logger.Debug()
	case LevelWarn:
		e = s.logger.Warn()
	case LevelError:
		e = s.logger.Error()
	default:
		e = s.logger.Info()
	}
	if ev.Component != "" {
		e = e.Str("component", ev.Component)
	}
	e.Fields(ev.Fields).Msg(ev.Message)
}

// Recorder keeps events in memory. Tests use it to assert on diagnostics.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Record implements Sink.
func (r *Recorder) Record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
