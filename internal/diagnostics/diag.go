package diagnostics

import (
	"sync"
	"time"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Time           time.Time      `json:"time" msgpack:"time"`
	Severity       Severity       `json:"severity" msgpack:"severity"`
	Code           string         `json:"code" msgpack:"code"`
	Summary        string         `json:"summary" msgpack:"summary"`
	Detail         string         `json:"detail,omitempty" msgpack:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty" msgpack:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty" msgpack:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty" msgpack:"evidence,omitempty"`
}

// Log keeps the most recent diagnostics and fans new ones out to listeners.
// The zero value is not usable; use NewLog.
type Log struct {
	mu        sync.Mutex
	max       int
	items     []Diagnostic
	listeners []func(Diagnostic)
}

func NewLog(n int) *Log {
	if n <= 0 {
		n = 64
	}
	return &Log{max: n}
}

// Push records d, stamping it if it has no time yet.
func (l *Log) Push(d Diagnostic) {
	if d.Time.IsZero() {
		d.Time = time.Now()
	}
	l.mu.Lock()
	l.items = append(l.items, d)
	if len(l.items) > l.max {
		l.items = l.items[len(l.items)-l.max:]
	}
	ls := append(([]func(Diagnostic))(nil), l.listeners...)
	l.mu.Unlock()
	for _, f := range ls {
		f(d)
	}
}

// List returns the retained diagnostics, oldest first.
func (l *Log) List() []Diagnostic {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Diagnostic(nil), l.items...)
}

// Listen registers f for every later Push. f must not block.
func (l *Log) Listen(f func(Diagnostic)) {
	l.mu.Lock()
	l.listeners = append(l.listeners, f)
	l.mu.Unlock()
}
