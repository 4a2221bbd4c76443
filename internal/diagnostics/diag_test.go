package diagnostics

import (
	"testing"
	"time"
)

func TestLogKeepsMostRecent(t *testing.T) {
	l := NewLog(2)
	var heard []string
	l.Listen(func(d Diagnostic) { heard = append(heard, d.Code) })

	for _, code := range []string{"A", "B", "C"} {
		l.Push(Diagnostic{Severity: Info, Code: code})
	}
	got := l.List()
	if len(got) != 2 || got[0].Code != "B" || got[1].Code != "C" {
		t.Fatalf("unexpected items %+v", got)
	}
	if len(heard) != 3 {
		t.Fatalf("listener should hear every push, got %v", heard)
	}
	if got[0].Time.IsZero() {
		t.Fatalf("push should stamp the time")
	}
}

func TestLogKeepsGivenTime(t *testing.T) {
	l := NewLog(0)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.Push(Diagnostic{Time: at, Code: "X"})
	if !l.List()[0].Time.Equal(at) {
		t.Fatalf("time should be kept")
	}
}

func TestListenerMayRegisterDuringPush(t *testing.T) {
	l := NewLog(4)
	late := 0
	l.Listen(func(Diagnostic) {
		l.Listen(func(Diagnostic) { late++ })
	})
	l.Push(Diagnostic{Code: "A"})
	if late != 0 {
		t.Fatalf("a listener added during a push should not hear it, got %d", late)
	}
	l.Push(Diagnostic{Code: "B"})
	if late != 1 {
		t.Fatalf("late listener should hear the next push, got %d", late)
	}
}
