package input

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
)

// DefaultHold is how long a key counts as held after its last press event.
const DefaultHold = 300 * time.Millisecond

// ErrInterrupt is returned by Terminal.Run when the user quits with Esc or
// Ctrl-C.
type ErrInterrupt struct{}

func (ErrInterrupt) Error() string { return "interrupted from keyboard" }

// KeyEvent is a key going down or coming back up.
type KeyEvent struct {
	Rune rune
	Down bool
}

// Terminal reads keys from a tcell screen. Terminals report presses and
// auto-repeat but never releases, so a release is synthesised once a key has
// not been seen for Hold.
type Terminal struct {
	screen tcell.Screen
	Hold   time.Duration
	Prompt string
}

// OpenTerminal takes over the controlling terminal.
func OpenTerminal() (*Terminal, error) {
	tcell.SetEncodingFallback(tcell.EncodingFallbackASCII)
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := s.Init(); err != nil {
		return nil, err
	}
	return NewTerminal(s), nil
}

// NewTerminal uses an already initialised screen.
func NewTerminal(s tcell.Screen) *Terminal {
	return &Terminal{screen: s, Hold: DefaultHold, Prompt: "type letters or digits, Esc to quit"}
}

func (t *Terminal) draw(held string) {
	t.screen.Clear()
	style := tcell.StyleDefault
	x := 0
	for _, r := range t.Prompt {
		t.screen.SetContent(x, 0, r, nil, style)
		x++
	}
	x = 0
	for _, r := range held {
		t.screen.SetContent(x, 2, r, nil, style.Bold(true))
		x++
	}
	t.screen.Show()
}

// Run emits key events on out until ctx ends or the user quits. Keys still
// held when it returns are released first, so consumers end in a clean state.
func (t *Terminal) Run(ctx context.Context, out chan<- KeyEvent) error {
	hold := t.Hold
	if hold <= 0 {
		hold = DefaultHold
	}
	evs := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case evs <- ev:
			case <-quit:
				return
			}
		}
	}()

	held := map[rune]time.Time{}
	emit := func(e KeyEvent) bool {
		select {
		case out <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}
	releaseAll := func() {
		for r := range held {
			delete(held, r)
			select {
			case out <- KeyEvent{Rune: r}:
			default:
			}
		}
	}
	redraw := func() {
		s := make([]rune, 0, len(held))
		for r := range held {
			s = append(s, r)
		}
		t.draw(string(s))
	}
	redraw()

	ticker := time.NewTicker(hold / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			releaseAll()
			return ctx.Err()
		case now := <-ticker.C:
			changed := false
			for r, last := range held {
				if now.Sub(last) >= hold {
					delete(held, r)
					changed = true
					if !emit(KeyEvent{Rune: r}) {
						return ctx.Err()
					}
				}
			}
			if changed {
				redraw()
			}
		case ev := <-evs:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch ev.Key() {
				case tcell.KeyCtrlC, tcell.KeyEsc:
					releaseAll()
					return ErrInterrupt{}
				case tcell.KeyRune:
					r := ev.Rune()
					_, down := held[r]
					held[r] = time.Now()
					if !down {
						if !emit(KeyEvent{Rune: r, Down: true}) {
							return ctx.Err()
						}
						redraw()
					}
				}
			case *tcell.EventResize:
				t.screen.Sync()
			}
		}
	}
}

func (t *Terminal) Close() error {
	t.screen.Fini()
	return nil
}
