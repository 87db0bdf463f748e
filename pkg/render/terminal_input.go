package render

import (
	"context"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-slingrope/pkg/input"
)

// TerminalInput turns tcell mouse events into pointer snapshots. The
// primary button is the gesture button; Escape, Ctrl-C and 'q' quit.
type TerminalInput struct {
	renderer *TerminalRenderer
	pointer  *input.Pointer
}

// NewTerminalInput creates an input source mapping screen cells through
// renderer's view
func NewTerminalInput(renderer *TerminalRenderer) *TerminalInput {
	return &TerminalInput{
		renderer: renderer,
		pointer:  input.NewPointer(),
	}
}

// Snapshot implements input.Source
func (ti *TerminalInput) Snapshot() input.Snapshot {
	return ti.pointer.Snapshot()
}

// HandleEvent applies one tcell event. It returns false when the user asked
// to quit.
func (ti *TerminalInput) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventMouse:
		x, y := ev.Position()
		ti.pointer.Set(input.Snapshot{
			Position: ti.renderer.ScreenToWorld(x, y),
			Pressed:  ev.Buttons()&tcell.Button1 != 0,
		})
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
			(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
			return false
		}
	case *tcell.EventResize:
		ti.renderer.screen.Sync()
	}
	return true
}

// Run polls screen events until ctx is done or the user quits. PollEvent
// returns nil once the screen is finalized, which also ends the loop.
func (ti *TerminalInput) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 64)
	go func() {
		defer close(events)
		for {
			ev := ti.renderer.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !ti.HandleEvent(ev) {
				return nil
			}
		}
	}
}
