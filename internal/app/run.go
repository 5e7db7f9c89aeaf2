package app

import (
	"time"

	"github.com/gdamore/tcell/v2"
)

// Run drives the event loop on an initialized screen until the user quits.
// Files the sheets were loaded from are watched and reloaded on change.
func (a *App) Run(s tcell.Screen) error {
	w, err := newWatcher(s.PostEvent, a.logger)
	if err != nil {
		a.logger.Warn("file watching disabled", "err", err)
	} else {
		a.watcher = w
		defer func() {
			a.watcher = nil
			w.Close()
		}()
		for _, path := range a.files {
			a.track(path)
		}
	}

	for !a.Quit {
		a.EnsureCursorVisible(s)
		a.Draw(s)
		a.HandleEvent(s, s.PollEvent())
	}
	return nil
}

// Splash shows the program name one letter at a time, then waits for a
// key.
func Splash(s tcell.Screen, delay time.Duration) {
	const title = "GRID=CALC"
	const hint = "Press any key to enter the application"

	width, height := s.Size()
	startX := (width - len(title)) / 2
	y := height / 2
	for reveal := 1; reveal <= len(title); reveal++ {
		s.Clear()
		for i, ch := range title[:reveal] {
			color := tcell.ColorWhite
			if ch == '=' {
				color = tcell.ColorYellow
			}
			s.SetContent(startX+i, y, ch, nil, tcell.StyleDefault.Foreground(color).Bold(true))
		}
		hintStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
		for i, ch := range hint {
			s.SetContent((width-len(hint))/2+i, y+2, ch, nil, hintStyle)
		}
		s.Show()
		time.Sleep(delay)
	}

	for {
		switch s.PollEvent().(type) {
		case *tcell.EventKey, nil:
			return
		case *tcell.EventResize:
			s.Sync()
		}
	}
}
