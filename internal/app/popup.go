package app

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

const maxPopupInput = 4096

// popup is a one-line modal input box.
type popup struct {
	prompt string
	buf    []rune
	pos    int
}

// PopupInput shows a modal input box over the grid, prefilled with
// initial. It returns the text and true on Enter, or "" and false on Esc.
// File changes arriving meanwhile are applied before the box is redrawn.
func (a *App) PopupInput(s tcell.Screen, prompt, initial string) (string, bool) {
	p := &popup{prompt: prompt, buf: []rune(initial)}
	p.pos = len(p.buf)

	redraw := func() {
		a.Draw(s)
		p.draw(s)
		s.Show()
	}
	redraw()
	defer func() {
		s.HideCursor()
		a.Draw(s)
	}()

	for {
		switch ev := s.PollEvent().(type) {
		case nil:
			return "", false
		case *tcell.EventKey:
			if done, ok := p.handleKey(ev); done {
				if ok {
					return string(p.buf), true
				}
				return "", false
			}
		case *tcell.EventResize:
			s.Sync()
		case *fileChangedEvent:
			a.Reload(ev.path)
		}
		redraw()
	}
}

// handleKey edits the buffer. done reports that the box should close,
// ok that the input was accepted.
func (p *popup) handleKey(ev *tcell.EventKey) (done, ok bool) {
	switch ev.Key() {
	case tcell.KeyEsc:
		return true, false
	case tcell.KeyEnter:
		return true, true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if p.pos > 0 {
			p.buf = append(p.buf[:p.pos-1], p.buf[p.pos:]...)
			p.pos--
		}
	case tcell.KeyDelete:
		if p.pos < len(p.buf) {
			p.buf = append(p.buf[:p.pos], p.buf[p.pos+1:]...)
		}
	case tcell.KeyLeft:
		if p.pos > 0 {
			p.pos--
		}
	case tcell.KeyRight:
		if p.pos < len(p.buf) {
			p.pos++
		}
	case tcell.KeyHome:
		p.pos = 0
	case tcell.KeyEnd:
		p.pos = len(p.buf)
	case tcell.KeyRune:
		if len(p.buf) < maxPopupInput {
			p.buf = append(p.buf[:p.pos], append([]rune{ev.Rune()}, p.buf[p.pos:]...)...)
			p.pos++
		}
	}
	return false, false
}

func (p *popup) draw(s tcell.Screen) {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorReset)
	w, h := s.Size()
	promptW := runewidth.StringWidth(p.prompt)

	contentW := max(20, promptW+len(p.buf)+2)
	contentW = max(min(contentW, w-4), 1)
	boxW := contentW + 4
	boxH := 3
	left := (w - boxW) / 2
	top := (h - boxH) / 2

	for y := top; y < top+boxH; y++ {
		for x := left; x < left+boxW; x++ {
			s.SetContent(x, y, ' ', nil, style)
		}
	}
	drawFrame(s, left, top, boxW, boxH, style)

	x := left + 2
	y := top + 1
	for _, r := range p.prompt {
		s.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
	if promptW > 0 {
		x++
	}

	// scroll the field so the cursor stays visible
	field := max(boxW-4-promptW-1, 1)
	start := 0
	if p.pos > field {
		start = p.pos - field
	}
	visible := p.buf[start:min(len(p.buf), start+field)]
	for i := 0; i < field; i++ {
		r := ' '
		if i < len(visible) {
			r = visible[i]
		}
		s.SetContent(x+i, y, r, nil, style)
	}
	s.ShowCursor(x+p.pos-start, y)
}
