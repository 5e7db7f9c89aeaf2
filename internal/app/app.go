package app

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"gridcalc/internal/calc"
	"gridcalc/internal/grid"
	"gridcalc/internal/storage"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// Options configures NewApp. Zero values select defaults.
type Options struct {
	Workbook *grid.Workbook
	// Files maps sheet names to the CSV files they were loaded from.
	Files       map[string]string
	Encoding    storage.Encoding
	CacheSize   int
	ColumnWidth int
	Logger      *slog.Logger
}

type App struct {
	// layout
	LeftGutter    int
	StatusLines   int
	DefaultWidth  int
	DefaultHeight int

	CellPadding int

	ColWidths  []int
	RowHeights []int

	// sheets and the engine evaluating them
	Book     *grid.Workbook
	Engine   *calc.Engine
	Encoding storage.Encoding
	files    map[string]string // upper-cased sheet name -> csv path

	// cursor / view
	CurRow  int
	CurCol  int
	ViewRow int
	ViewCol int

	// UI state
	Mode     string // normal | insert
	InputBuf string
	Message  string
	Quit     bool

	// editing behavior options
	EnterStartsEdit     bool
	PrintableStartsEdit bool
	MoveAfterEnter      bool
	SelectAllOnEdit     bool
	ReplaceOnNextRune   bool

	HelpVisible bool

	logger  *slog.Logger
	watcher *watcher
}

func NewApp(opts Options) *App {
	if opts.Workbook == nil {
		opts.Workbook = grid.NewWorkbook()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.ColumnWidth < 4 {
		opts.ColumnWidth = 16
	}
	if opts.Encoding == "" {
		opts.Encoding = storage.UTF8
	}
	a := &App{
		LeftGutter:      5,
		StatusLines:     2,
		DefaultWidth:    opts.ColumnWidth,
		DefaultHeight:   1,
		CellPadding:     1,
		Book:            opts.Workbook,
		Encoding:        opts.Encoding,
		files:           map[string]string{},
		Mode:            "normal",
		EnterStartsEdit: true,
		MoveAfterEnter:  true,
		SelectAllOnEdit: true,
		logger:          opts.Logger,
	}
	a.Engine = calc.New(a.Book, calc.Options{CacheSize: opts.CacheSize, Logger: opts.Logger})
	for name, path := range opts.Files {
		a.files[strings.ToUpper(name)] = path
	}
	for i := 0; i < 8; i++ {
		a.ColWidths = append(a.ColWidths, a.DefaultWidth)
		a.RowHeights = append(a.RowHeights, a.DefaultHeight)
	}
	a.growToFit(a.Book.ActiveSheet())
	return a
}

// Sheet returns the sheet being displayed.
func (a *App) Sheet() *grid.Sheet {
	return a.Book.ActiveSheet()
}

// SetCell stores text in the active sheet and drops cached parses, since
// any formula may now resolve differently.
func (a *App) SetCell(row, col int, text string) {
	a.EnsureColExists(col)
	a.EnsureRowExists(row)
	a.Sheet().Set(row, col, text)
	a.Engine.ClearExpressionCache()
}

// ----------------------------- Events / Input -----------------------------

// HandleEvent dispatches one screen event.
func (a *App) HandleEvent(s tcell.Screen, ev tcell.Event) {
	switch tev := ev.(type) {
	case *tcell.EventKey:
		a.HandleKeyEvent(s, tev)
	case *tcell.EventResize:
		s.Sync()
	case *fileChangedEvent:
		a.Reload(tev.path)
	case nil:
		// the screen was finalized
		a.Quit = true
	}
}

func (a *App) HandleKeyEvent(s tcell.Screen, ev *tcell.EventKey) {
	if a.Mode == "insert" {
		a.handleInsertKey(ev)
		return
	}

	if a.HelpVisible {
		if ev.Key() == tcell.KeyEsc || ev.Rune() == '?' {
			a.HelpVisible = false
		}
		return
	}

	mod := ev.Modifiers()
	switch ev.Key() {
	case tcell.KeyEsc:
		a.Message = ""
	case tcell.KeyCtrlC:
		a.Quit = true
	case tcell.KeyUp:
		if mod&tcell.ModCtrl != 0 {
			if a.CurRow < len(a.RowHeights) && a.RowHeights[a.CurRow] > 1 {
				a.RowHeights[a.CurRow]--
			}
		} else if a.CurRow > 0 {
			a.CurRow--
		}
	case tcell.KeyDown:
		if mod&tcell.ModCtrl != 0 {
			if a.CurRow < len(a.RowHeights) {
				a.RowHeights[a.CurRow]++
			}
		} else {
			a.CurRow++
			a.EnsureRowExists(a.CurRow)
		}
	case tcell.KeyLeft:
		if mod&tcell.ModCtrl != 0 {
			if a.CurCol < len(a.ColWidths) && a.ColWidths[a.CurCol] > 4 {
				a.ColWidths[a.CurCol]--
			}
		} else if a.CurCol > 0 {
			a.CurCol--
		}
	case tcell.KeyRight:
		if mod&tcell.ModCtrl != 0 {
			if a.CurCol < len(a.ColWidths) {
				a.ColWidths[a.CurCol]++
			}
		} else {
			a.CurCol++
			a.EnsureColExists(a.CurCol)
		}
	case tcell.KeyPgUp:
		vr, _ := a.ComputeVisible(s)
		a.ViewRow = max(0, a.ViewRow-vr)
		a.CurRow = max(0, a.CurRow-vr)
	case tcell.KeyPgDn:
		vr, _ := a.ComputeVisible(s)
		a.CurRow += vr
		a.EnsureRowExists(a.CurRow)
	case tcell.KeyHome:
		a.CurRow, a.CurCol = 0, 0
		a.ViewRow, a.ViewCol = 0, 0
	case tcell.KeyEnd:
		maxR, maxC := a.Sheet().Bounds()
		a.CurRow, a.CurCol = max(0, maxR), max(0, maxC)
	case tcell.KeyDelete:
		a.SetCell(a.CurRow, a.CurCol, "")
	case tcell.KeyF2:
		a.InsertRow(a.CurRow + 1)
	case tcell.KeyF3:
		a.InsertCol(a.CurCol + 1)
	case tcell.KeyF4:
		a.DeleteRow(a.CurRow)
	case tcell.KeyF5:
		a.DeleteCol(a.CurCol)
	case tcell.KeyEnter:
		if a.EnterStartsEdit {
			a.startEdit()
		}
	case tcell.KeyRune:
		a.handleNormalRune(s, ev.Rune())
	}
}

func (a *App) handleInsertKey(ev *tcell.EventKey) {
	mod := ev.Modifiers()
	switch ev.Key() {
	case tcell.KeyEsc:
		a.Mode = "normal"
		a.InputBuf = ""
		a.ReplaceOnNextRune = false
	case tcell.KeyEnter:
		// Shift+Enter or Alt+Enter inserts a newline into the cell
		if mod&(tcell.ModShift|tcell.ModAlt) != 0 {
			a.InputBuf += "\n"
			return
		}
		a.SetCell(a.CurRow, a.CurCol, a.InputBuf)
		a.Mode = "normal"
		a.InputBuf = ""
		a.ReplaceOnNextRune = false
		// Ctrl+Enter saves and stays
		if mod&tcell.ModCtrl == 0 && a.MoveAfterEnter {
			a.CurRow++
			a.EnsureRowExists(a.CurRow)
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if a.ReplaceOnNextRune {
			a.InputBuf = ""
		} else if r := []rune(a.InputBuf); len(r) > 0 {
			a.InputBuf = string(r[:len(r)-1])
		}
		a.ReplaceOnNextRune = false
	case tcell.KeyRune:
		if a.ReplaceOnNextRune {
			a.InputBuf = string(ev.Rune())
			a.ReplaceOnNextRune = false
		} else {
			a.InputBuf += string(ev.Rune())
		}
	}
}

func (a *App) handleNormalRune(s tcell.Screen, r rune) {
	switch r {
	case 'q':
		a.Quit = true
	case 'i':
		a.startEdit()
	case ':':
		if command, ok := a.PopupInput(s, ":", ""); ok {
			a.ExecuteCommand(command)
		}
	case '=':
		if value, ok := a.PopupInput(s, "", "="); ok {
			a.SetCell(a.CurRow, a.CurCol, value)
		}
	case '?':
		a.HelpVisible = true
	default:
		if a.PrintableStartsEdit {
			a.Mode = "insert"
			a.InputBuf = string(r)
			a.ReplaceOnNextRune = false
		}
	}
}

func (a *App) startEdit() {
	a.Mode = "insert"
	a.InputBuf = a.Sheet().Get(a.CurRow, a.CurCol)
	a.ReplaceOnNextRune = a.SelectAllOnEdit
}

// ----------------------------- Structure -----------------------------

// InsertRow inserts an empty row at idx.
func (a *App) InsertRow(idx int) {
	idx = min(max(idx, 0), len(a.RowHeights))
	a.RowHeights = append(a.RowHeights[:idx], append([]int{a.DefaultHeight}, a.RowHeights[idx:]...)...)
	a.Sheet().InsertRow(idx)
	a.Engine.ClearExpressionCache()
}

// InsertCol inserts an empty column at idx.
func (a *App) InsertCol(idx int) {
	idx = min(max(idx, 0), len(a.ColWidths))
	a.ColWidths = append(a.ColWidths[:idx], append([]int{a.DefaultWidth}, a.ColWidths[idx:]...)...)
	a.Sheet().InsertCol(idx)
	a.Engine.ClearExpressionCache()
}

// DeleteRow removes row idx, keeping at least one row on screen.
func (a *App) DeleteRow(idx int) {
	if idx < 0 || idx >= len(a.RowHeights) {
		return
	}
	a.RowHeights = append(a.RowHeights[:idx], a.RowHeights[idx+1:]...)
	a.Sheet().DeleteRow(idx)
	a.Engine.ClearExpressionCache()
	a.EnsureRowExists(0)
	if a.CurRow >= len(a.RowHeights) {
		a.CurRow = len(a.RowHeights) - 1
	}
}

// DeleteCol removes column idx, keeping at least one column on screen.
func (a *App) DeleteCol(idx int) {
	if idx < 0 || idx >= len(a.ColWidths) {
		return
	}
	a.ColWidths = append(a.ColWidths[:idx], a.ColWidths[idx+1:]...)
	a.Sheet().DeleteCol(idx)
	a.Engine.ClearExpressionCache()
	a.EnsureColExists(0)
	if a.CurCol >= len(a.ColWidths) {
		a.CurCol = len(a.ColWidths) - 1
	}
}

// ----------------------------- Drawing -----------------------------

const helpText = "\n i / Enter - edit \n Ctrl+Enter - save&stay \n Shift/Alt+Enter - newline \n Del - clear cell \n : - command \n = - formula \n Ctrl←/Ctrl→ - col width \n Ctrl↑/Ctrl↓ - row height \n F2/F3 - add row/col \n F4 - delete row \n F5 - delete col \n PgUp/PgDn/Home/End - move \n :w [file] | :o file \n :sheet [name] \n :hide [row] | :unhide [row] \n "

func (a *App) Draw(s tcell.Screen) {
	s.Clear()
	w, h := s.Size()
	sheet := a.Sheet()
	a.EnsureRowExists(a.CurRow)
	a.EnsureColExists(a.CurCol)

	// header row: column names
	x := a.LeftGutter
	for c := a.ViewCol; c < len(a.ColWidths) && x < w; c++ {
		wc := a.ColWidths[c]
		hdrStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
		if c == a.CurCol {
			hdrStyle = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow)
		}
		a.printTextFixedWidth(s, x, 0, strings.Repeat(" ", a.CellPadding)+grid.ColToName(c), hdrStyle, min(wc, w-x))
		x += wc
	}

	// rows
	y := 1
	for r := a.ViewRow; r < len(a.RowHeights) && y < h-a.StatusLines; r++ {
		gutterStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
		if sheet.Hidden[r] {
			gutterStyle = tcell.StyleDefault.Foreground(tcell.ColorGray).Dim(true)
		}
		if r == a.CurRow {
			gutterStyle = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow)
		}
		a.printTextFixedWidth(s, 0, y, strconv.Itoa(r+1), gutterStyle, a.LeftGutter-1)

		hh := a.RowHeights[r]
		x = a.LeftGutter
		for c := a.ViewCol; c < len(a.ColWidths) && x < w; c++ {
			wc := a.ColWidths[c]
			dispText := a.GetDisplayText(r, c)
			if a.Mode == "insert" && r == a.CurRow && c == a.CurCol {
				dispText = a.InputBuf
			}
			lines := splitLines(dispText, hh)

			baseStyle := tcell.StyleDefault
			if r == a.CurRow && c == a.CurCol {
				baseStyle = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorLightGray)
			}

			innerX := x + a.CellPadding
			innerW := wc - 2*a.CellPadding
			for dy := 0; dy < hh && y+dy < h-a.StatusLines; dy++ {
				a.printTextFixedWidth(s, x, y+dy, "", baseStyle, min(wc, w-x))
				if innerW > 0 {
					a.printTextFixedWidth(s, innerX, y+dy, lines[dy], baseStyle, min(innerW, w-innerX))
				} else {
					a.printTextFixedWidth(s, x, y+dy, lines[dy], baseStyle, min(wc, w-x))
				}
			}
			x += wc
		}
		y += hh
	}

	// status area
	statusY := max(0, h-a.StatusLines)
	statusStyle := tcell.StyleDefault.Background(tcell.ColorGray).Foreground(tcell.ColorWhite)
	statusLeft := fmt.Sprintf("Sheet:%s  Cell:%s  Mode:%s  cw=%d rh=%d", sheet.Name,
		grid.ColRowToName(a.CurCol, a.CurRow), a.Mode, a.ColWidths[a.CurCol], a.RowHeights[a.CurRow])
	a.printTextFixedWidth(s, 0, statusY, statusLeft, statusStyle, w)
	a.printTextFixedWidth(s, 0, statusY+1, a.statusLine(), statusStyle, w)

	if a.HelpVisible {
		a.drawHelpPopup(s, helpText)
	}

	if a.Mode == "insert" {
		a.showEditCursor(s)
	} else {
		s.HideCursor()
	}
	s.Show()
}

// statusLine is the second status row: the edit buffer, a message, or the
// raw text of the current cell with the ranges its formula reads.
func (a *App) statusLine() string {
	switch {
	case a.Mode == "insert":
		return "EDIT: " + a.InputBuf
	case a.Message != "":
		return a.Message
	}
	text := a.Sheet().Get(a.CurRow, a.CurCol)
	if !strings.HasPrefix(text, "=") {
		return text
	}
	if refs := calc.References(text); len(refs) > 0 {
		return text + "   refs: " + strings.Join(refs, ", ")
	}
	return text
}

func (a *App) showEditCursor(s tcell.Screen) {
	w, h := s.Size()
	cellX := a.LeftGutter
	for cc := a.ViewCol; cc < a.CurCol && cc < len(a.ColWidths); cc++ {
		cellX += a.ColWidths[cc]
	}
	cellY := 1
	for rr := a.ViewRow; rr < a.CurRow && rr < len(a.RowHeights); rr++ {
		cellY += a.RowHeights[rr]
	}
	if a.CurCol < a.ViewCol || a.CurRow < a.ViewRow || cellX >= w || cellY >= h-a.StatusLines {
		s.HideCursor()
		return
	}

	lines := strings.Split(a.InputBuf, "\n")
	lastIdx := len(lines) - 1
	colW := a.ColWidths[a.CurCol]
	rowH := a.RowHeights[a.CurRow]
	innerW := max(colW-2*a.CellPadding, 1)
	cx := cellX + a.CellPadding + min(runewidth.StringWidth(lines[lastIdx]), innerW-1)
	cy := cellY + min(lastIdx, max(0, rowH-1))
	if cx < w && cy < h {
		s.ShowCursor(cx, cy)
	} else {
		s.HideCursor()
	}
}

// ----------------------------- Helpers -----------------------------

func (a *App) EnsureColExists(idx int) {
	for len(a.ColWidths) <= idx {
		a.ColWidths = append(a.ColWidths, a.DefaultWidth)
	}
}

func (a *App) EnsureRowExists(idx int) {
	for len(a.RowHeights) <= idx {
		a.RowHeights = append(a.RowHeights, a.DefaultHeight)
	}
}

// growToFit makes room for every used cell of s.
func (a *App) growToFit(s *grid.Sheet) {
	maxR, maxC := s.Bounds()
	a.EnsureRowExists(maxR)
	a.EnsureColExists(maxC)
}

// printTextFixedWidth fills width terminal columns at (x, y) with str,
// clipped by display width so wide runes never spill into the next cell.
func (a *App) printTextFixedWidth(s tcell.Screen, x, y int, str string, style tcell.Style, width int) {
	if width <= 0 || y < 0 {
		return
	}
	col := 0
	for _, r := range clip(str, width) {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		s.SetContent(x+col, y, r, nil, style)
		col += rw
	}
	for ; col < width; col++ {
		s.SetContent(x+col, y, ' ', nil, style)
	}
}

// clip cuts str to at most width terminal columns.
func clip(str string, width int) string {
	return runewidth.Truncate(str, width, "")
}

// splitLines returns exactly maxLines lines of text, padding with empty
// lines.
func splitLines(text string, maxLines int) []string {
	out := make([]string, max(maxLines, 0))
	for i, part := range strings.Split(text, "\n") {
		if i >= len(out) {
			break
		}
		out[i] = part
	}
	return out
}

func (a *App) drawHelpPopup(s tcell.Screen, help string) {
	w, h := s.Size()
	if w < 10 || h < 5 {
		return
	}

	padding := 2
	maxPW := w - 6
	maxPH := h - 2

	innerW := min(max(30, min(maxPW-padding*2, 50)), maxPW-padding*2)
	lines := wrapText(help, innerW)
	if len(lines) > maxPH-padding*2 {
		lines = lines[:max(0, maxPH-padding*2)]
	}
	innerH := max(len(lines), 3)

	pw := innerW + padding*2
	ph := innerH + padding*2
	left := (w - pw) / 2
	top := (h - ph) / 2

	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorDefault)
	for yy := 0; yy < ph; yy++ {
		for xx := 0; xx < pw; xx++ {
			s.SetContent(left+xx, top+yy, ' ', nil, style)
		}
	}
	drawFrame(s, left, top, pw, ph, style)

	vOffset := (ph - padding*2 - innerH) / 2
	for i, ln := range lines {
		a.printTextFixedWidth(s, left+padding, top+padding+vOffset+i, ln, style, innerW)
	}
}

func drawFrame(s tcell.Screen, left, top, w, h int, style tcell.Style) {
	for xx := 1; xx < w-1; xx++ {
		s.SetContent(left+xx, top, tcell.RuneHLine, nil, style)
		s.SetContent(left+xx, top+h-1, tcell.RuneHLine, nil, style)
	}
	for yy := 1; yy < h-1; yy++ {
		s.SetContent(left, top+yy, tcell.RuneVLine, nil, style)
		s.SetContent(left+w-1, top+yy, tcell.RuneVLine, nil, style)
	}
	s.SetContent(left, top, tcell.RuneULCorner, nil, style)
	s.SetContent(left+w-1, top, tcell.RuneURCorner, nil, style)
	s.SetContent(left, top+h-1, tcell.RuneLLCorner, nil, style)
	s.SetContent(left+w-1, top+h-1, tcell.RuneLRCorner, nil, style)
}

// wrapText breaks s into lines no wider than width columns, keeping
// blank lines between paragraphs. Words wider than a line are split.
func wrapText(s string, width int) []string {
	if width <= 2 {
		return []string{s}
	}
	var result []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			result = append(result, "")
			continue
		}
		cur := ""
		for _, word := range words {
			for runewidth.StringWidth(word) > width {
				head := runewidth.Truncate(word, width, "")
				if cur != "" {
					result = append(result, cur)
					cur = ""
				}
				result = append(result, head)
				word = word[len(head):]
			}
			switch {
			case cur == "":
				cur = word
			case runewidth.StringWidth(cur)+1+runewidth.StringWidth(word) <= width:
				cur += " " + word
			default:
				result = append(result, cur)
				cur = word
			}
		}
		if cur != "" {
			result = append(result, cur)
		}
	}
	return result
}

// ----------------------------- Commands / Storage -----------------------------

func (a *App) ExecuteCommand(cmd string) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return
	}
	a.Message = ""
	switch parts[0] {
	case "q", "quit":
		a.Quit = true
	case "cw":
		if len(parts) >= 2 {
			if v, err := strconv.Atoi(parts[1]); err == nil && v >= 4 {
				for i := range a.ColWidths {
					a.ColWidths[i] = v
				}
			}
		}
	case "rh":
		if len(parts) >= 2 {
			if v, err := strconv.Atoi(parts[1]); err == nil && v >= 1 {
				for i := range a.RowHeights {
					a.RowHeights[i] = v
				}
			}
		}
	case "w":
		var filename string
		if len(parts) >= 2 {
			filename = parts[1]
		}
		a.Save(filename)
	case "o":
		if len(parts) < 2 {
			a.Message = "usage: :o file.csv"
			return
		}
		a.Open(parts[1])
	case "hide", "unhide":
		a.setRowHidden(parts[1:], parts[0] == "hide")
	case "sheet":
		if len(parts) < 2 {
			a.Message = "sheets: " + strings.Join(a.sheetNames(), ", ")
			return
		}
		a.SwitchSheet(strings.Join(parts[1:], " "))
	default:
		a.Message = "unknown command: " + parts[0]
	}
}

// setRowHidden hides or shows the 1-based row in args, or the cursor row.
// SUBTOTAL codes 101-111 skip hidden rows.
func (a *App) setRowHidden(args []string, hidden bool) {
	row := a.CurRow
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > grid.MaxRows {
			a.Message = "invalid row: " + args[0]
			return
		}
		row = n - 1
	}
	a.Sheet().SetHidden(row, hidden)
	a.Engine.ClearExpressionCache()
	verb := "hid"
	if !hidden {
		verb = "unhid"
	}
	a.Message = fmt.Sprintf("%s row %d", verb, row+1)
}

// Save writes the active sheet as CSV. An empty filename reuses the file
// the sheet was loaded from.
func (a *App) Save(filename string) {
	sheet := a.Sheet()
	key := strings.ToUpper(sheet.Name)
	if filename == "" {
		filename = a.files[key]
	}
	if filename == "" {
		a.Message = "no file name"
		return
	}
	if filepath.Ext(filename) == "" {
		filename += ".csv"
	}
	if err := storage.SaveCSV(sheet, filename, a.Encoding); err != nil {
		a.Message = fmt.Sprintf("error saving %s: %v", filename, err)
		a.logger.Error("save failed", "file", filename, "err", err)
		return
	}
	a.files[key] = filename
	a.track(filename)
	a.Message = "wrote " + filename
}

// Open loads a CSV file as a sheet named after the file, replacing a sheet
// of the same name, and makes it active.
func (a *App) Open(filename string) {
	if filepath.Ext(filename) == "" {
		filename += ".csv"
	}
	sheet, err := storage.LoadCSV(filename, a.Encoding)
	if err != nil {
		a.Message = fmt.Sprintf("error loading %s: %v", filename, err)
		a.logger.Error("load failed", "file", filename, "err", err)
		return
	}
	a.Book.AddSheet(sheet)
	a.files[strings.ToUpper(sheet.Name)] = filename
	a.track(filename)
	a.Engine.ClearExpressionCache()
	a.SwitchSheet(sheet.Name)
}

// Reload re-reads a tracked file after it changed on disk.
func (a *App) Reload(filename string) {
	name, ok := a.sheetForFile(filename)
	if !ok {
		return
	}
	sheet, err := storage.LoadCSV(filename, a.Encoding)
	if err != nil {
		a.Message = fmt.Sprintf("error reloading %s: %v", filename, err)
		a.logger.Warn("reload failed", "file", filename, "err", err)
		return
	}
	sheet.Name = name
	if old, found := a.Book.Sheet(name); found {
		sheet.Hidden = old.Hidden
	}
	a.Book.AddSheet(sheet)
	a.Engine.ClearExpressionCache()
	if strings.EqualFold(a.Sheet().Name, name) {
		a.growToFit(sheet)
	}
	a.logger.Debug("sheet reloaded", "sheet", name, "file", filename)
	a.Message = "reloaded " + filepath.Base(filename)
}

// SwitchSheet makes the named sheet active.
func (a *App) SwitchSheet(name string) {
	for i, s := range a.Book.Sheets {
		if strings.EqualFold(s.Name, name) {
			a.Book.Active = i
			a.CurRow, a.CurCol = 0, 0
			a.ViewRow, a.ViewCol = 0, 0
			a.growToFit(s)
			return
		}
	}
	a.Message = "no sheet " + name
}

func (a *App) sheetNames() []string {
	names := make([]string, len(a.Book.Sheets))
	for i, s := range a.Book.Sheets {
		names[i] = s.Name
	}
	return names
}

func (a *App) sheetForFile(filename string) (string, bool) {
	target := absPath(filename)
	for _, s := range a.Book.Sheets {
		if p, ok := a.files[strings.ToUpper(s.Name)]; ok && absPath(p) == target {
			return s.Name, true
		}
	}
	return "", false
}

func (a *App) track(filename string) {
	if a.watcher == nil {
		return
	}
	if err := a.watcher.track(filename); err != nil {
		a.logger.Warn("cannot watch file", "file", filename, "err", err)
	}
}

// ----------------------------- Display / Formulas -----------------------------

// GetDisplayText returns what the grid shows for a cell of the active
// sheet: literal text as typed, formulas evaluated.
func (a *App) GetDisplayText(r, c int) string {
	sheet := a.Sheet()
	text := sheet.Get(r, c)
	if !strings.HasPrefix(text, "=") {
		return text
	}
	return DisplayValue(a.Engine.Evaluate(text, "", sheet.Name, r, c))
}

// ----------------------------- Viewport / Geometry -----------------------------

func (a *App) ComputeVisible(s tcell.Screen) (visibleRows, visibleCols int) {
	w, h := s.Size()
	usableW := max(w-a.LeftGutter, 1)
	usableH := max(h-a.StatusLines-1, 1)

	sumW := 0
	for c := a.ViewCol; c < len(a.ColWidths); c++ {
		if sumW+a.ColWidths[c] > usableW {
			break
		}
		sumW += a.ColWidths[c]
		visibleCols++
	}
	sumH := 0
	for r := a.ViewRow; r < len(a.RowHeights); r++ {
		if sumH+a.RowHeights[r] > usableH {
			break
		}
		sumH += a.RowHeights[r]
		visibleRows++
	}
	return max(visibleRows, 1), max(visibleCols, 1)
}

func (a *App) EnsureCursorVisible(s tcell.Screen) {
	if s == nil {
		return
	}
	a.EnsureRowExists(a.CurRow)
	a.EnsureColExists(a.CurCol)
	visibleRows, visibleCols := a.ComputeVisible(s)

	if a.CurCol < a.ViewCol {
		a.ViewCol = a.CurCol
	} else if a.CurCol >= a.ViewCol+visibleCols {
		a.ViewCol = a.CurCol - visibleCols + 1
	}
	a.ViewCol = min(max(a.ViewCol, 0), max(len(a.ColWidths)-1, 0))

	if a.CurRow < a.ViewRow {
		a.ViewRow = a.CurRow
	} else if a.CurRow >= a.ViewRow+visibleRows {
		a.ViewRow = a.CurRow - visibleRows + 1
	}
	a.ViewRow = min(max(a.ViewRow, 0), max(len(a.RowHeights)-1, 0))
}
