package app

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridcalc/internal/calc"
	"gridcalc/internal/grid"
)

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("")
	require.NoError(t, s.Init())
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

// screenLine returns row y of the simulated screen with trailing blanks
// removed.
func screenLine(s tcell.SimulationScreen, y int) string {
	cells, w, _ := s.GetContents()
	var sb strings.Builder
	for x := 0; x < w; x++ {
		c := cells[y*w+x]
		if len(c.Runes) == 0 {
			sb.WriteByte(' ')
			continue
		}
		sb.WriteRune(c.Runes[0])
	}
	return strings.TrimRight(sb.String(), " ")
}

func newTestApp(t *testing.T, cells map[string]string) *App {
	t.Helper()
	wb := grid.NewWorkbook("Sheet1", "Data")
	for name, text := range cells {
		sheet := wb.Sheets[0]
		if sheetName, cell, ok := strings.Cut(name, "!"); ok {
			sheet, _ = wb.Sheet(sheetName)
			name = cell
		}
		require.True(t, sheet.SetName(name, text), name)
	}
	return NewApp(Options{Workbook: wb, ColumnWidth: 10})
}

func key(k tcell.Key) *tcell.EventKey { return tcell.NewEventKey(k, 0, tcell.ModNone) }

func runeKey(r rune) *tcell.EventKey { return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone) }

func TestDisplayValue(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{3.0, "3"},
		{0.1 + 0.2, "0.30000000000000004"},
		{math.Inf(1), "#DIV/0!"},
		{math.Inf(-1), "#DIV/0!"},
		{math.NaN(), "#VALUE!"},
		{calc.Formatted{Value: 2.5, Format: "0.00"}, "2.50"},
		{calc.Formatted{Value: math.Inf(1), Format: "0.00"}, "#DIV/0!"},
		{time.Date(2021, 3, 5, 0, 0, 0, 0, time.UTC), "3/5/2021"},
		{true, "TRUE"},
		{nil, ""},
		{"Error: boom", "Error: boom"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayValue(tt.value))
	}
}

func TestGetDisplayText(t *testing.T) {
	a := newTestApp(t, map[string]string{
		"A1":      "2",
		"A2":      "=A1*3",
		"A3":      "=1/0",
		"A4":      "=ROUND(2.5,1)",
		"A5":      "=FOO()",
		"A6":      "plain",
		"A7":      "=Data!A1+1",
		"Data!A1": "41",
	})
	assert.Equal(t, "2", a.GetDisplayText(0, 0))
	assert.Equal(t, "6", a.GetDisplayText(1, 0))
	assert.Equal(t, "#DIV/0!", a.GetDisplayText(2, 0))
	assert.Equal(t, "2.5", a.GetDisplayText(3, 0))
	assert.True(t, strings.HasPrefix(a.GetDisplayText(4, 0), "Error: function not supported: FOO"))
	assert.Equal(t, "plain", a.GetDisplayText(5, 0))
	assert.Equal(t, "42", a.GetDisplayText(6, 0))
	assert.Equal(t, "", a.GetDisplayText(9, 9))
}

func TestEditCommitsAndClearsCache(t *testing.T) {
	s := newScreen(t, 80, 24)
	a := newTestApp(t, map[string]string{"A1": "2", "B1": "=A1*3"})
	assert.Equal(t, "6", a.GetDisplayText(0, 1))
	require.Positive(t, a.Engine.Cache().Len())

	a.HandleKeyEvent(s, key(tcell.KeyEnter))
	require.Equal(t, "insert", a.Mode)
	assert.Equal(t, "2", a.InputBuf)
	for _, r := range "10" {
		a.HandleKeyEvent(s, runeKey(r))
	}
	assert.Equal(t, "10", a.InputBuf)
	a.HandleKeyEvent(s, key(tcell.KeyEnter))

	assert.Equal(t, "normal", a.Mode)
	assert.Equal(t, 0, a.Engine.Cache().Len())
	assert.Equal(t, "10", a.Sheet().Get(0, 0))
	assert.Equal(t, 1, a.CurRow)
	assert.Equal(t, "30", a.GetDisplayText(0, 1))
}

func TestEditEscapeDiscards(t *testing.T) {
	s := newScreen(t, 80, 24)
	a := newTestApp(t, map[string]string{"A1": "keep"})
	a.HandleKeyEvent(s, runeKey('i'))
	a.HandleKeyEvent(s, key(tcell.KeyBackspace2))
	assert.Equal(t, "", a.InputBuf)
	a.HandleKeyEvent(s, runeKey('x'))
	a.HandleKeyEvent(s, key(tcell.KeyEsc))
	assert.Equal(t, "keep", a.Sheet().Get(0, 0))
	assert.Equal(t, "normal", a.Mode)
}

func TestStructuralEdits(t *testing.T) {
	s := newScreen(t, 80, 24)
	a := newTestApp(t, map[string]string{"A1": "1", "A2": "=A1+1", "B3": "x"})
	assert.Equal(t, "2", a.GetDisplayText(1, 0))

	// F2 inserts below the cursor
	a.HandleKeyEvent(s, key(tcell.KeyF2))
	assert.Equal(t, "=A1+1", a.Sheet().Get(2, 0))
	assert.Equal(t, "", a.Sheet().Get(1, 0))

	// deleting row 1 moves the formula into A1, where it reads itself
	a.HandleKeyEvent(s, key(tcell.KeyF4))
	a.HandleKeyEvent(s, key(tcell.KeyF4))
	assert.Equal(t, "=A1+1", a.Sheet().Get(0, 0))
	assert.True(t, strings.HasPrefix(a.GetDisplayText(0, 0), "Error: circular reference"), a.GetDisplayText(0, 0))

	rows := len(a.RowHeights)
	a.HandleKeyEvent(s, key(tcell.KeyF3))
	assert.Equal(t, "", a.Sheet().Get(1, 1))
	assert.Equal(t, "x", a.Sheet().Get(1, 2))
	a.CurCol = 1
	a.HandleKeyEvent(s, key(tcell.KeyF5))
	assert.Equal(t, "x", a.Sheet().Get(1, 1))
	assert.Equal(t, rows, len(a.RowHeights))
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	a := newTestApp(t, map[string]string{"A1": "1", "A2": "=A1*2", "Data!A1": "7"})

	a.ExecuteCommand("cw 12")
	for _, w := range a.ColWidths {
		assert.Equal(t, 12, w)
	}
	a.ExecuteCommand("w")
	assert.Equal(t, "no file name", a.Message)

	out := filepath.Join(dir, "book")
	a.ExecuteCommand("w " + out)
	assert.Equal(t, "wrote "+out+".csv", a.Message)
	raw, err := os.ReadFile(out + ".csv")
	require.NoError(t, err)
	assert.Equal(t, "1\n=A1*2\n", string(raw))

	a.ExecuteCommand("sheet data")
	assert.Equal(t, "Data", a.Sheet().Name)
	assert.Equal(t, "7", a.GetDisplayText(0, 0))
	a.ExecuteCommand("sheet nope")
	assert.Equal(t, "no sheet nope", a.Message)
	a.ExecuteCommand("sheet")
	assert.Equal(t, "sheets: Sheet1, Data", a.Message)

	a.ExecuteCommand("o " + out)
	assert.Equal(t, "book", a.Sheet().Name)
	assert.Equal(t, "2", a.GetDisplayText(1, 0))
	assert.Len(t, a.Book.Sheets, 3)

	a.ExecuteCommand("bogus")
	assert.Equal(t, "unknown command: bogus", a.Message)
	a.ExecuteCommand("q")
	assert.True(t, a.Quit)
}

func TestHideRows(t *testing.T) {
	s := newScreen(t, 80, 24)
	a := newTestApp(t, map[string]string{"A1": "1", "A2": "2", "A3": "3", "A5": "=SUBTOTAL(109,A1:A3)"})
	assert.Equal(t, "6", a.GetDisplayText(4, 0))

	a.ExecuteCommand("hide 2")
	assert.Equal(t, "hid row 2", a.Message)
	assert.Equal(t, "4", a.GetDisplayText(4, 0))
	a.ExecuteCommand("unhide 2")
	assert.Equal(t, "unhid row 2", a.Message)
	assert.Equal(t, "6", a.GetDisplayText(4, 0))

	a.ExecuteCommand("hide")
	assert.Equal(t, "hid row 1", a.Message)
	assert.Equal(t, "5", a.GetDisplayText(4, 0))

	a.ExecuteCommand("hide 0")
	assert.Equal(t, "invalid row: 0", a.Message)
	a.ExecuteCommand("unhide x")
	assert.Equal(t, "invalid row: x", a.Message)
	assert.Equal(t, map[int]bool{0: true}, a.Sheet().Hidden)

	// the mark follows its row through F2 and F4
	a.ExecuteCommand("hide 3")
	a.CurRow = 1
	a.HandleKeyEvent(s, key(tcell.KeyF2))
	assert.Equal(t, map[int]bool{0: true, 3: true}, a.Sheet().Hidden)
	a.CurRow = 0
	a.HandleKeyEvent(s, key(tcell.KeyF4))
	assert.Equal(t, map[int]bool{2: true}, a.Sheet().Hidden)
}

func TestReloadReplacesSheet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.csv")
	require.NoError(t, os.WriteFile(path, []byte("1,=A1*10\n"), 0o644))

	a := newTestApp(t, nil)
	a.Open(path)
	require.Equal(t, "live", a.Sheet().Name)
	assert.Equal(t, "10", a.GetDisplayText(0, 1))

	require.NoError(t, os.WriteFile(path, []byte("3,=A1*10\n,,x\n"), 0o644))
	ev := &fileChangedEvent{path: path}
	a.HandleEvent(nil, ev)
	assert.Equal(t, "30", a.GetDisplayText(0, 1))
	assert.Equal(t, "reloaded live.csv", a.Message)
	assert.GreaterOrEqual(t, len(a.ColWidths), 3)

	// untracked files are ignored
	a.Reload(filepath.Join(dir, "other.csv"))
	assert.Equal(t, "reloaded live.csv", a.Message)
}

func TestDrawShowsEvaluatedCells(t *testing.T) {
	s := newScreen(t, 60, 8)
	a := newTestApp(t, map[string]string{"A1": "5", "B1": "=SUM(A1,A1)", "C1": "a very long piece of text"})
	a.Draw(s)

	header := screenLine(s, 0)
	assert.Contains(t, header, "A")
	assert.Contains(t, header, "C")
	row := screenLine(s, 1)
	assert.True(t, strings.HasPrefix(row, "1"), row)
	assert.Contains(t, row, "5")
	assert.Contains(t, row, "10")
	assert.Contains(t, row, "a very l")
	assert.NotContains(t, row, "long piece")

	a.CurCol = 1
	a.Draw(s)
	assert.Contains(t, screenLine(s, 6), "Cell:B1")
	assert.Equal(t, "=SUM(A1,A1)   refs: A1", screenLine(s, 7))
}

func TestPopupInput(t *testing.T) {
	s := newScreen(t, 60, 10)
	a := newTestApp(t, map[string]string{"A1": "4"})
	a.CurCol = 1
	for _, r := range "A1*2" {
		s.InjectKey(tcell.KeyRune, r, tcell.ModNone)
	}
	s.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)

	a.HandleKeyEvent(s, runeKey('='))
	assert.Equal(t, "=A1*2", a.Sheet().Get(0, 1))
	assert.Equal(t, "8", a.GetDisplayText(0, 1))

	s.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	s.InjectKey(tcell.KeyEsc, 0, tcell.ModNone)
	got, ok := a.PopupInput(s, ":", "")
	assert.False(t, ok)
	assert.Equal(t, "", got)
}

func TestPopupEditing(t *testing.T) {
	p := &popup{buf: []rune("abc"), pos: 3}
	p.handleKey(key(tcell.KeyLeft))
	p.handleKey(key(tcell.KeyBackspace2))
	p.handleKey(runeKey('X'))
	p.handleKey(key(tcell.KeyHome))
	p.handleKey(key(tcell.KeyDelete))
	assert.Equal(t, "Xc", string(p.buf))
	done, ok := p.handleKey(key(tcell.KeyEnter))
	assert.True(t, done)
	assert.True(t, ok)
}

func TestClipAndWrap(t *testing.T) {
	assert.Equal(t, "abc", clip("abcdef", 3))
	assert.Equal(t, "日本", clip("日本語", 5))
	assert.Equal(t, []string{"one two", "three"}, wrapText("one two three", 8))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, wrapText("abcdefghij", 4))
	assert.Equal(t, []string{"a", "", "b"}, wrapText("a\n\nb", 10))
}

func TestSplash(t *testing.T) {
	s := newScreen(t, 40, 10)
	s.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	Splash(s, 0)
	assert.Equal(t, "               GRID=CALC", screenLine(s, 5))
}
