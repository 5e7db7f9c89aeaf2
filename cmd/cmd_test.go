package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the command tree with an empty config directory and returns
// stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("GRIDCALC_CONFIG_DIR", t.TempDir())
	t.Setenv("GRIDCALC_DEBUG", "")

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestEval(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "data.csv", "1,10\n2,20\n3,30\n")
	prices := writeFile(t, dir, "prices.csv", "4.5\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no equals sign", []string{"eval", "1+2"}, "3\n"},
		{"range over file", []string{"eval", "=SUM(A1:A3)", "--file", data}, "6\n"},
		{"criteria", []string{"eval", `=SUMIF(B1:B3, ">15")`, "-f", data}, "50\n"},
		{"other sheet", []string{"eval", "=prices!A1*A2", "-f", data, "-f", prices}, "9\n"},
		{"sheet flag", []string{"eval", "=A1*2", "-f", data, "-f", prices, "--sheet", "PRICES"}, "9\n"},
		{"at", []string{"eval", "=ROW()*10+COLUMN()", "--at", "B2"}, "22\n"},
		{"format", []string{"eval", "=1/3", "--format", "0.00"}, "0.33\n"},
		{"divide by zero", []string{"eval", "=1/0"}, "#DIV/0!\n"},
		{"text", []string{"eval", `=CONCATENATE("a", "b")`}, "ab\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestEvalErrors(t *testing.T) {
	out, _, err := execute(t, "eval", "=NOSUCHFN(1)")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Error: function not supported: NOSUCHFN"), out)

	out, _, err = execute(t, "eval", "=1+", "--strict")
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "got %v", err)
	assert.Equal(t, 2, exitErr.Code)
	assert.True(t, strings.HasPrefix(out, "Error: "), out)

	_, _, err = execute(t, "eval", "1", "--at", "1A")
	assert.ErrorContains(t, err, `invalid cell "1A"`)

	_, _, err = execute(t, "eval", "1", "--sheet", "Missing")
	assert.ErrorContains(t, err, `no sheet "Missing"`)

	_, _, err = execute(t, "eval", "1", "--file", filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)

	_, _, err = execute(t, "eval", "1", "--encoding", "utf-16")
	assert.ErrorContains(t, err, "unsupported encoding")
}

func TestEvalUsesConfiguredDefaultSheet(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "1\n")
	b := writeFile(t, dir, "b.csv", "2\n")

	cfgDir := t.TempDir()
	writeFile(t, cfgDir, "config.yaml", "default_sheet: b\n")
	t.Setenv("GRIDCALC_DEBUG", "")
	t.Setenv("GRIDCALC_CONFIG_DIR", cfgDir)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"eval", "=A1", "-f", a, "-f", b})
	require.NoError(t, root.Execute())
	assert.Equal(t, "2\n", out.String())
}

func TestCalc(t *testing.T) {
	dir := t.TempDir()
	budget := writeFile(t, dir, "budget.csv", "item,cost\nrent,500\nfood,=B2*0.5\ntotal,=SUM(B2:B3)\n,=1/0\n")

	out, _, err := execute(t, "calc", budget)
	require.NoError(t, err)
	assert.Equal(t, "item,cost\nrent,500\nfood,250\ntotal,750\n,#DIV/0!\n", out)

	target := filepath.Join(dir, "computed.csv")
	out, stderr, err := execute(t, "calc", budget, "--out", target)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "wrote computed sheet")
	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "item,cost\nrent,500\nfood,250\ntotal,750\n,#DIV/0!\n", string(raw))

	src, err := os.ReadFile(budget)
	require.NoError(t, err)
	assert.Contains(t, string(src), "=SUM(B2:B3)")
}

func TestCalcWithReferencedSheet(t *testing.T) {
	dir := t.TempDir()
	rates := writeFile(t, dir, "rates.csv", "0.2\n")
	summary := writeFile(t, dir, "summary.csv", "100,=A1*rates!A1\n")

	out, _, err := execute(t, "calc", summary, "--with", rates)
	require.NoError(t, err)
	assert.Equal(t, "100,20\n", out)
}

func TestCalcStrict(t *testing.T) {
	dir := t.TempDir()
	sheet := writeFile(t, dir, "bad.csv", "=A1+1,=NOPE()\n")

	out, stderr, err := execute(t, "calc", sheet, "--strict")
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "got %v", err)
	assert.Equal(t, 2, exitErr.Code)
	assert.True(t, strings.HasPrefix(out, "Error: circular reference"), out)
	assert.Contains(t, stderr, "formula failed")
	assert.Contains(t, stderr, "cell=A1")
	assert.Contains(t, stderr, "cell=B1")
}

func TestRefs(t *testing.T) {
	out, _, err := execute(t, "refs", "=SUM(A1:B2, Data!C3) + data!c3")
	require.NoError(t, err)
	assert.Equal(t, "A1:B2\nData!C3\n", out)

	out, _, err = execute(t, "refs", "--json", "=A1+$B$2")
	require.NoError(t, err)
	assert.JSONEq(t, `["A1", "$B$2"]`, out)

	out, _, err = execute(t, "refs", "--json", "=1+2")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestFuncs(t *testing.T) {
	out, _, err := execute(t, "funcs", "--filter", "sumif")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"SUMIF", "statistics", "2..3"}, strings.Fields(lines[0]))
	assert.Equal(t, "SUMIFS", strings.Fields(lines[1])[0])

	out, _, err = execute(t, "funcs", "--json", "--filter", "VLOOKUP")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "VLOOKUP"`)

	_, _, err = execute(t, "funcs", "--filter", "zzzz")
	assert.ErrorContains(t, err, "no function matches")
}

func TestDebugLogging(t *testing.T) {
	_, stderr, err := execute(t, "refs", "=A1", "--debug")
	require.NoError(t, err)
	assert.Equal(t, "msg=\"references extracted\" count=1\n", stderr)

	_, stderr, err = execute(t, "refs", "=A1")
	require.NoError(t, err)
	assert.Empty(t, stderr)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, false).Debug("hidden")
	newLogger(&buf, false).Info("shown", "sheet", "Sheet1")
	assert.Equal(t, "msg=shown sheet=Sheet1\n", buf.String())
}

func TestConfigSet(t *testing.T) {
	cfgDir := t.TempDir()
	run := func(args ...string) (string, string, error) {
		t.Setenv("GRIDCALC_DEBUG", "")
		t.Setenv("GRIDCALC_CONFIG_DIR", cfgDir)
		root := newRootCmd()
		var out, errOut bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&errOut)
		root.SetArgs(args)
		err := root.Execute()
		return out.String(), errOut.String(), err
	}

	out, _, err := run("config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfgDir, "config.yaml")+"\n", out)

	_, stderr, err := run("config", "set", "default_sheet", "b")
	require.NoError(t, err)
	assert.Equal(t, "set default_sheet = b\n", stderr)

	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "1\n")
	b := writeFile(t, dir, "b.csv", "2\n")
	out, _, err = run("eval", "=A1", "-f", a, "-f", b)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, _, err = run("config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "default_sheet: b\n")

	_, _, err = run("config", "set", "encoding", "utf-16")
	assert.ErrorContains(t, err, "unsupported encoding")
	_, _, err = run("config", "set", "cache_size", "-1")
	assert.ErrorContains(t, err, "positive integer")
	_, _, err = run("config", "set", "theme", "dark")
	assert.ErrorContains(t, err, `unknown key "theme"`)
}

func TestConfigRepairsBrokenFile(t *testing.T) {
	cfgDir := t.TempDir()
	writeFile(t, cfgDir, "config.yaml", "encoding: ebcdic\n")
	t.Setenv("GRIDCALC_DEBUG", "")
	t.Setenv("GRIDCALC_CONFIG_DIR", cfgDir)

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"refs", "=A1"})
	assert.ErrorContains(t, root.Execute(), "unsupported encoding")

	root = newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"config", "set", "encoding", "latin1"})
	require.NoError(t, root.Execute())

	raw, err := os.ReadFile(filepath.Join(cfgDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "encoding: latin1")
}
