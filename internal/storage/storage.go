// Package storage reads and writes sheets as CSV files.
package storage

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"gridcalc/internal/grid"
)

// Encoding names the byte encoding of CSV files on disk.
type Encoding string

const (
	UTF8   Encoding = "utf-8"
	Latin1 Encoding = "latin1"
)

// ParseEncoding accepts the usual spellings of the supported encodings.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return UTF8, nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return Latin1, nil
	}
	return "", fmt.Errorf("unsupported encoding %q", name)
}

func (e Encoding) reader(r io.Reader) io.Reader {
	if e == Latin1 {
		return charmap.ISO8859_1.NewDecoder().Reader(r)
	}
	return r
}

func (e Encoding) writer(w io.Writer) io.WriteCloser {
	if e == Latin1 {
		return transform.NewWriter(w, charmap.ISO8859_1.NewEncoder())
	}
	return nopCloser{w}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// SheetName derives a sheet name from a file path: the base name without
// its extension.
func SheetName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Records lays the sheet out as CSV rows up to its used bounds. value maps
// each cell to its output text; nil writes the raw cell text.
func Records(s *grid.Sheet, value func(row, col int) string) [][]string {
	maxR, maxC := s.Bounds()
	if maxR < 0 || maxC < 0 {
		return nil
	}
	if value == nil {
		value = s.Get
	}
	out := make([][]string, maxR+1)
	for r := 0; r <= maxR; r++ {
		row := make([]string, maxC+1)
		for c := 0; c <= maxC; c++ {
			row[c] = value(r, c)
		}
		out[r] = row
	}
	return out
}

// WriteCSV writes records to w in the given encoding.
func WriteCSV(w io.Writer, records [][]string, enc Encoding) error {
	ew := enc.writer(w)
	if err := csv.NewWriter(ew).WriteAll(records); err != nil {
		return fmt.Errorf("error writing CSV: %w", err)
	}
	return ew.Close()
}

// SaveCSV writes the raw cell texts of s to filename.
func SaveCSV(s *grid.Sheet, filename string, enc Encoding) error {
	return SaveRecords(Records(s, nil), filename, enc)
}

// SaveRecords writes records to filename, creating or truncating it.
func SaveRecords(records [][]string, filename string, enc Encoding) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, records, enc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCSV parses CSV from r into a sheet called name. Ragged rows are
// accepted.
func ReadCSV(r io.Reader, name string, enc Encoding) (*grid.Sheet, error) {
	cr := csv.NewReader(bufio.NewReader(enc.reader(r)))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	s := grid.NewSheet(name)
	for rIdx, row := range records {
		for cIdx, val := range row {
			s.Set(rIdx, cIdx, val)
		}
	}
	return s, nil
}

// LoadCSV loads filename into a new sheet named after the file.
func LoadCSV(filename string, enc Encoding) (*grid.Sheet, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := ReadCSV(f, SheetName(filename), enc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return s, nil
}

// LoadWorkbook loads each file as one sheet, in order. The first file's
// sheet is active. Two files with the same base name are an error since
// formulas could not tell their sheets apart.
func LoadWorkbook(filenames []string, enc Encoding) (*grid.Workbook, error) {
	if len(filenames) == 0 {
		return grid.NewWorkbook(), nil
	}
	wb := &grid.Workbook{}
	for _, name := range filenames {
		s, err := LoadCSV(name, enc)
		if err != nil {
			return nil, err
		}
		if _, dup := wb.Sheet(s.Name); dup {
			return nil, fmt.Errorf("duplicate sheet name %q from %s", s.Name, name)
		}
		wb.Sheets = append(wb.Sheets, s)
	}
	return wb, nil
}
