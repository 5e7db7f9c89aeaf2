package calc

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// serialEpoch anchors automation dates: serial 0 is 1899-12-30 00:00.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

const msPerDay = 86400000

// ToSerial converts the wall-clock fields of t to a day count since the epoch.
func ToSerial(t time.Time) float64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return float64(wall.UnixMilli()-serialEpoch.UnixMilli()) / msPerDay
}

// FromSerial is the inverse of ToSerial at millisecond precision.
func FromSerial(serial float64) time.Time {
	ms := int64(math.Round(serial * msPerDay))
	return time.UnixMilli(serialEpoch.UnixMilli() + ms).UTC()
}

// toNumber applies the spreadsheet numeric coercion: booleans become 1/0,
// dates their serial, text is parsed (NaN on failure) and blanks are 0.
func toNumber(v any) (float64, error) {
	switch t := Unwrap(v).(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case time.Time:
		return ToSerial(t), nil
	case string:
		if t == "" {
			return 0, nil
		}
		if n, ok := parseNumber(t); ok {
			return n, nil
		}
		return math.NaN(), nil
	}
	return 0, convErr("cannot convert %s to a number", describe(v))
}

// parseNumber parses numeric text, accepting a trailing percent sign.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "nNxX_") {
		return 0, false
	}
	scale := 1.0
	if strings.HasSuffix(s, "%") {
		s = strings.TrimSpace(s[:len(s)-1])
		scale = 100
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n / scale, true
}

func toBool(v any) (bool, error) {
	switch t := Unwrap(v).(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case float64:
		return t != 0, nil
	case int:
		return t != 0, nil
	case time.Time:
		return ToSerial(t) != 0, nil
	case string:
		switch strings.ToUpper(strings.TrimSpace(t)) {
		case "TRUE":
			return true, nil
		case "FALSE", "":
			return false, nil
		}
		if n, ok := parseNumber(t); ok {
			return n != 0, nil
		}
	}
	return false, convErr("cannot convert %s to a boolean", describe(v))
}

func toDate(v any) (time.Time, error) {
	switch t := Unwrap(v).(type) {
	case time.Time:
		return t, nil
	case float64:
		return FromSerial(t), nil
	case int:
		return FromSerial(float64(t)), nil
	case nil:
		return serialEpoch, nil
	case string:
		if d, ok := parseDateText(strings.TrimSpace(t)); ok {
			return d, nil
		}
		if n, ok := parseNumber(t); ok {
			return FromSerial(n), nil
		}
	}
	return time.Time{}, convErr("cannot convert %s to a date", describe(v))
}

func toText(v any) string {
	switch t := Unwrap(v).(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return formatGeneral(t)
	case int:
		return strconv.Itoa(t)
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return Format(t, "m/d/yyyy")
		}
		return Format(t, "m/d/yyyy h:mm:ss")
	case Reference:
		return t.String()
	}
	return ""
}

func formatGeneral(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	}
	abs := math.Abs(n)
	if abs != 0 && (abs >= 1e21 || abs < 1e-7) {
		return strconv.FormatFloat(n, 'e', -1, 64)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// isBlank reports whether a cell value counts as empty.
func isBlank(v any) bool {
	switch t := Unwrap(v).(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}

// isNumeric reports whether v is already a number-like value (number,
// date or numeric text), the set aggregate functions include.
func isNumeric(v any) bool {
	switch t := Unwrap(v).(type) {
	case float64, int, time.Time:
		return true
	case string:
		_, ok := parseNumber(t)
		return ok
	}
	return false
}
