package calc

import (
	"math"
	"strings"
	"time"
)

func registerDate(r *Registry) {
	const cat = "date"
	r.add(cat, "NOW", now, 0, 0)
	r.add(cat, "TODAY", today, 0, 0)
	r.add(cat, "YEAR", datePart(func(t time.Time) int { return t.Year() }), 1, 1)
	r.add(cat, "MONTH", datePart(func(t time.Time) int { return int(t.Month()) }), 1, 1)
	r.add(cat, "DAY", datePart(time.Time.Day), 1, 1)
	r.add(cat, "HOUR", datePart(time.Time.Hour), 1, 1)
	r.add(cat, "MINUTE", datePart(time.Time.Minute), 1, 1)
	r.add(cat, "SECOND", datePart(time.Time.Second), 1, 1)
	r.add(cat, "WEEKDAY", weekday, 1, 2)
	r.add(cat, "DATE", date, 3, 3)
	r.add(cat, "TIME", timeOfDay, 3, 3)
	r.add(cat, "DATEDIF", dateDif, 3, 3)
}

func now(ctx *Context, _ []Expr) (any, error) {
	return Formatted{Value: wallDate(ctx.Now()), Format: "m/d/yyyy h:mm"}, nil
}

func today(ctx *Context, _ []Expr) (any, error) {
	t := ctx.Now()
	return Formatted{Value: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), Format: "m/d/yyyy"}, nil
}

// datePart extracts a field from a date or a day-count number.
func datePart(field func(time.Time) int) Func {
	return func(ctx *Context, args []Expr) (any, error) {
		t, err := ctx.Date(args[0])
		if err != nil {
			return nil, err
		}
		return float64(field(t)), nil
	}
}

// weekday numbers days by return type: 1 counts Sunday=1, 2 counts
// Monday=1 and 3 counts Monday=0.
func weekday(ctx *Context, args []Expr) (any, error) {
	t, err := ctx.Date(args[0])
	if err != nil {
		return nil, err
	}
	kind, err := optNumber(ctx, args, 1, 1)
	if err != nil {
		return nil, err
	}
	wd := int(t.Weekday())
	switch int(kind) {
	case 1:
		return float64(wd + 1), nil
	case 2:
		return float64((wd+6)%7 + 1), nil
	case 3:
		return float64((wd + 6) % 7), nil
	}
	return nil, convErr("WEEKDAY: unsupported return type %v", kind)
}

// date builds a date from year, month and day, normalizing overflowing
// months and days. Two-digit style years below 1900 are offset by 1900.
func date(ctx *Context, args []Expr) (any, error) {
	xs, err := numberArgs(ctx, args)
	if err != nil {
		return nil, err
	}
	y, m, d := int(xs[0]), int(xs[1]), int(xs[2])
	if y < 1900 {
		y += 1900
	}
	return Formatted{Value: time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), Format: "m/d/yyyy"}, nil
}

// timeOfDay returns the fraction of a day, wrapping at midnight.
func timeOfDay(ctx *Context, args []Expr) (any, error) {
	xs, err := numberArgs(ctx, args)
	if err != nil {
		return nil, err
	}
	secs := math.Trunc(xs[0])*3600 + math.Trunc(xs[1])*60 + math.Trunc(xs[2])
	if secs < 0 {
		return nil, convErr("TIME: negative time")
	}
	frac := math.Mod(secs, 86400) / 86400
	return Formatted{Value: frac, Format: "h:mm AM/PM"}, nil
}

// dateDif counts whole units between two dates. Start after end is an
// error.
func dateDif(ctx *Context, args []Expr) (any, error) {
	start, err := ctx.Date(args[0])
	if err != nil {
		return nil, err
	}
	end, err := ctx.Date(args[1])
	if err != nil {
		return nil, err
	}
	unit, err := ctx.Text(args[2])
	if err != nil {
		return nil, err
	}
	start, end = dayOf(start), dayOf(end)
	if start.After(end) {
		return nil, convErr("DATEDIF: start date is after end date")
	}

	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	switch strings.ToUpper(strings.TrimSpace(unit)) {
	case "Y":
		return float64(months / 12), nil
	case "M":
		return float64(months), nil
	case "D":
		return daysBetween(start, end), nil
	case "YM":
		return float64(months % 12), nil
	case "YD":
		anchor := time.Date(end.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		if anchor.After(end) {
			anchor = time.Date(end.Year()-1, start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		}
		return daysBetween(anchor, end), nil
	case "MD":
		if end.Day() >= start.Day() {
			return float64(end.Day() - start.Day()), nil
		}
		// count from the start day in the month before end, clamped to
		// that month's length
		prev := time.Date(end.Year(), end.Month(), 0, 0, 0, 0, 0, time.UTC)
		anchor := time.Date(prev.Year(), prev.Month(), min(start.Day(), prev.Day()), 0, 0, 0, 0, time.UTC)
		return daysBetween(anchor, end), nil
	}
	return nil, convErr("DATEDIF: unknown unit %q", unit)
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) float64 {
	return math.Round(ToSerial(b) - ToSerial(a))
}
