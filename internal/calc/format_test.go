package calc

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumbers(t *testing.T) {
	tests := []struct {
		value any
		code  string
		want  string
	}{
		{1234.5, "#,##0.00", "1,234.50"},
		{1234567.0, "#,##0", "1,234,567"},
		{0.256, "0.0%", "25.6%"},
		{12345.678, "0.00E+00", "1.23E+04"},
		{-5.0, "0.00;(0.00)", "(5.00)"},
		{0.5, "#.##", ".5"},
		{-0.001, "0.00", "0.00"},
		{3.0, `"Total: "0`, "Total: 3"},
		{"12", "0.0", "12.0"},
		{"abc", "0.00", "abc"},
		{"x", "@", "x"},
		{true, "General", "TRUE"},
		{1.5, "", "1.5"},
		{math.Inf(1), "0.00", "Infinity"},
		{Formatted{Value: 2.0, Format: "0.00"}, "0", "2"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.value, tt.code))
		})
	}
}

func TestFormatDates(t *testing.T) {
	ts := time.Date(2021, 3, 5, 14, 7, 9, 0, time.UTC)
	tests := []struct {
		code string
		want string
	}{
		{"m/d/yyyy h:mm AM/PM", "3/5/2021 2:07 PM"},
		{"yyyy-mm-dd", "2021-03-05"},
		{"hh:mm:ss", "14:07:09"},
		{"dddd, mmmm d", "Friday, March 5"},
		{"ddd mmm yy", "Fri Mar 21"},
		{"h:mm am/pm", "2:07 pm"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(ts, tt.code))
		})
	}

	assert.Equal(t, "1/1/2021", Format(44197.0, "m/d/yyyy"))
	assert.Equal(t, "not a date", Format("not a date", "m/d/yyyy"))
}

func TestSerialRoundTrip(t *testing.T) {
	ts := time.Date(2024, 2, 29, 18, 0, 0, 0, time.UTC)
	serial := ToSerial(ts)
	assert.InDelta(t, 45351.75, serial, 1e-9)
	assert.True(t, ts.Equal(FromSerial(serial)))
	assert.Equal(t, 0.0, ToSerial(time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)))
}
