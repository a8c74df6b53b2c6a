package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		minutes int
		ok      bool
	}{
		{name: "24-hour morning", input: "08:00", minutes: 480, ok: true},
		{name: "24-hour evening", input: "21:45", minutes: 1305, ok: true},
		{name: "24-hour midnight", input: "00:00", minutes: 0, ok: true},
		{name: "12-hour afternoon", input: "2:30 PM", minutes: 870, ok: true},
		{name: "12-hour morning", input: "8:15 AM", minutes: 495, ok: true},
		{name: "12-hour noon", input: "12:00 PM", minutes: 720, ok: true},
		{name: "12-hour midnight", input: "12:00 AM", minutes: 0, ok: true},
		{name: "lowercase meridiem", input: "2:30 pm", minutes: 870, ok: true},
		{name: "no space before meridiem", input: "2:30PM", minutes: 870, ok: true},
		{name: "leading zero 12-hour", input: "02:30 PM", minutes: 870, ok: true},
		{name: "surrounding whitespace", input: "  08:00  ", minutes: 480, ok: true},
		{name: "empty string", input: "", ok: false},
		{name: "missing minutes", input: "8", ok: false},
		{name: "hour out of range", input: "24:00", ok: false},
		{name: "minute out of range", input: "08:60", ok: false},
		{name: "12-hour zero hour", input: "0:30 PM", ok: false},
		{name: "12-hour hour thirteen", input: "13:00 PM", ok: false},
		{name: "garbage", input: "soon", ok: false},
		{name: "too many fields", input: "08:00:00", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minutes, ok := ParseClock(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.minutes, minutes)
			}
		})
	}
}

func TestMinutesOfDay(t *testing.T) {
	at := time.Date(2025, 3, 10, 14, 30, 59, 0, time.UTC)
	assert.Equal(t, 14*60+30, MinutesOfDay(at))
}
