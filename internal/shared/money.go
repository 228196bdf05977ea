package shared

import (
	"math"
	"time"
)

// Round2 normalises a money value to two fraction digits.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// DayOf truncates t to its local day boundary. Register keys are
// (outlet, date) with the time component dropped.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
