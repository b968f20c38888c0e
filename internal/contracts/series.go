package contracts

import "time"

// ReturnPoint is one period's return.
type ReturnPoint struct {
	Date   time.Time `json:"date"`
	Return float64   `json:"return"`
}

// ReturnSeries is a chronological return series. Periods that failed
// the minimum-assets floor are simply absent, never zero-filled, so a
// series can have gaps relative to the panel's date grid.
type ReturnSeries []ReturnPoint

// Append adds a point; callers append in chronological order.
func (s ReturnSeries) Append(date time.Time, ret float64) ReturnSeries {
	return append(s, ReturnPoint{Date: date, Return: ret})
}

// Returns extracts the return values in order.
func (s ReturnSeries) Returns() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Return
	}
	return out
}

// Dates extracts the dates in order.
func (s ReturnSeries) Dates() []time.Time {
	out := make([]time.Time, len(s))
	for i, p := range s {
		out[i] = p.Date
	}
	return out
}

// At returns the return recorded for a date, if any.
func (s ReturnSeries) At(date time.Time) (float64, bool) {
	for _, p := range s {
		if p.Date.Equal(date) {
			return p.Return, true
		}
	}
	return 0, false
}
