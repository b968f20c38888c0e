package panel

import "time"

// Frequency is a resampling target frequency.
type Frequency string

const (
	Daily   Frequency = "D"
	Weekly  Frequency = "W"
	Monthly Frequency = "M"
)

// PeriodsPerYear returns the annualization factor for the frequency.
func (f Frequency) PeriodsPerYear() float64 {
	switch f {
	case Daily:
		return 365
	case Monthly:
		return 12
	default:
		return 52
	}
}

// BucketEnd maps a date to the label of its resampling bucket: the
// bucket's last calendar day. Weekly buckets end on Sunday, so a
// Sunday observation labels its own bucket.
func (f Frequency) BucketEnd(date time.Time) time.Time {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	switch f {
	case Daily:
		return d
	case Monthly:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location()).
			AddDate(0, 1, -1)
	default:
		offset := (7 - int(d.Weekday())) % 7
		return d.AddDate(0, 0, offset)
	}
}
