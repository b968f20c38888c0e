package contracts

import (
	"fmt"
	"sort"
	"time"
)

// Well-known panel column names. Derived columns are built from these
// via PctChangeColumn and Lagged.
const (
	ColPrice           = "price"
	ColMarketCap       = "mc"
	ColVolume          = "24h_volume"
	ColVariance        = "variance"
	ColInverseVariance = "inverse_variance"
)

// PctChangeColumn returns the column name for a k-period price change.
func PctChangeColumn(col string, periods int) string {
	return fmt.Sprintf("%s_pct_change_p%d", col, periods)
}

// Lagged returns the column name for a one-period lagged copy of col.
func Lagged(col string) string {
	return col + "_t_minus_1"
}

// PanelRow is a single (date, asset) observation. Columns hold whatever
// metrics the data layer merged in; a missing key means the value is
// undefined for that row, there is no NaN sentinel.
type PanelRow struct {
	Date  time.Time          `json:"date"`
	Asset string             `json:"asset"`
	Cols  map[string]float64 `json:"cols"`
}

// Value returns a column value and whether it is defined.
func (r PanelRow) Value(col string) (float64, bool) {
	v, ok := r.Cols[col]
	return v, ok
}

// Has reports whether every given column is defined on this row.
func (r PanelRow) Has(cols ...string) bool {
	for _, col := range cols {
		if _, ok := r.Cols[col]; !ok {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the row.
func (r PanelRow) Clone() PanelRow {
	cols := make(map[string]float64, len(r.Cols))
	for k, v := range r.Cols {
		cols[k] = v
	}
	return PanelRow{Date: r.Date, Asset: r.Asset, Cols: cols}
}

// Panel is a collection of rows, at most one per (date, asset) pair
// after resampling. Transform stages return fresh panels and never
// mutate their input.
type Panel []PanelRow

// Clone returns a deep copy of the panel.
func (p Panel) Clone() Panel {
	out := make(Panel, len(p))
	for i, row := range p {
		out[i] = row.Clone()
	}
	return out
}

// SortByDateAsset sorts the panel by (date, asset) in place.
func (p Panel) SortByDateAsset() {
	sort.SliceStable(p, func(i, j int) bool {
		if !p[i].Date.Equal(p[j].Date) {
			return p[i].Date.Before(p[j].Date)
		}
		return p[i].Asset < p[j].Asset
	})
}

// Dates returns the distinct dates in the panel, ascending.
func (p Panel) Dates() []time.Time {
	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, row := range p {
		if !seen[row.Date] {
			seen[row.Date] = true
			dates = append(dates, row.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// CrossSection returns the rows for a single date.
func (p Panel) CrossSection(date time.Time) Panel {
	var out Panel
	for _, row := range p {
		if row.Date.Equal(date) {
			out = append(out, row)
		}
	}
	return out
}

// Assets returns the distinct asset identifiers in the panel, sorted.
func (p Panel) Assets() []string {
	seen := make(map[string]bool)
	var assets []string
	for _, row := range p {
		if !seen[row.Asset] {
			seen[row.Asset] = true
			assets = append(assets, row.Asset)
		}
	}
	sort.Strings(assets)
	return assets
}
