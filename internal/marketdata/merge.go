package marketdata

import (
	"time"

	"github.com/quantfoundry/factors/internal/contracts"
)

type mergeKey struct {
	date  time.Time
	asset string
}

// InnerMerge joins two panels on (date, asset), keeping only keys
// present in both. Columns from base win on conflict.
func InnerMerge(base, other contracts.Panel) contracts.Panel {
	otherByKey := index(other)

	var out contracts.Panel
	for _, row := range base {
		extra, ok := otherByKey[mergeKey{row.Date, row.Asset}]
		if !ok {
			continue
		}
		out = append(out, mergeRows(row, extra))
	}
	out.SortByDateAsset()
	return out
}

// OuterMerge joins two panels on (date, asset), keeping the union of
// keys. Columns from base win on conflict.
func OuterMerge(base, other contracts.Panel) contracts.Panel {
	otherByKey := index(other)

	var out contracts.Panel
	seen := make(map[mergeKey]bool)
	for _, row := range base {
		key := mergeKey{row.Date, row.Asset}
		seen[key] = true
		if extra, ok := otherByKey[key]; ok {
			out = append(out, mergeRows(row, extra))
		} else {
			out = append(out, row.Clone())
		}
	}
	for _, row := range other {
		if !seen[mergeKey{row.Date, row.Asset}] {
			out = append(out, row.Clone())
		}
	}
	out.SortByDateAsset()
	return out
}

func index(p contracts.Panel) map[mergeKey]contracts.PanelRow {
	byKey := make(map[mergeKey]contracts.PanelRow, len(p))
	for _, row := range p {
		byKey[mergeKey{row.Date, row.Asset}] = row
	}
	return byKey
}

func mergeRows(base, extra contracts.PanelRow) contracts.PanelRow {
	merged := base.Clone()
	for col, v := range extra.Cols {
		if _, exists := merged.Cols[col]; !exists {
			merged.Cols[col] = v
		}
	}
	return merged
}
