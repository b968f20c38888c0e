package performance

import (
	"sort"
	"time"

	"github.com/quantfoundry/factors/internal/contracts"
)

// Contribution is one asset's share of a period's factor return.
// Short-side contributions carry a flipped sign because the leg is
// held short.
type Contribution struct {
	Asset        string  `json:"asset"`
	Side         string  `json:"side"` // "long" or "short"
	Weight       float64 `json:"weight"`
	Return       float64 `json:"return"`
	Contribution float64 `json:"contribution"`
}

// PeriodAttribution breaks one period's factor return down by asset.
type PeriodAttribution struct {
	Date          time.Time      `json:"date"`
	Contributions []Contribution `json:"contributions"`
	Total         float64        `json:"total"`
}

// TopContributor returns the asset with the largest absolute
// contribution, false when the period had no members.
func (p PeriodAttribution) TopContributor() (Contribution, bool) {
	if len(p.Contributions) == 0 {
		return Contribution{}, false
	}
	top := p.Contributions[0]
	for _, c := range p.Contributions[1:] {
		if abs(c.Contribution) > abs(top.Contribution) {
			top = c
		}
	}
	return top, true
}

// Attribute decomposes a snapshot's factor return into per-asset
// contributions, sorted by absolute contribution descending.
func Attribute(snapshot contracts.PortfolioSnapshot) PeriodAttribution {
	out := PeriodAttribution{Date: snapshot.Date}

	for asset, pos := range snapshot.Long {
		c := Contribution{
			Asset:        asset,
			Side:         "long",
			Weight:       pos.Weight,
			Return:       pos.PeriodReturn,
			Contribution: pos.Weight * pos.PeriodReturn,
		}
		out.Contributions = append(out.Contributions, c)
		out.Total += c.Contribution
	}
	for asset, pos := range snapshot.Short {
		c := Contribution{
			Asset:        asset,
			Side:         "short",
			Weight:       pos.Weight,
			Return:       pos.PeriodReturn,
			Contribution: -pos.Weight * pos.PeriodReturn,
		}
		out.Contributions = append(out.Contributions, c)
		out.Total += c.Contribution
	}

	sort.SliceStable(out.Contributions, func(i, j int) bool {
		ai, aj := abs(out.Contributions[i].Contribution), abs(out.Contributions[j].Contribution)
		if ai != aj {
			return ai > aj
		}
		return out.Contributions[i].Asset < out.Contributions[j].Asset
	})
	return out
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
