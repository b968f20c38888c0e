package portfolio

import (
	"math"
	"sort"
	"time"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/pkg/logger"
)

// Assignment is one period's long/short membership before weighting.
type Assignment struct {
	Date  time.Time
	Long  contracts.Panel
	Short contracts.Panel
}

// Params describes how one factor's cross-section is ranked and cut.
type Params struct {
	SignalColumn string // ranking column
	ReturnColumn string // one-period forward return column
	Ascending    bool   // rank smallest first (long small)
	LongOnly     bool   // no short leg, factor return is the long return
	LegSize      int    // fixed leg size override; 0 uses the breakpoint cutoff
}

// Builder splits a single date's cross-section into long and short
// legs at the configured breakpoint.
type Builder struct {
	cfg    contracts.RunConfig
	params Params
	log    *logger.Logger
}

// NewBuilder creates a portfolio builder.
func NewBuilder(cfg contracts.RunConfig, params Params, log *logger.Logger) *Builder {
	return &Builder{cfg: cfg, params: params, log: log}
}

// Build ranks one date's eligible rows and cuts the legs. Returns
// false when the period must be skipped: too few eligible assets, or
// a breakpoint cutoff of zero. Skipped periods leave no trace in the
// output series, sparse data is omitted rather than interpolated.
func (b *Builder) Build(date time.Time, cross contracts.Panel) (Assignment, bool) {
	eligible := make(contracts.Panel, 0, len(cross))
	for _, row := range cross {
		if row.Has(b.params.SignalColumn, b.params.ReturnColumn) {
			eligible = append(eligible, row)
		}
	}

	n := len(eligible)
	if n < b.cfg.MinAssets {
		b.log.WithFields(map[string]interface{}{
			"date":     date.Format("2006-01-02"),
			"eligible": n,
			"required": b.cfg.MinAssets,
		}).Debug("Period skipped, below minimum assets")
		return Assignment{}, false
	}

	// floor truncation, with a tiny epsilon so an exact fraction like
	// 1/3 of 3 assets is not floored away by float representation
	cutoff := int(math.Floor(float64(n)*b.cfg.Breakpoint + 1e-9))
	if b.params.LegSize > 0 {
		cutoff = b.params.LegSize
		if cutoff > n {
			cutoff = n
		}
	}
	if cutoff == 0 {
		b.log.WithFields(map[string]interface{}{
			"date":     date.Format("2006-01-02"),
			"eligible": n,
		}).Debug("Period skipped, breakpoint cutoff is zero")
		return Assignment{}, false
	}

	ranked := eligible.Clone()
	sort.SliceStable(ranked, func(i, j int) bool {
		si := ranked[i].Cols[b.params.SignalColumn]
		sj := ranked[j].Cols[b.params.SignalColumn]
		if si != sj {
			if b.params.Ascending {
				return si < sj
			}
			return si > sj
		}
		// deterministic tie-break
		return ranked[i].Asset < ranked[j].Asset
	})

	a := Assignment{Date: date, Long: ranked[:cutoff]}
	if !b.params.LongOnly {
		// Floor truncation: with breakpoint 0.5 and an odd count the
		// middle row belongs to neither leg.
		a.Short = ranked[n-cutoff:]
	}
	return a, true
}
