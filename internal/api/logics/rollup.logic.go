package logics

import (
	"time"

	"noisedash/internal/api/models"
	"noisedash/internal/config"
	"noisedash/internal/store"
)

// GranularityFor maps the requested breakdown unit onto a truncation rule.
// Unrecognized units fall back to minute buckets.
func GranularityFor(breakdown string) store.Granularity {
	switch breakdown {
	case "second":
		return store.GranularitySecond
	case "hour":
		return store.GranularityHour
	case "day":
		return store.GranularityDay
	default:
		return store.GranularityMinute
	}
}

// RollupTableSelector decides whether a historical query reads raw readings
// or one of the two rollup tables, trading accuracy for bounded scan size.
// Pure function of (span, granularity, selector) given fixed thresholds.
type RollupTableSelector struct {
	// RawSpanMax is the longest span the raw table is scanned for (default 1 day).
	// MinuteSpanMax is the longest span served by the minute rollup (default 7 days).
	// Comparisons are strict: a span of exactly MinuteSpanMax still uses the
	// minute rollup.
	RawSpanMax    time.Duration
	MinuteSpanMax time.Duration
}

// NewRollupTableSelector builds a selector with the configured thresholds
func NewRollupTableSelector(cfg *config.EnvConfig) RollupTableSelector {
	return RollupTableSelector{
		RawSpanMax:    cfg.RollupRawSpanMax,
		MinuteSpanMax: cfg.RollupMinuteSpanMax,
	}
}

// dayRangeSelectors are the selectors that span a whole calendar day; at
// minute granularity those already exceed a comfortable raw-table scan
func isDayRangeSelector(selector string) bool {
	switch selector {
	case RangeToday, RangeYesterday, RangeSingleDate, RangeDate:
		return true
	}
	return false
}

// Select picks the source table for a resolved range and granularity
func (s RollupTableSelector) Select(r models.ResolvedRange, g store.Granularity, selector string) store.Source {
	span := r.Span()

	if g == store.GranularityDay || span > s.MinuteSpanMax {
		return store.SourceRollupHour
	}
	if g == store.GranularityHour || span > s.RawSpanMax ||
		(g == store.GranularityMinute && isDayRangeSelector(selector)) {
		return store.SourceRollupMinute
	}
	return store.SourceRaw
}
