package logics

import (
	"testing"
	"time"

	"noisedash/internal/api/models"
	"noisedash/internal/config"
	"noisedash/internal/store"
)

func testSelector() RollupTableSelector {
	return NewRollupTableSelector(&config.EnvConfig{
		RollupRawSpanMax:    24 * time.Hour,
		RollupMinuteSpanMax: 7 * 24 * time.Hour,
	})
}

func rangeOfSpan(span time.Duration) models.ResolvedRange {
	end := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)
	return models.ResolvedRange{Start: end.Add(-span), End: end}
}

func TestGranularityFor(t *testing.T) {
	tests := []struct {
		breakdown string
		want      store.Granularity
	}{
		{"second", store.GranularitySecond},
		{"minute", store.GranularityMinute},
		{"hour", store.GranularityHour},
		{"day", store.GranularityDay},
		{"", store.GranularityMinute},
		{"fortnight", store.GranularityMinute},
	}

	for _, tt := range tests {
		if got := GranularityFor(tt.breakdown); got != tt.want {
			t.Errorf("GranularityFor(%q) = %v, want %v", tt.breakdown, got, tt.want)
		}
	}
}

func TestSelectSource(t *testing.T) {
	s := testSelector()

	tests := []struct {
		name        string
		span        time.Duration
		granularity store.Granularity
		selector    string
		want        store.Source
	}{
		{"day breakdown always hour rollup", time.Hour, store.GranularityDay, "last_hour", store.SourceRollupHour},
		{"span over 7 days uses hour rollup", 7*24*time.Hour + time.Millisecond, store.GranularityMinute, "date_range", store.SourceRollupHour},
		{"span of exactly 7 days stays on minute rollup", 7 * 24 * time.Hour, store.GranularityHour, "date_range", store.SourceRollupMinute},
		{"hour breakdown forces minute rollup", time.Hour, store.GranularityHour, "last_hour", store.SourceRollupMinute},
		{"today at hour breakdown uses minute rollup", 15 * time.Hour, store.GranularityHour, "today", store.SourceRollupMinute},
		{"today at minute breakdown uses minute rollup", 15 * time.Hour, store.GranularityMinute, "today", store.SourceRollupMinute},
		{"yesterday at minute breakdown uses minute rollup", 24 * time.Hour, store.GranularityMinute, "yesterday", store.SourceRollupMinute},
		{"single date at minute breakdown uses minute rollup", 24 * time.Hour, store.GranularityMinute, "single_date", store.SourceRollupMinute},
		{"span over 1 day uses minute rollup", 24*time.Hour + time.Millisecond, store.GranularityMinute, "date_range", store.SourceRollupMinute},
		{"span of exactly 1 day at second breakdown stays raw", 24 * time.Hour, store.GranularitySecond, "date_range", store.SourceRaw},
		{"last hour at second breakdown reads raw", time.Hour, store.GranularitySecond, "last_hour", store.SourceRaw},
		{"last hour at minute breakdown reads raw", time.Hour, store.GranularityMinute, "last_hour", store.SourceRaw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Select(rangeOfSpan(tt.span), tt.granularity, tt.selector)
			if got != tt.want {
				t.Errorf("Select = %v, want %v", got, tt.want)
			}

			// Pure function: same inputs, same choice
			if again := s.Select(rangeOfSpan(tt.span), tt.granularity, tt.selector); again != got {
				t.Errorf("Select not deterministic: %v then %v", got, again)
			}
		})
	}
}
