package logics

import (
	"testing"
	"time"

	"noisedash/internal/api/models"
	"noisedash/internal/utils"
)

// Fixed "now" for deterministic resolution: Wednesday 2025-03-12 15:30:45 UTC
var testNow = time.Date(2025, 3, 12, 15, 30, 45, 0, time.UTC)

func TestResolveSelectors(t *testing.T) {
	rr := NewTimeRangeResolver(time.UTC)

	tests := []struct {
		name      string
		req       models.AggregationRequest
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "last_hour",
			req:       models.AggregationRequest{Range: "last_hour"},
			wantStart: testNow.Add(-time.Hour),
			wantEnd:   testNow,
		},
		{
			name:      "today",
			req:       models.AggregationRequest{Range: "today"},
			wantStart: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
			wantEnd:   testNow,
		},
		{
			name:      "yesterday",
			req:       models.AggregationRequest{Range: "yesterday"},
			wantStart: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 11, 23, 59, 59, 999000000, time.UTC),
		},
		{
			name:      "this_week starts most recent Sunday",
			req:       models.AggregationRequest{Range: "this_week"},
			wantStart: time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
			wantEnd:   testNow,
		},
		{
			name:      "this_month",
			req:       models.AggregationRequest{Range: "this_month"},
			wantStart: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   testNow,
		},
		{
			name:      "single_date",
			req:       models.AggregationRequest{Range: "single_date", Date: "2025-02-05"},
			wantStart: time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 2, 5, 23, 59, 59, 999000000, time.UTC),
		},
		{
			name: "date_range",
			req: models.AggregationRequest{
				Range:     "date_range",
				StartDate: "2025-01-01T00:00:00Z",
				EndDate:   "2025-01-10T12:00:00Z",
			},
			wantStart: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC),
		},
		{
			name:      "unrecognized selector defaults to last hour",
			req:       models.AggregationRequest{Range: "fortnight"},
			wantStart: testNow.Add(-time.Hour),
			wantEnd:   testNow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rr.Resolve(tt.req, testNow)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if !got.Start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", got.Start, tt.wantStart)
			}
			if !got.End.Equal(tt.wantEnd) {
				t.Errorf("end = %v, want %v", got.End, tt.wantEnd)
			}
			if got.Start.After(got.End) {
				t.Errorf("resolved range reversed: %v > %v", got.Start, got.End)
			}
		})
	}
}

func TestResolveValidation(t *testing.T) {
	rr := NewTimeRangeResolver(time.UTC)

	tests := []struct {
		name string
		req  models.AggregationRequest
	}{
		{"date_range missing both", models.AggregationRequest{Range: "date_range"}},
		{"date_range missing end", models.AggregationRequest{Range: "date_range", StartDate: "2025-01-01"}},
		{"date_range reversed bounds rejected", models.AggregationRequest{
			Range: "date_range", StartDate: "2025-01-10", EndDate: "2025-01-01",
		}},
		{"date_range unparseable", models.AggregationRequest{
			Range: "date_range", StartDate: "soon", EndDate: "later",
		}},
		{"single_date missing date", models.AggregationRequest{Range: "single_date"}},
		{"single_date malformed date", models.AggregationRequest{Range: "single_date", Date: "05/02/2025"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rr.Resolve(tt.req, testNow)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !utils.IsValidationError(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestResolveStartNeverAfterEnd(t *testing.T) {
	rr := NewTimeRangeResolver(time.UTC)

	selectors := []string{"last_hour", "today", "yesterday", "this_week", "this_month", "nonsense", ""}
	for _, selector := range selectors {
		got, err := rr.Resolve(models.AggregationRequest{Range: selector}, testNow)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", selector, err)
		}
		if got.Start.After(got.End) {
			t.Errorf("Resolve(%q): start %v after end %v", selector, got.Start, got.End)
		}
	}
}

func TestResolveWithLocalZone(t *testing.T) {
	// UTC+05:30: local midnight of now's day lands on the previous UTC day
	ist := time.FixedZone("IST", 5*3600+1800)
	rr := NewTimeRangeResolver(ist)

	got, err := rr.Resolve(models.AggregationRequest{Range: "today"}, testNow)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	wantStart := time.Date(2025, 3, 11, 18, 30, 0, 0, time.UTC)
	if !got.Start.Equal(wantStart) {
		t.Errorf("today start in IST = %v, want %v", got.Start, wantStart)
	}
	if got.Start.Location() != time.UTC {
		t.Errorf("resolved start not in UTC: %v", got.Start.Location())
	}
}
