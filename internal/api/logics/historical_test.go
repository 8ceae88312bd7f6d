package logics

import (
	"context"
	"errors"
	"testing"
	"time"

	"noisedash/internal/api/models"
	"noisedash/internal/config"
	"noisedash/internal/store"
	"noisedash/internal/utils"
)

// fakeStore records aggregation queries and returns canned rows
type fakeStore struct {
	rows    []store.AggregatedRow
	err     error
	queries []store.AggregateQuery
}

func (f *fakeStore) AggregateBuckets(ctx context.Context, q store.AggregateQuery) ([]store.AggregatedRow, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeStore) RecentReadings(ctx context.Context, limit int) ([]models.NoiseReading, error) {
	return nil, nil
}

func (f *fakeStore) ReadingsSince(ctx context.Context, since time.Time) ([]models.NoiseReading, error) {
	return nil, nil
}

func (f *fakeStore) InsertReading(ctx context.Context, r models.NoiseReading) (int64, error) {
	return 1, nil
}

func (f *fakeStore) ListDevices(ctx context.Context) ([]models.Device, error) {
	return nil, nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                   { return nil }

func testService(fs *fakeStore) *ReadingService {
	cfg := &config.EnvConfig{
		RollupRawSpanMax:    24 * time.Hour,
		RollupMinuteSpanMax: 7 * 24 * time.Hour,
	}
	return NewReadingService(fs, time.UTC, cfg)
}

func TestHistoricalNormalizesRows(t *testing.T) {
	fs := &fakeStore{rows: []store.AggregatedRow{
		{Time: "2025-03-12 10:00:00", Avg: 20.0, Max: 35.0, Min: 15.0},
		{Time: "2025-03-12 11:00:00", Avg: 41.235, Max: 55.555, Min: 30.004},
	}}
	svc := testService(fs)

	points, err := svc.Historical(context.Background(), models.AggregationRequest{
		Range: "today", Breakdown: "hour",
	})
	if err != nil {
		t.Fatalf("Historical failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}

	first := points[0]
	if first.Time != "2025-03-12T10:00:00Z" {
		t.Errorf("time not canonical: %q", first.Time)
	}
	if first.Avg != 20.00 || first.Max != 35.00 || first.Min != 15.00 {
		t.Errorf("unexpected values: %+v", first)
	}
	if first.P95 != first.Max {
		t.Errorf("p95 = %v, want max %v", first.P95, first.Max)
	}

	second := points[1]
	if second.Avg != 41.24 || second.Max != 55.56 || second.Min != 30.0 {
		t.Errorf("rounding wrong: %+v", second)
	}
}

func TestHistoricalSelectsMinuteRollupForToday(t *testing.T) {
	fs := &fakeStore{}
	svc := testService(fs)

	_, err := svc.Historical(context.Background(), models.AggregationRequest{
		Range: "today", Breakdown: "hour", DeviceID: "7",
	})
	if err != nil {
		t.Fatalf("Historical failed: %v", err)
	}
	if len(fs.queries) != 1 {
		t.Fatalf("expected exactly one query, got %d", len(fs.queries))
	}

	q := fs.queries[0]
	if q.Source != store.SourceRollupMinute {
		t.Errorf("source = %v, want rollup_minute", q.Source)
	}
	if q.Granularity != store.GranularityHour {
		t.Errorf("granularity = %v, want hour", q.Granularity)
	}
	if q.DeviceID != "7" {
		t.Errorf("device filter not forwarded: %q", q.DeviceID)
	}
	if q.Start.After(q.End) {
		t.Errorf("query range reversed: %v > %v", q.Start, q.End)
	}
}

func TestHistoricalValidationHappensBeforeIO(t *testing.T) {
	fs := &fakeStore{}
	svc := testService(fs)

	_, err := svc.Historical(context.Background(), models.AggregationRequest{Range: "date_range"})
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !utils.IsValidationError(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if len(fs.queries) != 0 {
		t.Errorf("query issued despite validation failure")
	}
}

func TestHistoricalWrapsQueryFailure(t *testing.T) {
	fs := &fakeStore{err: errors.New("connection refused")}
	svc := testService(fs)

	_, err := svc.Historical(context.Background(), models.AggregationRequest{Range: "last_hour"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !utils.IsDatabaseError(err) {
		t.Errorf("expected database error, got %v", err)
	}
	if utils.IsValidationError(err) {
		t.Errorf("query failure must not look like a validation error")
	}
}

func TestHistoricalEmptyRangeIsEmptySeries(t *testing.T) {
	fs := &fakeStore{rows: nil}
	svc := testService(fs)

	points, err := svc.Historical(context.Background(), models.AggregationRequest{
		Range: "last_hour", Breakdown: "second",
	})
	if err != nil {
		t.Fatalf("Historical failed: %v", err)
	}
	if points == nil || len(points) != 0 {
		t.Errorf("expected empty series, got %v", points)
	}
	if fs.queries[0].Source != store.SourceRaw {
		t.Errorf("last_hour at second breakdown should read raw, got %v", fs.queries[0].Source)
	}
}

func TestNormalizePointsIdempotent(t *testing.T) {
	rows := []store.AggregatedRow{
		{Time: "2025-03-12 10:15:00", Avg: 20.005, Max: 35.129, Min: 15.001},
		{Time: "2025-03-12T10:16:00Z", Avg: 22, Max: 36, Min: 16},
	}

	once := NormalizePoints(rows)

	// Feed the normalized output back through: nothing may change
	again := make([]store.AggregatedRow, len(once))
	for i, p := range once {
		again[i] = store.AggregatedRow{Time: p.Time, Avg: p.Avg, Max: p.Max, Min: p.Min}
	}
	twice := NormalizePoints(again)

	if len(once) != len(twice) {
		t.Fatalf("length changed: %d != %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("point %d changed on renormalization: %+v != %+v", i, once[i], twice[i])
		}
	}
}

func TestIngestValidation(t *testing.T) {
	fs := &fakeStore{}
	svc := testService(fs)

	tests := []struct {
		name string
		req  models.IngestRequest
	}{
		{"missing device", models.IngestRequest{AvgDBA: 40, MinDBA: 30, MaxDBA: 50}},
		{"avg above max", models.IngestRequest{DeviceID: "d1", AvgDBA: 60, MinDBA: 30, MaxDBA: 50}},
		{"min above avg", models.IngestRequest{DeviceID: "d1", AvgDBA: 40, MinDBA: 45, MaxDBA: 50}},
		{"bad created_at", models.IngestRequest{DeviceID: "d1", AvgDBA: 40, MinDBA: 30, MaxDBA: 50, CreatedAt: "noonish"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Ingest(context.Background(), tt.req)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !utils.IsValidationError(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}
