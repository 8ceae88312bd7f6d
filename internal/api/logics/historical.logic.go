package logics

import (
	"context"
	"fmt"
	"time"

	"noisedash/internal/api/models"
	"noisedash/internal/config"
	"noisedash/internal/store"
	"noisedash/internal/utils"
)

// ReadingService owns the read/transform pipeline over an injected store
// handle. Requests are independent and stateless; the service holds no
// mutable state beyond the store itself.
type ReadingService struct {
	store    store.ReadingStore
	resolver TimeRangeResolver
	selector RollupTableSelector
}

// NewReadingService wires the aggregation pipeline against the given store.
// zone is the calendar-boundary convention for symbolic ranges.
func NewReadingService(st store.ReadingStore, zone *time.Location, cfg *config.EnvConfig) *ReadingService {
	return &ReadingService{
		store:    st,
		resolver: NewTimeRangeResolver(zone),
		selector: NewRollupTableSelector(cfg),
	}
}

// Historical resolves, plans and runs one grouped-aggregation query and
// returns the normalized series. Validation failures surface before any I/O;
// store failures come back as database errors and are never retried here,
// the read is idempotent and retry belongs to the caller.
func (s *ReadingService) Historical(ctx context.Context, req models.AggregationRequest) ([]models.AggregatedPoint, error) {
	now := utils.NowUTC()

	resolved, err := s.resolver.Resolve(req, now)
	if err != nil {
		return nil, err
	}

	granularity := GranularityFor(req.Breakdown)
	source := s.selector.Select(resolved, granularity, req.Range)

	rows, err := s.store.AggregateBuckets(ctx, store.AggregateQuery{
		Source:      source,
		Granularity: granularity,
		Start:       resolved.Start,
		End:         resolved.End,
		DeviceID:    req.DeviceID,
	})
	if err != nil {
		utils.LogErrorWithContext("historical", "aggregation query failed", err)
		return nil, utils.NewDatabaseError("QUERY_FAILED", "historical aggregation query failed", err)
	}

	return NormalizePoints(rows), nil
}

// NormalizePoints coerces raw aggregation rows into the output series:
// canonical UTC bucket strings, 2-decimal values, p95 mirroring max.
// Idempotent, so re-normalizing an already normalized series is a no-op.
func NormalizePoints(rows []store.AggregatedRow) []models.AggregatedPoint {
	points := make([]models.AggregatedPoint, 0, len(rows))
	for _, row := range rows {
		bucket := row.Time
		if canonical, err := utils.CanonicalBucketString(row.Time); err == nil {
			bucket = canonical
		}
		max := utils.Round2(row.Max)
		points = append(points, models.AggregatedPoint{
			Time: bucket,
			Avg:  utils.Round2(row.Avg),
			Max:  max,
			Min:  utils.Round2(row.Min),
			// p95 is the max for now: the store has no percentile support
			P95: max,
		})
	}
	return points
}

// Recent returns the newest raw readings, oldest first
func (s *ReadingService) Recent(ctx context.Context, limit int) ([]models.NoiseReading, error) {
	if limit <= 0 {
		limit = 1000
	}
	readings, err := s.store.RecentReadings(ctx, limit)
	if err != nil {
		utils.LogErrorWithContext("readings", "recent readings query failed", err)
		return nil, utils.NewDatabaseError("QUERY_FAILED", "failed to fetch readings", err)
	}
	if readings == nil {
		readings = []models.NoiseReading{}
	}
	return readings, nil
}

// Since returns raw readings strictly after the given instant, for polling
func (s *ReadingService) Since(ctx context.Context, since string) ([]models.NoiseReading, error) {
	if utils.IsEmptyOrWhitespace(since) {
		return nil, utils.NewValidationError("MISSING_SINCE", "since parameter is required", utils.ErrValidationFailed)
	}
	parsed, err := utils.ParseTimestampUTC(since)
	if err != nil {
		return nil, utils.NewValidationError("INVALID_SINCE", fmt.Sprintf("invalid since timestamp %q", since), err)
	}

	readings, err := s.store.ReadingsSince(ctx, parsed)
	if err != nil {
		utils.LogErrorWithContext("readings", "latest readings query failed", err)
		return nil, utils.NewDatabaseError("QUERY_FAILED", "failed to fetch latest readings", err)
	}
	if readings == nil {
		readings = []models.NoiseReading{}
	}
	return readings, nil
}

// Ingest validates and stores one raw reading, folding it into the rollups
func (s *ReadingService) Ingest(ctx context.Context, req models.IngestRequest) (int64, error) {
	if utils.IsEmptyOrWhitespace(req.DeviceID) {
		return 0, utils.NewValidationError("MISSING_DEVICE_ID", "device_id is required", utils.ErrValidationFailed)
	}
	if req.MinDBA > req.AvgDBA || req.AvgDBA > req.MaxDBA {
		return 0, utils.NewValidationError("INVALID_DBA_ORDER",
			"expected min_dba <= avg_dba <= max_dba", utils.ErrValidationFailed)
	}
	if !utils.IsEmptyOrWhitespace(req.CreatedAt) {
		if _, err := utils.ParseTimestampUTC(req.CreatedAt); err != nil {
			return 0, utils.NewValidationError("INVALID_CREATED_AT",
				fmt.Sprintf("invalid created_at %q", req.CreatedAt), err)
		}
	}

	id, err := s.store.InsertReading(ctx, models.NoiseReading{
		DeviceID:  req.DeviceID,
		MaxDBA:    req.MaxDBA,
		MinDBA:    req.MinDBA,
		AvgDBA:    req.AvgDBA,
		StddevDBA: req.StddevDBA,
		Peaks:     req.Peaks,
		CreatedAt: req.CreatedAt,
	})
	if err != nil {
		utils.LogErrorWithContext("readings", "reading insert failed", err)
		return 0, utils.NewDatabaseError("INSERT_FAILED", "failed to store reading", err)
	}
	return id, nil
}

// Devices lists the devices known to the store
func (s *ReadingService) Devices(ctx context.Context) ([]models.Device, error) {
	devices, err := s.store.ListDevices(ctx)
	if err != nil {
		utils.LogErrorWithContext("devices", "device list query failed", err)
		return nil, utils.NewDatabaseError("QUERY_FAILED", "failed to list devices", err)
	}
	if devices == nil {
		devices = []models.Device{}
	}
	return devices, nil
}

// Ping reports store reachability for the status endpoint
func (s *ReadingService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
