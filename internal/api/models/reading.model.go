package models

import "time"

// NoiseReading is a raw sensor reading as stored in noise_readings.
// Timestamps are kept naive/UTC by the storage layer.
// Invariant: MinDBA <= AvgDBA <= MaxDBA.
type NoiseReading struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"device_id"`
	MaxDBA    float64   `json:"max_dba"`
	MinDBA    float64   `json:"min_dba"`
	AvgDBA    float64   `json:"avg_dba"`
	StddevDBA float64   `json:"stddev_dba"`
	Peaks     []float64 `json:"peaks"`
	CreatedAt string    `json:"created_at"`
}

// RollupBucket is one pre-aggregated row in noise_rollup_minute or
// noise_rollup_hour. Buckets are built incrementally from raw readings as
// they arrive, so SampleCount >= 1 for any bucket present and the bucket
// average is SumDBA / SampleCount.
type RollupBucket struct {
	BucketTS    time.Time `json:"bucket_ts"`
	DeviceID    string    `json:"device_id"`
	SumDBA      float64   `json:"sum_dba"`
	SampleCount int64     `json:"sample_count"`
	MaxDBA      float64   `json:"max_dba"`
	MinDBA      float64   `json:"min_dba"`
}

// Device is a registered sensor device
type Device struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	TeamID    int    `json:"team_id,omitempty"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// AggregationRequest carries the raw query parameters of a historical
// readings request, before validation
type AggregationRequest struct {
	Range     string `json:"range"`
	Breakdown string `json:"breakdown"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	Date      string `json:"date,omitempty"`
	DeviceID  string `json:"deviceId,omitempty"`
}

// ResolvedRange is a concrete [Start, End] instant pair in UTC,
// Start <= End always
type ResolvedRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Span returns the duration covered by the range
func (r ResolvedRange) Span() time.Duration {
	return r.End.Sub(r.Start)
}

// AggregatedPoint is one output bucket of the historical series.
// P95 is currently defined as equal to Max: the store has no percentile
// support yet and the dashboard plots it as an upper band. Known limitation,
// not a bug.
type AggregatedPoint struct {
	Time string  `json:"time"`
	Avg  float64 `json:"avg"`
	Max  float64 `json:"max"`
	Min  float64 `json:"min"`
	P95  float64 `json:"p95"`
}

// IngestRequest is the body of POST /api/v1/readings
type IngestRequest struct {
	DeviceID  string    `json:"device_id"`
	MaxDBA    float64   `json:"max_dba"`
	MinDBA    float64   `json:"min_dba"`
	AvgDBA    float64   `json:"avg_dba"`
	StddevDBA float64   `json:"stddev_dba"`
	Peaks     []float64 `json:"peaks"`
	CreatedAt string    `json:"created_at,omitempty"`
}

// NoiseLevel classifies a dBA value against the dashboard thresholds
type NoiseLevel string

const (
	NoiseLevelNormal   NoiseLevel = "normal"
	NoiseLevelElevated NoiseLevel = "elevated"
	NoiseLevelHigh     NoiseLevel = "high"
	NoiseLevelCritical NoiseLevel = "critical"
)

// Dashboard noise thresholds in dBA
const (
	NoiseThresholdNormal   = 35.0
	NoiseThresholdElevated = 50.0
	NoiseThresholdHigh     = 70.0
)

// ClassifyNoise maps a dBA value onto the dashboard's threshold bands
func ClassifyNoise(dba float64) NoiseLevel {
	switch {
	case dba < NoiseThresholdNormal:
		return NoiseLevelNormal
	case dba < NoiseThresholdElevated:
		return NoiseLevelElevated
	case dba < NoiseThresholdHigh:
		return NoiseLevelHigh
	default:
		return NoiseLevelCritical
	}
}
