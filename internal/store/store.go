// Package store exposes the columnar read/write interface over the three
// noise tables: raw readings plus the minute and hour rollups. A Store is an
// explicitly owned handle constructed by the composition root and injected
// into the aggregation layer; there is no package-global connection state.
package store

import (
	"context"
	"strconv"
	"time"

	"noisedash/internal/api/models"
)

// Source identifies which physical table an aggregation query reads.
// The set is closed: each value maps to a fixed query template, never to an
// interpolated table name.
type Source int

const (
	SourceRaw Source = iota
	SourceRollupMinute
	SourceRollupHour
)

func (s Source) String() string {
	switch s {
	case SourceRollupMinute:
		return "rollup_minute"
	case SourceRollupHour:
		return "rollup_hour"
	default:
		return "raw"
	}
}

// Granularity is the time-bucket truncation rule for an aggregation query.
// Truncation always happens in UTC so bucket boundaries are stable regardless
// of session time zone.
type Granularity int

const (
	GranularitySecond Granularity = iota
	GranularityMinute
	GranularityHour
	GranularityDay
)

func (g Granularity) String() string {
	switch g {
	case GranularitySecond:
		return "second"
	case GranularityHour:
		return "hour"
	case GranularityDay:
		return "day"
	default:
		return "minute"
	}
}

// SQLiteFormat returns the strftime pattern producing the canonical
// bucket-start string, with the non-selected lower fields zeroed.
func (g Granularity) SQLiteFormat() string {
	switch g {
	case GranularitySecond:
		return "%Y-%m-%dT%H:%M:%SZ"
	case GranularityHour:
		return "%Y-%m-%dT%H:00:00Z"
	case GranularityDay:
		return "%Y-%m-%dT00:00:00Z"
	default:
		return "%Y-%m-%dT%H:%M:00Z"
	}
}

// PostgresFormat returns the to_char pattern for the same canonical form
func (g Granularity) PostgresFormat() string {
	switch g {
	case GranularitySecond:
		return `YYYY-MM-DD"T"HH24:MI:SS"Z"`
	case GranularityHour:
		return `YYYY-MM-DD"T"HH24:00:00"Z"`
	case GranularityDay:
		return `YYYY-MM-DD"T"00:00:00"Z"`
	default:
		return `YYYY-MM-DD"T"HH24:MI:00"Z"`
	}
}

// Truncate zeroes the lower fields of t in UTC per the granularity
func (g Granularity) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch g {
	case GranularitySecond:
		return t.Truncate(time.Second)
	case GranularityHour:
		return t.Truncate(time.Hour)
	case GranularityDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return t.Truncate(time.Minute)
	}
}

// AggregateQuery describes one grouped-aggregation read: group qualifying
// rows by truncated timestamp within [Start, End], both bounds inclusive,
// optionally restricted to a single device.
type AggregateQuery struct {
	Source      Source
	Granularity Granularity
	Start       time.Time
	End         time.Time
	DeviceID    string
}

// AggregatedRow is one raw result row before normalization
type AggregatedRow struct {
	Time string
	Avg  float64
	Max  float64
	Min  float64
}

// PoolConfig is the connection-pool policy, owned by the composition root
type PoolConfig struct {
	MaxConnections    int
	ConnectionTimeout int // seconds
	IdleTimeout       int // seconds
}

// ReadingStore is the storage collaborator consumed by the aggregation core.
// Implementations issue exactly one read per call and rely on the store's own
// concurrency control; no locking happens above this interface.
type ReadingStore interface {
	// AggregateBuckets runs the grouped-aggregation query for the selected
	// source table, returning one row per populated bucket ordered ascending
	// by bucket time.
	AggregateBuckets(ctx context.Context, q AggregateQuery) ([]AggregatedRow, error)

	// RecentReadings returns the most recent raw readings, oldest first
	RecentReadings(ctx context.Context, limit int) ([]models.NoiseReading, error)

	// ReadingsSince returns raw readings strictly after the given instant,
	// oldest first
	ReadingsSince(ctx context.Context, since time.Time) ([]models.NoiseReading, error)

	// InsertReading stores a raw reading and incrementally folds it into the
	// minute and hour rollup buckets within a single transaction
	InsertReading(ctx context.Context, r models.NoiseReading) (int64, error)

	// ListDevices returns the devices known to the store
	ListDevices(ctx context.Context) ([]models.Device, error)

	Ping(ctx context.Context) error
	Close() error
}

// coerceFloat converts a scanned column value to float64. Drivers return
// DECIMAL columns as text depending on backend and column affinity, so the
// numeric coercion lives at the scan boundary.
func coerceFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int64:
		return float64(x)
	case []byte:
		if f, err := strconv.ParseFloat(string(x), 64); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f
		}
	}
	return 0
}
