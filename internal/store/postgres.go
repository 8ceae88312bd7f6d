package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"noisedash/internal/api/models"
	"noisedash/internal/utils"
)

// Fixed aggregation templates, one per source. Columns are timestamp without
// time zone holding naive UTC instants, so to_char needs no zone conversion.
const (
	pgAggRaw = `SELECT to_char(created_at, $1) AS time,
		AVG(avg_dba) AS avg,
		MAX(max_dba) AS max,
		MIN(min_dba) AS min
	FROM noise_readings
	WHERE created_at BETWEEN $2 AND $3`

	pgAggRollupMinute = `SELECT to_char(bucket_ts, $1) AS time,
		AVG(sum_dba / sample_count) AS avg,
		MAX(max_dba) AS max,
		MIN(min_dba) AS min
	FROM noise_rollup_minute
	WHERE bucket_ts BETWEEN $2 AND $3`

	pgAggRollupHour = `SELECT to_char(bucket_ts, $1) AS time,
		AVG(sum_dba / sample_count) AS avg,
		MAX(max_dba) AS max,
		MIN(min_dba) AS min
	FROM noise_rollup_hour
	WHERE bucket_ts BETWEEN $2 AND $3`

	pgUpsertMinute = `INSERT INTO noise_rollup_minute (bucket_ts, device_id, sum_dba, sample_count, max_dba, min_dba)
		VALUES ($1, $2, $3, 1, $4, $5)
		ON CONFLICT (bucket_ts, device_id) DO UPDATE SET
			sum_dba = noise_rollup_minute.sum_dba + EXCLUDED.sum_dba,
			sample_count = noise_rollup_minute.sample_count + 1,
			max_dba = GREATEST(noise_rollup_minute.max_dba, EXCLUDED.max_dba),
			min_dba = LEAST(noise_rollup_minute.min_dba, EXCLUDED.min_dba)`

	pgUpsertHour = `INSERT INTO noise_rollup_hour (bucket_ts, device_id, sum_dba, sample_count, max_dba, min_dba)
		VALUES ($1, $2, $3, 1, $4, $5)
		ON CONFLICT (bucket_ts, device_id) DO UPDATE SET
			sum_dba = noise_rollup_hour.sum_dba + EXCLUDED.sum_dba,
			sample_count = noise_rollup_hour.sample_count + 1,
			max_dba = GREATEST(noise_rollup_hour.max_dba, EXCLUDED.max_dba),
			min_dba = LEAST(noise_rollup_hour.min_dba, EXCLUDED.min_dba)`
)

// PostgresStore implements ReadingStore on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a pooled connection using the given DSN and pool
// policy and ensures the schema exists. It tries the "pgx" driver name first,
// then falls back to "postgres".
func NewPostgresStore(dsn string, pool PoolConfig) (*PostgresStore, error) {
	if utils.IsEmptyOrWhitespace(dsn) {
		return nil, fmt.Errorf("postgres configuration is incomplete")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		// Fallback to lib/pq driver name
		if strings.Contains(strings.ToLower(err.Error()), "unknown driver") {
			var err2 error
			db, err2 = sql.Open("postgres", dsn)
			if err2 != nil {
				return nil, fmt.Errorf("failed to open postgres: %w", err2)
			}
		} else {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
	}

	db.SetMaxOpenConns(pool.MaxConnections)
	db.SetMaxIdleConns(pool.MaxConnections / 2)
	db.SetConnMaxLifetime(time.Duration(pool.ConnectionTimeout) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(pool.IdleTimeout) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	utils.LogInfo("postgres initialized with max_connections=%d, connection_timeout=%ds, idle_timeout=%ds",
		pool.MaxConnections, pool.ConnectionTimeout, pool.IdleTimeout)
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS noise_readings (
			id BIGSERIAL PRIMARY KEY,
			device_id TEXT NOT NULL,
			max_dba DOUBLE PRECISION NOT NULL,
			min_dba DOUBLE PRECISION NOT NULL,
			avg_dba DOUBLE PRECISION NOT NULL,
			stddev_dba DOUBLE PRECISION NOT NULL DEFAULT 0,
			peaks JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_noise_readings_created_at ON noise_readings (created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_noise_readings_device ON noise_readings (device_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS noise_rollup_minute (
			bucket_ts TIMESTAMP NOT NULL,
			device_id TEXT NOT NULL,
			sum_dba DOUBLE PRECISION NOT NULL,
			sample_count BIGINT NOT NULL,
			max_dba DOUBLE PRECISION NOT NULL,
			min_dba DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (bucket_ts, device_id)
		);`,
		`CREATE TABLE IF NOT EXISTS noise_rollup_hour (
			bucket_ts TIMESTAMP NOT NULL,
			device_id TEXT NOT NULL,
			sum_dba DOUBLE PRECISION NOT NULL,
			sample_count BIGINT NOT NULL,
			max_dba DOUBLE PRECISION NOT NULL,
			min_dba DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (bucket_ts, device_id)
		);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// AggregateBuckets runs the grouped aggregation for the selected source
func (s *PostgresStore) AggregateBuckets(ctx context.Context, q AggregateQuery) ([]AggregatedRow, error) {
	var query string
	switch q.Source {
	case SourceRollupMinute:
		query = pgAggRollupMinute
	case SourceRollupHour:
		query = pgAggRollupHour
	default:
		query = pgAggRaw
	}

	args := []any{q.Granularity.PostgresFormat(), q.Start.UTC(), q.End.UTC()}
	if q.DeviceID != "" {
		query += ` AND device_id = $4`
		args = append(args, q.DeviceID)
	}
	query += ` GROUP BY time ORDER BY time ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s aggregation: %w", q.Source, err)
	}
	defer rows.Close()

	var result []AggregatedRow
	for rows.Next() {
		var bucket string
		var avg, max, min any
		if err := rows.Scan(&bucket, &avg, &max, &min); err != nil {
			return nil, fmt.Errorf("failed to scan aggregated row: %w", err)
		}
		result = append(result, AggregatedRow{
			Time: bucket,
			Avg:  coerceFloat(avg),
			Max:  coerceFloat(max),
			Min:  coerceFloat(min),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return result, nil
}

// RecentReadings returns the newest limit raw readings in chronological order
func (s *PostgresStore) RecentReadings(ctx context.Context, limit int) ([]models.NoiseReading, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, device_id, max_dba, min_dba, avg_dba, stddev_dba, peaks, created_at
		FROM noise_readings ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent readings: %w", err)
	}
	defer rows.Close()

	readings, err := scanPGReadings(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}
	return readings, nil
}

// ReadingsSince returns readings strictly after the given instant
func (s *PostgresStore) ReadingsSince(ctx context.Context, since time.Time) ([]models.NoiseReading, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, device_id, max_dba, min_dba, avg_dba, stddev_dba, peaks, created_at
		FROM noise_readings WHERE created_at > $1 ORDER BY created_at ASC`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query readings since %s: %w", since, err)
	}
	defer rows.Close()

	return scanPGReadings(rows)
}

// InsertReading stores the raw row and folds it into both rollup tables in
// one transaction
func (s *PostgresStore) InsertReading(ctx context.Context, r models.NoiseReading) (int64, error) {
	createdAt, err := utils.ParseTimestampUTC(r.CreatedAt)
	if err != nil {
		createdAt = utils.NowUTC()
	}

	peaks := r.Peaks
	if peaks == nil {
		peaks = []float64{}
	}
	peaksJSON, err := json.Marshal(peaks)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal peaks: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `INSERT INTO noise_readings
		(device_id, max_dba, min_dba, avg_dba, stddev_dba, peaks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		r.DeviceID, r.MaxDBA, r.MinDBA, r.AvgDBA, r.StddevDBA, peaksJSON, createdAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert reading: %w", err)
	}

	minuteBucket := GranularityMinute.Truncate(createdAt)
	if _, err := tx.ExecContext(ctx, pgUpsertMinute,
		minuteBucket, r.DeviceID, r.AvgDBA, r.MaxDBA, r.MinDBA); err != nil {
		return 0, fmt.Errorf("failed to upsert minute rollup: %w", err)
	}

	hourBucket := GranularityHour.Truncate(createdAt)
	if _, err := tx.ExecContext(ctx, pgUpsertHour,
		hourBucket, r.DeviceID, r.AvgDBA, r.MaxDBA, r.MinDBA); err != nil {
		return 0, fmt.Errorf("failed to upsert hour rollup: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit reading: %w", err)
	}
	return id, nil
}

// ListDevices derives the device list from the readings table
func (s *PostgresStore) ListDevices(ctx context.Context) ([]models.Device, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT device_id, MIN(created_at)
		FROM noise_readings GROUP BY device_id ORDER BY device_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		var code string
		var firstSeen time.Time
		if err := rows.Scan(&code, &firstSeen); err != nil {
			return nil, fmt.Errorf("failed to scan device row: %w", err)
		}
		devices = append(devices, models.Device{
			ID:        int64(len(devices) + 1),
			Code:      code,
			IsActive:  true,
			CreatedAt: firstSeen.UTC().Format(utils.BucketTimeLayout),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return devices, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func scanPGReadings(rows *sql.Rows) ([]models.NoiseReading, error) {
	var readings []models.NoiseReading
	for rows.Next() {
		var r models.NoiseReading
		var peaksJSON []byte
		var createdAt time.Time
		var maxDBA, minDBA, avgDBA, stddevDBA any
		if err := rows.Scan(&r.ID, &r.DeviceID, &maxDBA, &minDBA, &avgDBA, &stddevDBA, &peaksJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		r.MaxDBA = coerceFloat(maxDBA)
		r.MinDBA = coerceFloat(minDBA)
		r.AvgDBA = coerceFloat(avgDBA)
		r.StddevDBA = coerceFloat(stddevDBA)
		r.Peaks = parsePeaks(peaksJSON)
		r.CreatedAt = createdAt.UTC().Format(utils.BucketTimeLayout)
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return readings, nil
}
