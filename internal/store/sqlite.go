package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"noisedash/internal/api/models"
	"noisedash/internal/utils"
)

// sqliteTimeLayout is the naive/UTC text form timestamps are stored in
const sqliteTimeLayout = "2006-01-02 15:04:05"

// Fixed aggregation templates, one per source. The truncation format is a
// bind parameter; the table name is part of the template, never interpolated.
const (
	sqliteAggRaw = `SELECT strftime(?1, created_at) AS time,
		AVG(avg_dba) AS avg,
		MAX(max_dba) AS max,
		MIN(min_dba) AS min
	FROM noise_readings
	WHERE created_at BETWEEN ?2 AND ?3`

	sqliteAggRollupMinute = `SELECT strftime(?1, bucket_ts) AS time,
		AVG(sum_dba / sample_count) AS avg,
		MAX(max_dba) AS max,
		MIN(min_dba) AS min
	FROM noise_rollup_minute
	WHERE bucket_ts BETWEEN ?2 AND ?3`

	sqliteAggRollupHour = `SELECT strftime(?1, bucket_ts) AS time,
		AVG(sum_dba / sample_count) AS avg,
		MAX(max_dba) AS max,
		MIN(min_dba) AS min
	FROM noise_rollup_hour
	WHERE bucket_ts BETWEEN ?2 AND ?3`

	sqliteUpsertMinute = `INSERT INTO noise_rollup_minute (bucket_ts, device_id, sum_dba, sample_count, max_dba, min_dba)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT (bucket_ts, device_id) DO UPDATE SET
			sum_dba = sum_dba + excluded.sum_dba,
			sample_count = sample_count + 1,
			max_dba = MAX(max_dba, excluded.max_dba),
			min_dba = MIN(min_dba, excluded.min_dba)`

	sqliteUpsertHour = `INSERT INTO noise_rollup_hour (bucket_ts, device_id, sum_dba, sample_count, max_dba, min_dba)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT (bucket_ts, device_id) DO UPDATE SET
			sum_dba = sum_dba + excluded.sum_dba,
			sample_count = sample_count + 1,
			max_dba = MAX(max_dba, excluded.max_dba),
			min_dba = MIN(min_dba, excluded.min_dba)`
)

// SQLiteStore implements ReadingStore on an embedded SQLite database
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (and if needed creates) the database at dbPath and
// ensures the schema exists
func NewSQLiteStore(dbPath string, pool PoolConfig) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxConnections)
	db.SetConnMaxIdleTime(time.Duration(pool.IdleTimeout) * time.Second)

	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db, path: dbPath}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS noise_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			max_dba REAL NOT NULL,
			min_dba REAL NOT NULL,
			avg_dba REAL NOT NULL,
			stddev_dba REAL NOT NULL DEFAULT 0,
			peaks TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_noise_readings_created_at ON noise_readings(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_noise_readings_device ON noise_readings(device_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS noise_rollup_minute (
			bucket_ts TEXT NOT NULL,
			device_id TEXT NOT NULL,
			sum_dba REAL NOT NULL,
			sample_count INTEGER NOT NULL,
			max_dba REAL NOT NULL,
			min_dba REAL NOT NULL,
			PRIMARY KEY (bucket_ts, device_id)
		);`,
		`CREATE TABLE IF NOT EXISTS noise_rollup_hour (
			bucket_ts TEXT NOT NULL,
			device_id TEXT NOT NULL,
			sum_dba REAL NOT NULL,
			sample_count INTEGER NOT NULL,
			max_dba REAL NOT NULL,
			min_dba REAL NOT NULL,
			PRIMARY KEY (bucket_ts, device_id)
		);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// AggregateBuckets runs the grouped aggregation for the selected source
func (s *SQLiteStore) AggregateBuckets(ctx context.Context, q AggregateQuery) ([]AggregatedRow, error) {
	var query string
	switch q.Source {
	case SourceRollupMinute:
		query = sqliteAggRollupMinute
	case SourceRollupHour:
		query = sqliteAggRollupHour
	default:
		query = sqliteAggRaw
	}

	args := []any{
		q.Granularity.SQLiteFormat(),
		q.Start.UTC().Format(sqliteTimeLayout),
		q.End.UTC().Format(sqliteTimeLayout),
	}
	if q.DeviceID != "" {
		query += ` AND device_id = ?4`
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
func (s *SQLiteStore) RecentReadings(ctx context.Context, limit int) ([]models.NoiseReading, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, device_id, max_dba, min_dba, avg_dba, stddev_dba, peaks, created_at
		FROM noise_readings ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent readings: %w", err)
	}
	defer rows.Close()

	readings, err := scanSQLiteReadings(rows)
	if err != nil {
		return nil, err
	}
	// Stored newest-first for the LIMIT, returned oldest-first for charts
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}
	return readings, nil
}

// ReadingsSince returns readings strictly after the given instant
func (s *SQLiteStore) ReadingsSince(ctx context.Context, since time.Time) ([]models.NoiseReading, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, device_id, max_dba, min_dba, avg_dba, stddev_dba, peaks, created_at
		FROM noise_readings WHERE created_at > ? ORDER BY created_at ASC`,
		since.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query readings since %s: %w", since, err)
	}
	defer rows.Close()

	return scanSQLiteReadings(rows)
}

// InsertReading stores the raw row and folds it into both rollup tables in
// one transaction, so a bucket is never visible without its raw rows
func (s *SQLiteStore) InsertReading(ctx context.Context, r models.NoiseReading) (int64, error) {
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

	res, err := tx.ExecContext(ctx, `INSERT INTO noise_readings
		(device_id, max_dba, min_dba, avg_dba, stddev_dba, peaks, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.DeviceID, r.MaxDBA, r.MinDBA, r.AvgDBA, r.StddevDBA, string(peaksJSON),
		createdAt.Format(sqliteTimeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to insert reading: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read insert id: %w", err)
	}

	minuteBucket := GranularityMinute.Truncate(createdAt).Format(sqliteTimeLayout)
	if _, err := tx.ExecContext(ctx, sqliteUpsertMinute,
		minuteBucket, r.DeviceID, r.AvgDBA, r.MaxDBA, r.MinDBA); err != nil {
		return 0, fmt.Errorf("failed to upsert minute rollup: %w", err)
	}

	hourBucket := GranularityHour.Truncate(createdAt).Format(sqliteTimeLayout)
	if _, err := tx.ExecContext(ctx, sqliteUpsertHour,
		hourBucket, r.DeviceID, r.AvgDBA, r.MaxDBA, r.MinDBA); err != nil {
		return 0, fmt.Errorf("failed to upsert hour rollup: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit reading: %w", err)
	}
	return id, nil
}

// ListDevices derives the device list from the readings table
func (s *SQLiteStore) ListDevices(ctx context.Context) ([]models.Device, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT device_id, MIN(created_at)
		FROM noise_readings GROUP BY device_id ORDER BY device_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		var code, firstSeen string
		if err := rows.Scan(&code, &firstSeen); err != nil {
			return nil, fmt.Errorf("failed to scan device row: %w", err)
		}
		devices = append(devices, models.Device{
			ID:        int64(len(devices) + 1),
			Code:      code,
			IsActive:  true,
			CreatedAt: canonicalStoredTime(firstSeen),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return devices, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSQLiteReadings(rows *sql.Rows) ([]models.NoiseReading, error) {
	var readings []models.NoiseReading
	for rows.Next() {
		var r models.NoiseReading
		var peaksJSON, createdAt string
		var maxDBA, minDBA, avgDBA, stddevDBA any
		if err := rows.Scan(&r.ID, &r.DeviceID, &maxDBA, &minDBA, &avgDBA, &stddevDBA, &peaksJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		r.MaxDBA = coerceFloat(maxDBA)
		r.MinDBA = coerceFloat(minDBA)
		r.AvgDBA = coerceFloat(avgDBA)
		r.StddevDBA = coerceFloat(stddevDBA)
		r.Peaks = parsePeaks([]byte(peaksJSON))
		r.CreatedAt = canonicalStoredTime(createdAt)
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return readings, nil
}

// parsePeaks decodes the JSON sample array. A malformed column degrades to an
// empty sample set rather than failing the whole request.
func parsePeaks(raw []byte) []float64 {
	if len(raw) == 0 {
		return []float64{}
	}
	var peaks []float64
	if err := json.Unmarshal(raw, &peaks); err != nil || peaks == nil {
		return []float64{}
	}
	return peaks
}

// canonicalStoredTime converts a stored naive/UTC timestamp to the canonical
// ISO-8601 UTC string
func canonicalStoredTime(value string) string {
	parsed, err := utils.ParseTimestampUTC(value)
	if err != nil {
		return value
	}
	return parsed.Format(utils.BucketTimeLayout)
}
