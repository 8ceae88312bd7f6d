package utils

import (
	"fmt"
	"time"

	"noisedash/internal/config"
)

// BucketTimeLayout is the canonical bucket-start timestamp format returned to
// the dashboard: UTC, whole seconds, trailing Z.
const BucketTimeLayout = "2006-01-02T15:04:05Z"

// DateOnlyLayout is the layout accepted for single-date range requests.
const DateOnlyLayout = "2006-01-02"

// TimeConfig holds timezone configuration
type TimeConfig struct {
	UseUTC      bool
	DefaultZone *time.Location
}

var timeConfig = &TimeConfig{
	UseUTC:      true, // Default to UTC for reproducible bucket boundaries
	DefaultZone: time.UTC,
}

// InitTimeConfig initializes timezone configuration from environment.
// Range boundaries like "today" shift by the zone's UTC offset, so the zone
// is an explicit configuration input rather than an implicit server default.
func InitTimeConfig() {
	envConfig := config.GetEnvConfig()

	if envConfig.DisableUTCEnforcement {
		timeConfig.UseUTC = false
		timeConfig.DefaultZone = time.Local
		LogInfo("UTC enforcement disabled, using local timezone for range boundaries")
	} else {
		timeConfig.UseUTC = true
		timeConfig.DefaultZone = time.UTC
	}

	// Allow custom timezone configuration
	if envConfig.DefaultTimezone != "" && envConfig.DefaultTimezone != "UTC" {
		if loc, err := time.LoadLocation(envConfig.DefaultTimezone); err == nil {
			timeConfig.DefaultZone = loc
			LogInfo("using custom timezone: %s", envConfig.DefaultTimezone)
		} else {
			LogWarnWithContext("time-config", fmt.Sprintf("invalid timezone '%s', falling back to UTC", envConfig.DefaultTimezone), err)
		}
	}
}

// NowUTC returns the current time in UTC
func NowUTC() time.Time {
	return time.Now().UTC()
}

// FormatTimestampUTC formats a time consistently using RFC3339Nano in UTC
func FormatTimestampUTC(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp parses a timestamp string. Layouts without a zone are
// treated as UTC, matching how the storage layer keeps naive timestamps.
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	zoned := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z07:00",
	}
	naive := []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		DateOnlyLayout,
	}

	for _, layout := range zoned {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	for _, layout := range naive {
		if parsed, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, fmt.Errorf("unsupported time format: %s", value)
}

// ParseTimestampUTC parses a timestamp string and returns it in UTC
func ParseTimestampUTC(value string) (time.Time, error) {
	parsed, err := ParseTimestamp(value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

// CanonicalBucketString normalizes a bucket timestamp string to the canonical
// UTC form with trailing Z. Idempotent: canonical input is returned unchanged.
func CanonicalBucketString(value string) (string, error) {
	parsed, err := ParseTimestampUTC(value)
	if err != nil {
		return "", err
	}
	return parsed.Format(BucketTimeLayout), nil
}

// GetDefaultTimezone returns the configured default timezone
func GetDefaultTimezone() *time.Location {
	return timeConfig.DefaultZone
}

// IsUTCEnforced returns whether UTC enforcement is enabled
func IsUTCEnforced() bool {
	return timeConfig.UseUTC
}
