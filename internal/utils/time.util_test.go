package utils

import (
	"testing"
	"time"
)

func TestParseTimestampNaiveTreatedAsUTC(t *testing.T) {
	tests := []struct {
		value string
		want  time.Time
	}{
		{"2025-03-12T10:15:00Z", time.Date(2025, 3, 12, 10, 15, 0, 0, time.UTC)},
		{"2025-03-12T10:15:00+05:30", time.Date(2025, 3, 12, 4, 45, 0, 0, time.UTC)},
		{"2025-03-12T10:15:00", time.Date(2025, 3, 12, 10, 15, 0, 0, time.UTC)},
		{"2025-03-12 10:15:00", time.Date(2025, 3, 12, 10, 15, 0, 0, time.UTC)},
		{"2025-03-12", time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ParseTimestampUTC(tt.value)
		if err != nil {
			t.Errorf("ParseTimestampUTC(%q) failed: %v", tt.value, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTimestampUTC(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	for _, value := range []string{"", "noonish", "12/03/2025", "2025-13-40"} {
		if _, err := ParseTimestamp(value); err == nil {
			t.Errorf("ParseTimestamp(%q) should fail", value)
		}
	}
}

func TestCanonicalBucketStringIdempotent(t *testing.T) {
	once, err := CanonicalBucketString("2025-03-12 10:15:00")
	if err != nil {
		t.Fatalf("CanonicalBucketString failed: %v", err)
	}
	if once != "2025-03-12T10:15:00Z" {
		t.Errorf("canonical form = %q", once)
	}

	twice, err := CanonicalBucketString(once)
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if twice != once {
		t.Errorf("not idempotent: %q then %q", once, twice)
	}
}
