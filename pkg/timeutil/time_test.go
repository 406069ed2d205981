package timeutil

import (
	"testing"
	"time"
)

func TestNow_AlwaysUTC(t *testing.T) {
	now := Now()

	if now.Location() != time.UTC {
		t.Errorf("Now() returned non-UTC timezone: %v", now.Location())
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-05-20")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	want := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDate() = %v, want %v", got, want)
	}

	if _, err := ParseDate("20/05/2025"); err == nil {
		t.Error("ParseDate() expected error for non ISO date")
	}
}

func TestDateIn(t *testing.T) {
	caracas := time.FixedZone("VET", -4*60*60)

	tests := []struct {
		name     string
		input    time.Time
		loc      *time.Location
		expected string
	}{
		{
			name:     "early UTC morning is previous day in Caracas",
			input:    time.Date(2025, 5, 21, 2, 0, 0, 0, time.UTC),
			loc:      caracas,
			expected: "2025-05-20",
		},
		{
			name:     "afternoon UTC is same day in Caracas",
			input:    time.Date(2025, 5, 21, 15, 0, 0, 0, time.UTC),
			loc:      caracas,
			expected: "2025-05-21",
		},
		{
			name:     "nil location means UTC",
			input:    time.Date(2025, 5, 21, 23, 59, 0, 0, time.UTC),
			loc:      nil,
			expected: "2025-05-21",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DateIn(tt.input, tt.loc)
			if got.Format("2006-01-02") != tt.expected {
				t.Errorf("DateIn() = %v, want %v", got.Format("2006-01-02"), tt.expected)
			}
			if got.Location() != time.UTC || got.Hour() != 0 {
				t.Errorf("DateIn() = %v, want UTC midnight", got)
			}
		})
	}
}

func TestTodayIn(t *testing.T) {
	got := TodayIn(time.UTC)
	if got.Format("2006-01-02") != time.Now().UTC().Format("2006-01-02") {
		t.Errorf("TodayIn(UTC) = %v", got)
	}
}
