package monitor

import (
	"testing"
	"time"
)

func TestParseScheduleVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		raw      string
		kind     SpecKind
		source   string
		duration time.Duration
	}{
		{name: "cron", raw: "*/5 * * * *", kind: SpecCron, source: "cron"},
		{name: "descriptor", raw: "@every 30s", kind: SpecCron, source: "cron"},
		{name: "prefixed cron", raw: "cron:0 0 * * *", kind: SpecCron, source: "cron"},
		{name: "duration", raw: "30s", kind: SpecInterval, source: "duration", duration: 30 * time.Second},
		{name: "prefixed interval", raw: "interval:45s", kind: SpecInterval, source: "duration", duration: 45 * time.Second},
		{name: "hhmm", raw: "01:30", kind: SpecInterval, source: "hhmm", duration: 90 * time.Minute},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedule(tt.raw)
			if err != nil {
				t.Fatalf("ParseSchedule(%q) error: %v", tt.raw, err)
			}
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if got.Source != tt.source {
				t.Fatalf("Source = %s, want %s", got.Source, tt.source)
			}
			if tt.kind == SpecInterval && got.Every != tt.duration {
				t.Fatalf("Every = %v, want %v", got.Every, tt.duration)
			}
		})
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not-a-schedule", "-5s", "01:60"} {
		if _, err := ParseSchedule(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestScheduleNextWait(t *testing.T) {
	t.Parallel()

	s, err := NewSchedule("30s")
	if err != nil {
		t.Fatalf("NewSchedule error: %v", err)
	}
	if got := s.NextWait(time.Now()); got != 30*time.Second {
		t.Fatalf("interval NextWait = %v, want 30s", got)
	}

	s, err = NewSchedule("0 * * * *")
	if err != nil {
		t.Fatalf("NewSchedule cron error: %v", err)
	}
	now := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)
	if got := s.NextWait(now); got != 45*time.Minute {
		t.Fatalf("cron NextWait = %v, want 45m", got)
	}
}

func TestScheduleRejectsBadCron(t *testing.T) {
	t.Parallel()
	if _, err := NewSchedule("cron:61 * * * *"); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}
