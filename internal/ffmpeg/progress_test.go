package ffmpeg

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"00:00:00", 0},
		{"00:01:30", 90},
		{"00:01:30.50", 90.5},
		{"01:02:03", 3723},
		{"10:00:00.25", 36000.25},
		{"", 0},
		{"N/A", 0},
		{"12:34", 0},
		{"aa:bb:cc", 0},
		{"1:2:x.9", 0},
		{"00:01:30.bad", 0},
	}

	for _, tc := range cases {
		got := ParseTimestamp(tc.in)
		if got != tc.want {
			t.Fatalf("ParseTimestamp(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestProgressParser_OutTimeWithKnownDuration(t *testing.T) {
	p := &ProgressParser{
		TotalDuration: 180,
		StartedAt:     time.Now().Add(-time.Second),
	}

	u, ok := p.Feed("out_time=00:01:30.50")
	if !ok {
		t.Fatalf("expected an update for out_time line")
	}
	if u.Percent < 50.27 || u.Percent > 50.28 {
		t.Fatalf("expected percent near 50.27, got %v", u.Percent)
	}
	if u.ElapsedSeconds != 90.5 {
		t.Fatalf("expected elapsed 90.5, got %v", u.ElapsedSeconds)
	}
	if u.Speed <= 0 {
		t.Fatalf("expected positive speed, got %v", u.Speed)
	}
	if u.RemainingSeconds <= 0 {
		t.Fatalf("expected positive remaining estimate, got %v", u.RemainingSeconds)
	}
	if u.Done {
		t.Fatalf("out_time updates must not be terminal")
	}
}

func TestProgressParser_MalformedTimestampYieldsZero(t *testing.T) {
	p := &ProgressParser{TotalDuration: 60, StartedAt: time.Now()}

	u, ok := p.Feed("out_time=garbage")
	if !ok {
		t.Fatalf("expected an update even for a malformed timestamp")
	}
	if u.Percent != 0 || u.ElapsedSeconds != 0 {
		t.Fatalf("malformed timestamp must degrade to zero, got %+v", u)
	}
}

func TestProgressParser_PercentClampedToHundred(t *testing.T) {
	p := &ProgressParser{TotalDuration: 60, StartedAt: time.Now().Add(-time.Second)}

	u, ok := p.Feed("out_time=00:02:00")
	if !ok {
		t.Fatalf("expected an update")
	}
	if u.Percent != 100 {
		t.Fatalf("expected clamped percent 100, got %v", u.Percent)
	}
}

func TestProgressParser_UnknownDurationIgnoresOutTime(t *testing.T) {
	p := &ProgressParser{TotalDuration: 0, StartedAt: time.Now()}

	if _, ok := p.Feed("out_time=00:00:10"); ok {
		t.Fatalf("out_time must be ignored when the total duration is unknown")
	}

	u, ok := p.Feed("progress=end")
	if !ok || !u.Done || u.Percent != 100 {
		t.Fatalf("progress=end must complete even without a known duration, got %+v ok=%v", u, ok)
	}
}

func TestProgressParser_IgnoresUnrelatedLines(t *testing.T) {
	p := &ProgressParser{TotalDuration: 60, StartedAt: time.Now()}

	for _, line := range []string{
		"frame=120",
		"bitrate= 192.0kbits/s",
		"speed=2.5x",
		"progress=continue",
		"not a telemetry line",
		"",
	} {
		if _, ok := p.Feed(line); ok {
			t.Fatalf("expected line %q to be ignored", line)
		}
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00:00"},
		{5, "0:00:05"},
		{90, "0:01:30"},
		{3723, "1:02:03"},
		{3600*26 + 61, "26:01:01"},
		{-4, "0:00:00"},
	}

	for _, tc := range cases {
		if got := FormatClock(tc.seconds); got != tc.want {
			t.Fatalf("FormatClock(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
