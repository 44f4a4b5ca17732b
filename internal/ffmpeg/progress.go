package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ProgressParser interprets the key=value telemetry ffmpeg emits under
// `-progress pipe:1`. It carries no state beyond the launch timestamp and
// the probed input duration; construct a fresh one per conversion.
type ProgressParser struct {
	TotalDuration float64
	StartedAt     time.Time
}

// ProgressUpdate is one derived progress sample.
type ProgressUpdate struct {
	ElapsedSeconds   float64
	Percent          float64
	Speed            float64
	RemainingSeconds float64
	Done             bool
}

// Feed consumes one telemetry line. It reports an update for
// `out_time=<timestamp>` lines when the total duration is known, and a
// final done update for `progress=end`; every other line yields nothing.
func (p *ProgressParser) Feed(line string) (ProgressUpdate, bool) {
	key, value, ok := splitTelemetry(line)
	if !ok {
		return ProgressUpdate{}, false
	}

	switch key {
	case "out_time":
		if p.TotalDuration <= 0 {
			return ProgressUpdate{}, false
		}
		elapsed := ParseTimestamp(value)
		percent := elapsed / p.TotalDuration * 100
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		wall := time.Since(p.StartedAt).Seconds()
		speed := 0.0
		if wall > 0 {
			speed = elapsed / wall
		}
		remaining := 0.0
		if speed > 0 {
			remaining = (p.TotalDuration - elapsed) / speed
		}
		return ProgressUpdate{
			ElapsedSeconds:   elapsed,
			Percent:          percent,
			Speed:            speed,
			RemainingSeconds: remaining,
		}, true
	case "progress":
		if value == "end" {
			return ProgressUpdate{Percent: 100, Done: true}, true
		}
	}
	return ProgressUpdate{}, false
}

func splitTelemetry(line string) (key, value string, ok bool) {
	l := strings.TrimSpace(line)
	i := strings.IndexByte(l, '=')
	if i <= 0 {
		return "", "", false
	}
	return l[:i], strings.TrimSpace(l[i+1:]), true
}

// ParseTimestamp converts an ffmpeg `H:MM:SS[.fraction]` timestamp into
// total seconds. Malformed input parses to 0, never an error.
func ParseTimestamp(value string) float64 {
	hms := value
	frac := 0.0
	if dot := strings.IndexByte(value, '.'); dot >= 0 {
		hms = value[:dot]
		f, err := strconv.ParseFloat("0."+value[dot+1:], 64)
		if err != nil {
			return 0
		}
		frac = f
	}

	parts := strings.Split(hms, ":")
	if len(parts) != 3 {
		return 0
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	s, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0
	}
	return float64(h)*3600 + float64(m)*60 + float64(s) + frac
}

// FormatClock renders a second count as H:MM:SS (hours unpadded), the
// shape used for remaining-time estimates.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
