package discovery

import (
	"os"

	"github.com/dhowden/tag"

	"audio-batch-converter/internal/ffmpeg"
)

// FileReport is everything the inspect path knows about one input: stream
// validity and duration from ffprobe, embedded tags when the container
// carries any.
type FileReport struct {
	Path            string  `json:"path"`
	Valid           bool    `json:"valid"`
	DurationSeconds float64 `json:"duration_seconds"`
	Artist          string  `json:"artist,omitempty"`
	Title           string  `json:"title,omitempty"`
	Album           string  `json:"album,omitempty"`
}

// ProbeFile never fails: unreadable files report as invalid, missing tags
// leave the fields empty.
func ProbeFile(path string) FileReport {
	report := FileReport{
		Path:            path,
		Valid:           ffmpeg.HasAudioStream(path),
		DurationSeconds: ffmpeg.Duration(path),
	}

	f, err := os.Open(path)
	if err != nil {
		return report
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return report
	}
	report.Artist = meta.Artist()
	report.Title = meta.Title()
	report.Album = meta.Album()
	return report
}
