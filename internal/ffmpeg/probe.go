package ffmpeg

import (
	"bytes"
	"os/exec"
	"strconv"
	"strings"
)

// Duration returns the input's total duration in seconds via ffprobe.
// Probe failures of any kind (missing binary, unreadable file, empty or
// non-numeric output) degrade to 0; progress for such inputs can only
// complete through the encoder's end-of-stream signal.
func Duration(inputPath string) float64 {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	_ = cmd.Run()

	value, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0
	}
	return value
}

// HasAudioStream reports whether ffprobe finds at least one audio stream
// in the file. Corrupt and non-media files are filtered with this before
// a batch is planned.
func HasAudioStream(inputPath string) bool {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_streams",
		"-select_streams", "a",
		inputPath,
	)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	_ = cmd.Run()

	return strings.TrimSpace(stdout.String()) != ""
}
