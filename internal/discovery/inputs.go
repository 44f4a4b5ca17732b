package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"audio-batch-converter/internal/ffmpeg"
)

// SupportedFormats lists the extensions accepted as conversion inputs and
// the targets offered for output, lower-case without the dot.
var SupportedFormats = []string{"mp3", "wav", "flac", "aac", "ogg", "m4a", "wma", "opus", "aiff", "alac"}

// SupportedBitrates are the encoder bitrates offered for the audio stream.
var SupportedBitrates = []string{"128k", "192k", "256k", "320k"}

func IsSupportedFormat(format string) bool {
	f := strings.ToLower(strings.TrimSpace(format))
	for _, s := range SupportedFormats {
		if f == s {
			return true
		}
	}
	return false
}

func IsSupportedBitrate(bitrate string) bool {
	b := strings.ToLower(strings.TrimSpace(bitrate))
	for _, s := range SupportedBitrates {
		if b == s {
			return true
		}
	}
	return false
}

// HasSupportedExtension reports whether the file name carries one of the
// supported input extensions.
func HasSupportedExtension(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return false
	}
	return IsSupportedFormat(ext)
}

type CollectOptions struct {
	// Paths mixes explicit files and directories to scan.
	Paths     []string
	Recursive bool
	// Probe verifies each candidate carries an audio stream before it is
	// accepted. Requires ffprobe.
	Probe  bool
	Logger hclog.Logger
}

type CollectResult struct {
	Inputs  []string `json:"inputs"`
	Ignored []string `json:"ignored,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}

// CollectInputs expands file and directory arguments into the ordered,
// deduplicated input list for one batch. Directories contribute their
// supported files in lexical order; unsupported extensions and invalid
// files are recorded and dropped, never fatal.
func CollectInputs(opts CollectOptions) (CollectResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	result := CollectResult{Inputs: []string{}}
	seen := map[string]bool{}

	add := func(path string) {
		clean := filepath.Clean(path)
		if seen[clean] {
			return
		}
		seen[clean] = true
		if !HasSupportedExtension(clean) {
			result.Ignored = append(result.Ignored, clean)
			return
		}
		if opts.Probe && !ffmpeg.HasAudioStream(clean) {
			logger.Warn("no audio stream, skipping", "input", clean)
			result.Invalid = append(result.Invalid, clean)
			return
		}
		result.Inputs = append(result.Inputs, clean)
	}

	for _, arg := range opts.Paths {
		path := strings.TrimSpace(arg)
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return CollectResult{}, fmt.Errorf("stat input %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		if opts.Recursive {
			walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					return nil
				}
				add(p)
				return nil
			})
			if walkErr != nil {
				return CollectResult{}, fmt.Errorf("scan directory %s: %w", path, walkErr)
			}
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return CollectResult{}, fmt.Errorf("read directory %s: %w", path, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			add(filepath.Join(path, e.Name()))
		}
	}

	return result, nil
}
