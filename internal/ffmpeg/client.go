package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

type OutputStream string

const (
	StreamStdout OutputStream = "stdout"
	StreamStderr OutputStream = "stderr"
)

// ConvertOptions describes one encoder invocation. Telemetry arrives on
// stdout via `-progress pipe:1`; the human-readable encoder log arrives on
// stderr and is captured for failure reporting.
type ConvertOptions struct {
	InputPath  string
	OutputPath string
	Bitrate    string

	Stdout     io.Writer
	Stderr     io.Writer
	EchoOutput bool
	Progress   func(stream OutputStream, line string)
}

type ConvertResult struct {
	// ExitCode is the encoder's exit status: 0 on success, -1 when the
	// process was killed before exiting on its own.
	ExitCode int
	// Stderr holds a bounded capture of the encoder's error output.
	Stderr string
}

type DependencyReport struct {
	FFmpegFound  bool   `json:"ffmpeg_found"`
	FFmpegPath   string `json:"ffmpeg_path,omitempty"`
	FFprobeFound bool   `json:"ffprobe_found"`
	FFprobePath  string `json:"ffprobe_path,omitempty"`
}

func DependencyStatus() DependencyReport {
	report := DependencyReport{}
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		report.FFmpegFound = true
		report.FFmpegPath = path
	}
	if path, err := exec.LookPath("ffprobe"); err == nil {
		report.FFprobeFound = true
		report.FFprobePath = path
	}
	return report
}

func CheckDependencies() error {
	report := DependencyStatus()
	if !report.FFmpegFound {
		return fmt.Errorf("missing dependency: ffmpeg is not installed or not on PATH")
	}
	if !report.FFprobeFound {
		return fmt.Errorf("missing dependency: ffprobe is required for duration and validity probes and was not found on PATH")
	}
	return nil
}

// Convert runs one ffmpeg encode to completion, streaming output lines to
// the Progress callback as they arrive. Cancelling the context kills the
// encoder. The returned error covers setup failures only; an encoder that
// ran and exited reports through ConvertResult.ExitCode.
func Convert(ctx context.Context, opts ConvertOptions) (ConvertResult, error) {
	if strings.TrimSpace(opts.InputPath) == "" {
		return ConvertResult{ExitCode: -1}, fmt.Errorf("input path is required")
	}
	if strings.TrimSpace(opts.OutputPath) == "" {
		return ConvertResult{ExitCode: -1}, fmt.Errorf("output path is required")
	}
	if strings.TrimSpace(opts.Bitrate) == "" {
		return ConvertResult{ExitCode: -1}, fmt.Errorf("bitrate is required")
	}

	args := []string{
		"-i", opts.InputPath,
		"-b:a", opts.Bitrate,
		"-progress", "pipe:1",
		"-y", opts.OutputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return ConvertResult{ExitCode: -1}, fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return ConvertResult{ExitCode: -1}, fmt.Errorf("setup stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return ConvertResult{ExitCode: -1}, fmt.Errorf("start ffmpeg: %w", err)
	}

	var outBuf strings.Builder
	var errBuf strings.Builder
	var mu sync.Mutex
	var wg sync.WaitGroup

	read := func(stream OutputStream, r io.Reader, echoW io.Writer) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)
		scanner.Split(splitByNewlineOrCR)
		for scanner.Scan() {
			line := scanner.Text()
			mu.Lock()
			appendLimited(&outBuf, &errBuf, stream, line)
			mu.Unlock()

			if opts.EchoOutput && echoW != nil {
				_, _ = io.WriteString(echoW, line+"\n")
			}
			if opts.Progress != nil {
				opts.Progress(stream, line)
			}
		}
	}

	wg.Add(2)
	go read(StreamStdout, stdoutPipe, opts.Stdout)
	go read(StreamStderr, stderrPipe, opts.Stderr)
	wg.Wait()

	waitErr := cmd.Wait()
	mu.Lock()
	captured := strings.TrimSpace(errBuf.String())
	mu.Unlock()

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return ConvertResult{ExitCode: -1, Stderr: captured}, fmt.Errorf("wait for ffmpeg: %w", waitErr)
		}
		return ConvertResult{ExitCode: exitErr.ExitCode(), Stderr: captured}, nil
	}
	return ConvertResult{ExitCode: 0, Stderr: captured}, nil
}

// splitByNewlineOrCR tokenizes on both newline and carriage return so the
// encoder's \r-rewritten status lines surface as they are drawn. A
// non-terminated trailing fragment stays buffered until more output or EOF.
func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func appendLimited(outBuf, errBuf *strings.Builder, stream OutputStream, line string) {
	const maxKeep = 8192
	b := outBuf
	if stream == StreamStderr {
		b = errBuf
	}
	if b.Len() >= maxKeep {
		return
	}
	toWrite := line + "\n"
	remain := maxKeep - b.Len()
	if len(toWrite) > remain {
		toWrite = toWrite[:remain]
	}
	b.WriteString(toWrite)
}
