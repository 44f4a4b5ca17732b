package convert

import (
	"context"
	"strings"

	"audio-batch-converter/internal/ffmpeg"
)

// Events sent from job goroutines to the session loop. Job goroutines never
// touch session state; they report what the encoder printed and how it
// exited, and the loop does the rest.

type telemetryEvent struct {
	index  int
	update ffmpeg.ProgressUpdate
}

type finishedEvent struct {
	index    int
	exitCode int
	stderr   string
}

// runJob drives one encoder process to completion. Cancelling ctx kills the
// encoder mid-flight; the finished event still fires and the loop decides
// whether anyone is left to hear it.
func (s *Session) runJob(ctx context.Context, index int, parser *ffmpeg.ProgressParser, opts ffmpeg.ConvertOptions) {
	opts.Progress = func(stream ffmpeg.OutputStream, line string) {
		if stream != ffmpeg.StreamStdout {
			return
		}
		update, ok := parser.Feed(line)
		if !ok {
			return
		}
		s.send(telemetryEvent{index: index, update: update})
	}

	res, err := ffmpeg.Convert(ctx, opts)
	stderr := res.Stderr
	if err != nil && strings.TrimSpace(stderr) == "" {
		stderr = err.Error()
	}
	s.send(finishedEvent{index: index, exitCode: res.ExitCode, stderr: stderr})
}

// send delivers an event to the session loop, or drops it once the loop has
// exited. Jobs killed by stop() therefore never publish anything after the
// session is gone.
func (s *Session) send(ev any) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}
