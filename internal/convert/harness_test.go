package convert

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"audio-batch-converter/internal/model"
)

const fakeProbeScript = `#!/usr/bin/env bash
set -euo pipefail
echo "10.000000"
`

const fakeEncodeScript = `#!/usr/bin/env bash
set -euo pipefail
sleep 0.1
echo "out_time=00:00:05.00"
echo "progress=end"
exit 0
`

const fakeSelectiveScript = `#!/usr/bin/env bash
set -euo pipefail
input="$2"
case "$input" in
*bad*)
	echo "boom: invalid data found when processing input" >&2
	exit 1
	;;
esac
echo "out_time=00:00:05.00"
echo "progress=end"
exit 0
`

const fakeHangScript = `#!/usr/bin/env bash
echo "out_time=00:00:01.00"
exec sleep 30
`

func installFakeEncoders(t *testing.T, ffmpegScript, ffprobeScript string) {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bin, "ffmpeg"), []byte(ffmpegScript), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bin, "ffprobe"), []byte(ffprobeScript), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", bin+":"+os.Getenv("PATH"))
}

func makeInputs(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	inputs := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		inputs = append(inputs, path)
	}
	return inputs
}

func TestHarnessSessionConvertsBatchInOrder(t *testing.T) {
	installFakeEncoders(t, fakeEncodeScript, fakeProbeScript)
	tmp := t.TempDir()
	inputs := makeInputs(t, tmp, "a.wav", "b.wav", "c.wav", "d.wav", "e.wav")

	var (
		startOrder []int
		activeNow  int
		maxActive  int
		overalls   []float64
		finished   int
		batchCalls int
		success    bool
		infos      []string
	)

	s, err := New(Options{
		Inputs:    inputs,
		OutputDir: filepath.Join(tmp, "out"),
		Format:    "mp3",
		Bitrate:   "192k",
		Workers:   2,
		Callbacks: Callbacks{
			StatusChanged: func(index int, status string) {
				if status == model.StatusRunning {
					startOrder = append(startOrder, index)
					activeNow++
					if activeNow > maxActive {
						maxActive = activeNow
					}
				}
			},
			InfoChanged: func(index int, text string) {
				infos = append(infos, text)
			},
			JobFinished: func(index, exitCode int) {
				finished++
				activeNow--
			},
			OverallProgressChanged: func(percent float64) {
				overalls = append(overalls, percent)
			},
			BatchFinished: func(ok bool, failedInputs []string) {
				batchCalls++
				success = ok
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed unexpectedly: %v", err)
	}

	if !res.Success || res.Stopped {
		t.Fatalf("expected a clean finish, got %+v", res)
	}
	if res.Counts.Completed != 5 || res.Counts.Failed != 0 {
		t.Fatalf("unexpected counts: %+v", res.Counts)
	}
	if len(startOrder) != 5 {
		t.Fatalf("expected 5 starts, got %d", len(startOrder))
	}
	for i, idx := range startOrder {
		if idx != i {
			t.Fatalf("admission must be FIFO, got order %v", startOrder)
		}
	}
	if maxActive > 2 {
		t.Fatalf("worker limit exceeded: saw %d concurrent jobs", maxActive)
	}
	if finished != 5 {
		t.Fatalf("expected 5 finished callbacks, got %d", finished)
	}
	if batchCalls != 1 || !success {
		t.Fatalf("expected exactly one successful batch callback, got calls=%d success=%v", batchCalls, success)
	}
	for i := 1; i < len(overalls); i++ {
		if overalls[i] < overalls[i-1] {
			t.Fatalf("overall progress regressed: %v", overalls)
		}
	}
	if len(overalls) == 0 || overalls[len(overalls)-1] != 100 {
		t.Fatalf("expected overall progress to end at 100, got %v", overalls)
	}

	sawSpeed := false
	sawComplete := false
	for _, text := range infos {
		if strings.HasPrefix(text, "Speed: ") {
			sawSpeed = true
		}
		if text == "conversion complete" {
			sawComplete = true
		}
	}
	if !sawSpeed || !sawComplete {
		t.Fatalf("expected speed and completion info texts, got %v", infos)
	}

	for _, job := range res.Jobs {
		if job.Status != model.StatusCompleted {
			t.Fatalf("job %d not completed: %+v", job.Index, job)
		}
		if job.Progress != 100 {
			t.Fatalf("job %d progress = %v, want 100", job.Index, job.Progress)
		}
		if filepath.Ext(job.OutputPath) != ".mp3" {
			t.Fatalf("unexpected output path %q", job.OutputPath)
		}
	}
}

func TestHarnessSessionIsolatesFailures(t *testing.T) {
	installFakeEncoders(t, fakeSelectiveScript, fakeProbeScript)
	tmp := t.TempDir()
	inputs := makeInputs(t, tmp, "good1.wav", "bad.wav", "good2.wav")

	var (
		errIndex  = -1
		errText   string
		failedArg []string
	)

	s, err := New(Options{
		Inputs:    inputs,
		OutputDir: filepath.Join(tmp, "out"),
		Format:    "mp3",
		Bitrate:   "192k",
		Workers:   1,
		Callbacks: Callbacks{
			ErrorOccurred: func(index int, message string) {
				errIndex = index
				errText = message
			},
			BatchFinished: func(ok bool, failedInputs []string) {
				failedArg = failedInputs
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed unexpectedly: %v", err)
	}

	if res.Success {
		t.Fatalf("expected failure to be reported")
	}
	if res.Counts.Completed != 2 || res.Counts.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", res.Counts)
	}
	if errIndex != 1 || !strings.Contains(errText, "boom") {
		t.Fatalf("expected captured stderr for job 1, got index=%d text=%q", errIndex, errText)
	}
	if len(failedArg) != 1 || failedArg[0] != inputs[1] {
		t.Fatalf("unexpected failed inputs: %v", failedArg)
	}
	if res.Jobs[1].ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", res.Jobs[1].ExitCode)
	}
	if !strings.Contains(res.Jobs[1].LastError, "boom") {
		t.Fatalf("expected stderr kept on the job, got %q", res.Jobs[1].LastError)
	}
	if res.Jobs[0].Status != model.StatusCompleted || res.Jobs[2].Status != model.StatusCompleted {
		t.Fatalf("other jobs must be unaffected: %+v", res.Counts)
	}
}

func TestHarnessSessionSkipsExistingOutputs(t *testing.T) {
	installFakeEncoders(t, fakeEncodeScript, fakeProbeScript)
	tmp := t.TempDir()
	inputs := makeInputs(t, tmp, "keep.wav", "fresh.wav")

	outDir := filepath.Join(tmp, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "keep.mp3"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	var finishedCodes []int
	var success bool

	s, err := New(Options{
		Inputs:    inputs,
		OutputDir: outDir,
		Format:    "mp3",
		Bitrate:   "192k",
		Workers:   2,
		Callbacks: Callbacks{
			JobFinished: func(index, exitCode int) {
				finishedCodes = append(finishedCodes, exitCode)
			},
			BatchFinished: func(ok bool, failedInputs []string) {
				success = ok
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed unexpectedly: %v", err)
	}

	if !success || !res.Success {
		t.Fatalf("expected a successful batch, got %+v", res)
	}
	if res.Counts.Skipped != 1 || res.Counts.Completed != 1 {
		t.Fatalf("unexpected counts: %+v", res.Counts)
	}
	if res.Jobs[0].Status != model.StatusSkipped || res.Jobs[0].Progress != 100 {
		t.Fatalf("skipped job must be terminal at 100%%: %+v", res.Jobs[0])
	}
	if len(finishedCodes) != 2 {
		t.Fatalf("skipped jobs must pass through the finished path, got %d callbacks", len(finishedCodes))
	}
}

func TestHarnessSessionStopKillsActiveAndDiscardsQueued(t *testing.T) {
	installFakeEncoders(t, fakeHangScript, fakeProbeScript)
	tmp := t.TempDir()
	inputs := makeInputs(t, tmp, "a.wav", "b.wav", "c.wav", "d.wav", "e.wav")

	running := make(chan int, 8)
	var finished, batchCalls int

	s, err := New(Options{
		Inputs:    inputs,
		OutputDir: filepath.Join(tmp, "out"),
		Format:    "mp3",
		Bitrate:   "192k",
		Workers:   3,
		Callbacks: Callbacks{
			StatusChanged: func(index int, status string) {
				if status == model.StatusRunning {
					running <- index
				}
			},
			JobFinished: func(index, exitCode int) {
				finished++
			},
			BatchFinished: func(ok bool, failedInputs []string) {
				batchCalls++
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	results := make(chan Result, 1)
	go func() {
		res, runErr := s.Run(context.Background())
		if runErr != nil {
			t.Errorf("run failed unexpectedly: %v", runErr)
		}
		results <- res
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-running:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %d active jobs", 3)
		}
	}
	s.Stop()

	var res Result
	select {
	case res = <-results:
	case <-time.After(5 * time.Second):
		t.Fatalf("stop did not unblock the session")
	}

	if !res.Stopped {
		t.Fatalf("expected a stopped result, got %+v", res)
	}
	if batchCalls != 0 {
		t.Fatalf("a stopped session must not report batch completion")
	}
	if finished != 0 {
		t.Fatalf("discarded jobs must not report finishing, got %d callbacks", finished)
	}
	if res.Counts.Completed != 0 || res.Counts.Failed != 0 {
		t.Fatalf("discarded jobs are neither completed nor failed: %+v", res.Counts)
	}

	// Give the killed encoders a moment; nothing may surface after stop.
	time.Sleep(150 * time.Millisecond)
	if finished != 0 || batchCalls != 0 {
		t.Fatalf("events leaked after stop: finished=%d batch=%d", finished, batchCalls)
	}
}

func TestHarnessSessionEmptyBatchFinishesImmediately(t *testing.T) {
	installFakeEncoders(t, fakeEncodeScript, fakeProbeScript)

	var batchCalls int
	var success bool

	s, err := New(Options{
		OutputDir: t.TempDir(),
		Format:    "mp3",
		Bitrate:   "192k",
		Callbacks: Callbacks{
			BatchFinished: func(ok bool, failedInputs []string) {
				batchCalls++
				success = ok
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if batchCalls != 1 || !success {
		t.Fatalf("empty batch must finish successfully at once, calls=%d success=%v", batchCalls, success)
	}
	if res.Counts.Total != 0 || !res.Success {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHarnessSessionFailsWhenEncoderMissing(t *testing.T) {
	empty := filepath.Join(t.TempDir(), "bin")
	if err := os.MkdirAll(empty, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", empty)

	s, err := New(Options{
		Inputs:    []string{"a.wav"},
		OutputDir: empty,
		Format:    "mp3",
		Bitrate:   "192k",
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Run(context.Background())
	if err == nil {
		t.Fatalf("expected a missing dependency error")
	}
	if !strings.Contains(err.Error(), "ffmpeg") {
		t.Fatalf("expected the error to name ffmpeg, got %q", err)
	}
}
