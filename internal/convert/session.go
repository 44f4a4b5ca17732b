// Package convert runs a closed batch of encoder jobs under a bounded
// concurrency limit. A single coordinating goroutine owns all job and
// scheduler state; per-job goroutines drive the encoder processes and feed
// events back over a channel, so callbacks never need locking.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"audio-batch-converter/internal/ffmpeg"
	"audio-batch-converter/internal/model"
)

// Callbacks are the session's outbound event surface. Every field is
// optional; all of them are invoked from the coordinating goroutine only,
// in per-job output order.
type Callbacks struct {
	StatusChanged          func(index int, status string)
	ProgressChanged        func(index int, percent float64)
	InfoChanged            func(index int, text string)
	ErrorOccurred          func(index int, message string)
	JobFinished            func(index int, exitCode int)
	OverallProgressChanged func(percent float64)
	BatchFinished          func(success bool, failedInputs []string)
}

type Options struct {
	// Inputs is the closed job set, converted in order. The session never
	// accepts more work after it starts.
	Inputs    []string
	OutputDir string
	Format    string
	Bitrate   string
	Overwrite bool
	// Workers caps concurrent encoder processes. Zero selects
	// max(1, NumCPU-1).
	Workers int

	Logger    hclog.Logger
	Callbacks Callbacks
}

type Result struct {
	Jobs     []model.Job       `json:"jobs"`
	Counts   model.BatchCounts `json:"counts"`
	Failed   []string          `json:"failed,omitempty"`
	Success  bool              `json:"success"`
	Finished bool              `json:"finished"`
	Stopped  bool              `json:"stopped"`
}

// Session converts one batch of files. Create with New, drive with Run,
// interrupt with Stop. A session is single-use.
type Session struct {
	opts   Options
	logger hclog.Logger
	limit  int

	jobs      []model.Job
	queue     []int
	active    map[int]context.CancelFunc
	completed int
	failed    []string

	planning bool
	finished bool
	stopped  bool

	runCtx   context.Context
	events   chan any
	done     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

func New(opts Options) (*Session, error) {
	if strings.TrimSpace(opts.OutputDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if strings.TrimSpace(opts.Format) == "" {
		return nil, fmt.Errorf("output format is required")
	}
	if strings.TrimSpace(opts.Bitrate) == "" {
		return nil, fmt.Errorf("bitrate is required")
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers()
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Session{
		opts:   opts,
		logger: logger,
		limit:  opts.Workers,
		active: map[int]context.CancelFunc{},
		events: make(chan any),
		done:   make(chan struct{}),
		stopCh: make(chan struct{}),
	}, nil
}

// DefaultWorkers sizes the concurrency limit to the machine, keeping one
// core free for the coordinator and the rest of the system.
func DefaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		return 1
	}
	return n
}

// Run blocks until every job is terminal, Stop is called, or ctx is
// cancelled. Missing encoder binaries fail the whole batch before any job
// starts; everything after that point is per-job.
func (s *Session) Run(ctx context.Context) (Result, error) {
	if err := ffmpeg.CheckDependencies(); err != nil {
		close(s.done)
		return Result{}, err
	}
	s.runCtx = ctx
	defer close(s.done)

	s.plan()
	s.admit()
	if s.finished {
		return s.result(), nil
	}

	for {
		select {
		case <-ctx.Done():
			s.halt()
			return s.result(), ctx.Err()
		case <-s.stopCh:
			s.halt()
			return s.result(), nil
		case ev := <-s.events:
			s.dispatch(ev)
			if s.finished {
				return s.result(), nil
			}
		}
	}
}

// Stop kills every active encoder and discards the queue. Discarded jobs
// are neither completed nor failed, no further callbacks fire, and
// BatchFinished is never emitted for a stopped session. Safe to call from
// any goroutine, more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// plan walks the inputs in order, resolving output paths, settling skips
// and probing durations. Skipped jobs run through the same finished
// accounting as everything else so the completed counter always reaches the
// total. Admission starts only after the whole pass is done.
func (s *Session) plan() {
	s.planning = true
	defer func() { s.planning = false }()

	s.jobs = make([]model.Job, 0, len(s.opts.Inputs))
	for i, input := range s.opts.Inputs {
		job := model.Job{
			Index:      i,
			InputPath:  input,
			OutputPath: filepath.Join(s.opts.OutputDir, outputFileName(input, s.opts.Format)),
			Format:     s.opts.Format,
			Bitrate:    s.opts.Bitrate,
		}
		s.jobs = append(s.jobs, job)
		s.transition(i, model.StatusPending)
	}

	for i := range s.jobs {
		job := &s.jobs[i]
		if !s.opts.Overwrite && fileExists(job.OutputPath) {
			s.logger.Debug("output exists, skipping", "index", i, "output", job.OutputPath)
			s.transition(i, model.StatusSkipped)
			s.setProgress(i, 100)
			s.setInfo(i, "output already exists")
			s.finishJob(i, 0)
			continue
		}
		job.DurationSeconds = ffmpeg.Duration(job.InputPath)
		if job.DurationSeconds <= 0 {
			s.logger.Warn("could not probe duration, progress will be coarse", "input", job.InputPath)
		}
		s.queue = append(s.queue, i)
	}

	s.maybeFinishBatch()
}

// admit starts queued jobs in FIFO order while there is capacity. It never
// blocks and never exceeds the limit.
func (s *Session) admit() {
	if s.planning {
		return
	}
	for len(s.active) < s.limit && len(s.queue) > 0 {
		index := s.queue[0]
		s.queue = s.queue[1:]
		s.startJob(index)
	}
}

func (s *Session) startJob(index int) {
	job := &s.jobs[index]
	s.transition(index, model.StatusRunning)
	started := time.Now()
	job.StartedAt = started.UTC().Format(time.RFC3339)

	parser := &ffmpeg.ProgressParser{
		TotalDuration: job.DurationSeconds,
		StartedAt:     started,
	}
	ctx, cancel := context.WithCancel(s.runCtx)
	s.active[index] = cancel
	s.logger.Debug("starting encoder", "index", index, "input", job.InputPath, "active", len(s.active), "queued", len(s.queue))

	go s.runJob(ctx, index, parser, ffmpeg.ConvertOptions{
		InputPath:  job.InputPath,
		OutputPath: job.OutputPath,
		Bitrate:    job.Bitrate,
	})
}

func (s *Session) dispatch(ev any) {
	switch ev := ev.(type) {
	case telemetryEvent:
		s.handleTelemetry(ev)
	case finishedEvent:
		s.handleFinished(ev)
	}
}

func (s *Session) handleTelemetry(ev telemetryEvent) {
	job := &s.jobs[ev.index]
	job.ElapsedSeconds = ev.update.ElapsedSeconds
	job.Speed = ev.update.Speed
	job.RemainingSeconds = ev.update.RemainingSeconds
	s.setProgress(ev.index, ev.update.Percent)
	if ev.update.Done {
		s.setInfo(ev.index, "conversion complete")
		return
	}
	s.setInfo(ev.index, fmt.Sprintf("Speed: %.2fx, Remaining: %s", ev.update.Speed, ffmpeg.FormatClock(ev.update.RemainingSeconds)))
}

func (s *Session) handleFinished(ev finishedEvent) {
	job := &s.jobs[ev.index]
	if cancel, ok := s.active[ev.index]; ok {
		cancel()
	}
	if ev.exitCode == 0 {
		s.transition(ev.index, model.StatusCompleted)
		s.setProgress(ev.index, 100)
	} else {
		s.transition(ev.index, model.StatusFailed)
		job.LastError = ev.stderr
		s.failed = append(s.failed, job.InputPath)
		if cb := s.opts.Callbacks.ErrorOccurred; cb != nil {
			cb(ev.index, ev.stderr)
		}
	}
	s.logger.Debug("encoder finished", "index", ev.index, "exit_code", ev.exitCode, "status", job.Status)
	s.finishJob(ev.index, ev.exitCode)
}

// finishJob is the shared terminal accounting path: every job that reaches
// a terminal state passes through here exactly once, skipped ones included.
func (s *Session) finishJob(index int, exitCode int) {
	job := &s.jobs[index]
	job.ExitCode = exitCode
	job.FinishedAt = time.Now().UTC().Format(time.RFC3339)
	delete(s.active, index)
	s.completed++

	if cb := s.opts.Callbacks.JobFinished; cb != nil {
		cb(index, exitCode)
	}
	if cb := s.opts.Callbacks.OverallProgressChanged; cb != nil {
		cb(float64(s.completed) / float64(len(s.jobs)) * 100)
	}

	s.admit()
	s.maybeFinishBatch()
}

func (s *Session) maybeFinishBatch() {
	if s.finished || s.completed != len(s.jobs) {
		return
	}
	s.finished = true
	success := len(s.failed) == 0
	s.logger.Debug("batch finished", "success", success, "failed", len(s.failed), "total", len(s.jobs))
	if cb := s.opts.Callbacks.BatchFinished; cb != nil {
		cb(success, append([]string(nil), s.failed...))
	}
}

// halt is the stop path: kill everything active, forget everything queued.
func (s *Session) halt() {
	for index, cancel := range s.active {
		s.logger.Debug("killing encoder", "index", index)
		cancel()
	}
	s.active = map[int]context.CancelFunc{}
	s.queue = nil
	s.stopped = true
}

func (s *Session) transition(index int, toStatus string) {
	job := &s.jobs[index]
	if err := model.TransitionJob(job, toStatus); err != nil {
		s.logger.Error("rejected status transition", "error", err)
		return
	}
	if cb := s.opts.Callbacks.StatusChanged; cb != nil {
		cb(index, toStatus)
	}
}

func (s *Session) setProgress(index int, percent float64) {
	s.jobs[index].Progress = percent
	if cb := s.opts.Callbacks.ProgressChanged; cb != nil {
		cb(index, percent)
	}
}

func (s *Session) setInfo(index int, text string) {
	if cb := s.opts.Callbacks.InfoChanged; cb != nil {
		cb(index, text)
	}
}

func (s *Session) result() Result {
	jobs := append([]model.Job(nil), s.jobs...)
	return Result{
		Jobs:     jobs,
		Counts:   model.CountByStatus(jobs),
		Failed:   append([]string(nil), s.failed...),
		Success:  s.finished && len(s.failed) == 0,
		Finished: s.finished,
		Stopped:  s.stopped,
	}
}

// Workers reports the resolved concurrency limit.
func (s *Session) Workers() int {
	return s.limit
}

func outputFileName(inputPath, format string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + format
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
