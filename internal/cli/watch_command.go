package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"

	"audio-batch-converter/internal/discovery"
	"audio-batch-converter/internal/runlog"
)

const watchStabilityPoll = 300 * time.Millisecond

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(flag.CommandLine.Output())
	outputDir := fs.String("out", "", "output directory (default from settings)")
	format := fs.String("format", "", "target format: "+strings.Join(discovery.SupportedFormats, "|"))
	bitrate := fs.String("bitrate", "", "audio bitrate: "+strings.Join(discovery.SupportedBitrates, "|"))
	workers := fs.Int("workers", 0, "max concurrent encoders (0 = CPU count - 1)")
	overwrite := fs.String("overwrite", "", "overwrite existing outputs, true or false (default from settings)")
	settingsPath := fs.String("settings", discovery.DefaultSettingsPath, "settings file")
	quiet := fs.Duration("quiet", 2*time.Second, "quiet period before a detected file is converted")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: audio-batch-converter watch [flags] <directory>")
		fmt.Fprintln(fs.Output(), "\nConverts supported audio files as they appear in the directory.")
		fmt.Fprintln(fs.Output(), "\nFlags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("watch requires exactly one directory")
	}
	dir := filepath.Clean(fs.Arg(0))
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch target %s is not a directory", dir)
	}

	settings, _, err := discovery.EnsureSettings(*settingsPath)
	if err != nil {
		return err
	}
	var overwritePtr *bool
	if *overwrite != "" {
		v, err := strconv.ParseBool(*overwrite)
		if err != nil {
			return fmt.Errorf("invalid --overwrite value %q", *overwrite)
		}
		overwritePtr = &v
	}
	cfg, err := discovery.ResolveRunConfig(settings, *outputDir, *format, *bitrate, *workers, overwritePtr)
	if err != nil {
		return err
	}
	logger := buildLogger(*verbose)

	lock, err := runlog.AcquireWatchLock(dir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	found := make(chan string, 128)
	go forwardWatchEvents(ctx, watcher, found, logger)

	fmt.Printf("watching %s for new audio files (format %s, bitrate %s), press ctrl+c to stop\n",
		dir, cfg.Format, cfg.Bitrate)

	pending := map[string]bool{}
	var debounce *time.Timer
	var quietC <-chan time.Time
	arm := func() {
		if debounce == nil {
			debounce = time.NewTimer(*quiet)
			quietC = debounce.C
			return
		}
		if !debounce.Stop() {
			select {
			case <-debounce.C:
			default:
			}
		}
		debounce.Reset(*quiet)
	}

	for {
		select {
		case <-ctx.Done():
			fmt.Println("stopped watching")
			return nil
		case path := <-found:
			if !watchCandidate(path, cfg.OutputDir) {
				continue
			}
			if !pending[path] {
				pending[path] = true
				logger.Debug("candidate detected", "path", path)
			}
			arm()
		case <-quietC:
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			pending = map[string]bool{}
			sort.Strings(batch)

			stable := settleCandidates(batch, pending, logger)
			if len(pending) > 0 {
				arm()
			}
			if len(stable) == 0 {
				continue
			}

			collected, err := discovery.CollectInputs(discovery.CollectOptions{
				Paths:  stable,
				Probe:  true,
				Logger: logger,
			})
			if err != nil {
				logger.Warn("collect detected files", "error", err)
				continue
			}
			if len(collected.Inputs) == 0 {
				continue
			}

			fmt.Printf("converting %d detected file(s)\n", len(collected.Inputs))
			res, err := runBatch(ctx, collected.Inputs, cfg, logger, false, false)
			if err != nil {
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					fmt.Println("stopped watching")
					return nil
				}
				logger.Error("batch failed", "error", err)
				continue
			}
			if len(res.Failed) > 0 {
				logger.Warn("batch finished with failures", "failed", len(res.Failed))
			}
		}
	}
}

// forwardWatchEvents narrows raw filesystem events to create and write
// notifications and pushes the affected paths to the coordinator loop.
func forwardWatchEvents(ctx context.Context, watcher *fsnotify.Watcher, found chan<- string, logger hclog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			select {
			case found <- ev.Name:
			default:
				// Buffer full; a growing file fires further write events.
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

// watchCandidate filters events down to supported audio files outside the
// output directory, so freshly written conversions do not trigger another
// batch.
func watchCandidate(path, outputDir string) bool {
	if !discovery.HasSupportedExtension(path) {
		return false
	}
	if rel, err := filepath.Rel(outputDir, path); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}

// settleCandidates keeps files whose size is unchanged across two polls.
// Files still growing go back into pending for the next quiet period;
// files that vanished are dropped.
func settleCandidates(batch []string, pending map[string]bool, logger hclog.Logger) []string {
	sizes := make(map[string]int64, len(batch))
	stable := make([]string, 0, len(batch))
	for _, p := range batch {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		sizes[p] = info.Size()
	}
	time.Sleep(watchStabilityPoll)
	for _, p := range batch {
		first, ok := sizes[p]
		if !ok {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.Size() != first || info.Size() == 0 {
			logger.Debug("file still growing", "path", p)
			pending[p] = true
			continue
		}
		stable = append(stable, p)
	}
	return stable
}
