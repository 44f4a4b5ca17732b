package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"audio-batch-converter/internal/convert"
	"audio-batch-converter/internal/discovery"
	"audio-batch-converter/internal/model"
	"audio-batch-converter/internal/runlog"
)

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	out := fs.String("out", "", "output directory (default from settings)")
	format := fs.String("format", "", "target format: "+strings.Join(discovery.SupportedFormats, "|"))
	bitrate := fs.String("bitrate", "", "audio bitrate: "+strings.Join(discovery.SupportedBitrates, "|"))
	workers := fs.Int("workers", 0, "max concurrent encoders (0 = CPU count - 1)")
	overwrite := fs.Bool("overwrite", false, "overwrite existing outputs instead of skipping them")
	recursive := fs.Bool("recursive", false, "scan directories recursively")
	skipValidation := fs.Bool("skip-validation", false, "do not probe inputs for an audio stream")
	progress := fs.Bool("progress", false, "render live progress while converting")
	settingsPath := fs.String("settings", discovery.DefaultSettingsPath, "settings file path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("at least one file or directory is required")
	}

	logger := buildLogger(*verbose)

	settings, _, err := discovery.EnsureSettings(*settingsPath)
	if err != nil {
		return err
	}
	var overwriteFlag *bool
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "overwrite" {
			overwriteFlag = overwrite
		}
	})
	cfg, err := discovery.ResolveRunConfig(settings, *out, *format, *bitrate, *workers, overwriteFlag)
	if err != nil {
		return err
	}

	collected, err := discovery.CollectInputs(discovery.CollectOptions{
		Paths:     fs.Args(),
		Recursive: *recursive,
		Probe:     !*skipValidation,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if !*jsonOut {
		for _, p := range collected.Ignored {
			fmt.Printf("ignoring unsupported file: %s\n", p)
		}
		for _, p := range collected.Invalid {
			fmt.Printf("skipping (no audio stream): %s\n", p)
		}
	}
	if len(collected.Inputs) == 0 {
		return errors.New("no convertible input files found")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	res, err := runBatch(ctx, collected.Inputs, cfg, logger, *progress, *jsonOut)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if *jsonOut {
		if err := printJSON(res); err != nil {
			return err
		}
	} else if len(res.Failed) > 0 {
		fmt.Println("failed files:")
		for _, f := range res.Failed {
			fmt.Printf("  %s\n", f)
		}
	}

	if res.Finished && !res.Success {
		return fmt.Errorf("%d conversion(s) failed", res.Counts.Failed)
	}
	return nil
}

type batchRenderer interface {
	Start()
	Stop(final string)
	SetStatus(index int, status string)
	SetProgress(index int, percent float64)
	SetInfo(index int, text string)
	SetOverall(percent float64)
}

// runBatch drives one conversion session with the CLI's output wiring:
// live renderer or plain per-job lines, then the run record on a finished
// batch. Cancelling ctx stops the batch.
func runBatch(ctx context.Context, inputs []string, cfg discovery.RunConfig, logger hclog.Logger, showProgress, quiet bool) (convert.Result, error) {
	limit := cfg.Workers
	if limit <= 0 {
		limit = convert.DefaultWorkers()
	}

	var renderer batchRenderer
	if showProgress && !quiet {
		if limit > 1 {
			renderer = convert.NewDashboard(inputs, limit)
		} else {
			renderer = convert.NewLiveProgress(inputs)
		}
	}

	names := make([]string, len(inputs))
	for i, input := range inputs {
		names[i] = filepath.Base(input)
	}
	statuses := make([]string, len(inputs))
	errTexts := make([]string, len(inputs))
	done := 0

	cb := convert.Callbacks{
		StatusChanged: func(index int, status string) {
			statuses[index] = status
		},
	}
	switch {
	case renderer != nil:
		cb.StatusChanged = func(index int, status string) {
			statuses[index] = status
			renderer.SetStatus(index, status)
		}
		cb.ProgressChanged = renderer.SetProgress
		cb.InfoChanged = renderer.SetInfo
		cb.OverallProgressChanged = renderer.SetOverall
	case !quiet:
		cb.ErrorOccurred = func(index int, message string) {
			errTexts[index] = lastLine(message)
		}
		cb.JobFinished = func(index, exitCode int) {
			done++
			switch statuses[index] {
			case model.StatusFailed:
				fmt.Printf("failed %s: %s (%d/%d)\n", names[index], errTexts[index], done, len(inputs))
			case model.StatusSkipped:
				fmt.Printf("skipped %s, output exists (%d/%d)\n", names[index], done, len(inputs))
			default:
				fmt.Printf("completed %s (%d/%d)\n", names[index], done, len(inputs))
			}
		}
	}

	if err := runlog.Mkdir(cfg.OutputDir); err != nil {
		return convert.Result{}, err
	}

	session, err := convert.New(convert.Options{
		Inputs:    inputs,
		OutputDir: cfg.OutputDir,
		Format:    cfg.Format,
		Bitrate:   cfg.Bitrate,
		Overwrite: cfg.Overwrite,
		Workers:   limit,
		Logger:    logger,
		Callbacks: cb,
	})
	if err != nil {
		return convert.Result{}, err
	}

	if renderer != nil {
		renderer.Start()
	}
	res, runErr := session.Run(ctx)
	if renderer != nil {
		renderer.Stop(summaryLine(res))
	} else if !quiet {
		fmt.Println(summaryLine(res))
	}

	if res.Finished {
		entry := runlog.NewEntry(inputs, cfg.OutputDir, cfg.Format)
		if err := runlog.Append(cfg.LogPath, entry); err != nil {
			logger.Error("failed to write run record", "path", cfg.LogPath, "error", err)
		}
	}
	return res, runErr
}

func summaryLine(res convert.Result) string {
	if res.Stopped {
		terminal := res.Counts.Completed + res.Counts.Failed + res.Counts.Skipped
		return fmt.Sprintf("stopped: %d/%d jobs done", terminal, res.Counts.Total)
	}
	line := fmt.Sprintf("done: %d converted", res.Counts.Completed)
	if res.Counts.Skipped > 0 {
		line += fmt.Sprintf(", %d skipped", res.Counts.Skipped)
	}
	if res.Counts.Failed > 0 {
		line += fmt.Sprintf(", %d failed", res.Counts.Failed)
	}
	return line
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
