package cli

import (
	"flag"
	"fmt"

	"audio-batch-converter/internal/discovery"
	"audio-batch-converter/internal/runlog"
)

func runLog(args []string) error {
	fs := flag.NewFlagSet("log", flag.ContinueOnError)
	limit := fs.Int("limit", 10, "number of recent runs to show (0 = all)")
	logPath := fs.String("log", "", "run log path (default from settings)")
	settingsPath := fs.String("settings", discovery.DefaultSettingsPath, "settings file path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := discovery.ReadSettings(*settingsPath)
	if err != nil {
		return err
	}
	path := firstNonEmpty(*logPath, settings.LogPath)

	entries, err := runlog.Tail(path, *limit)
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("no conversion runs recorded")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  %s  %d file(s) -> %s (%s)\n", e.Timestamp, shortID(e.ID), len(e.InputFiles), e.OutputFolder, e.OutputFormat)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
