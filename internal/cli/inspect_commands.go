package cli

import (
	"errors"
	"flag"
	"fmt"

	"audio-batch-converter/internal/discovery"
	"audio-batch-converter/internal/ffmpeg"
)

func runProbe(args []string) error {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("at least one file is required")
	}

	reports := make([]discovery.FileReport, 0, fs.NArg())
	for _, path := range fs.Args() {
		reports = append(reports, discovery.ProbeFile(path))
	}

	if *jsonOut {
		return printJSON(reports)
	}
	for i, r := range reports {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("path: %s\n", r.Path)
		fmt.Printf("valid: %t\n", r.Valid)
		fmt.Printf("duration: %s\n", ffmpeg.FormatClock(r.DurationSeconds))
		if r.Artist != "" {
			fmt.Printf("artist: %s\n", r.Artist)
		}
		if r.Title != "" {
			fmt.Printf("title: %s\n", r.Title)
		}
		if r.Album != "" {
			fmt.Printf("album: %s\n", r.Album)
		}
	}
	return nil
}

func runFormats(args []string) error {
	fs := flag.NewFlagSet("formats", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(map[string]any{
			"formats":  discovery.SupportedFormats,
			"bitrates": discovery.SupportedBitrates,
		})
	}
	fmt.Println("formats:")
	for _, f := range discovery.SupportedFormats {
		fmt.Printf("  %s\n", f)
	}
	fmt.Println("bitrates:")
	for _, b := range discovery.SupportedBitrates {
		fmt.Printf("  %s\n", b)
	}
	return nil
}
