package cli

import (
	"errors"
	"flag"
	"fmt"

	"audio-batch-converter/internal/discovery"
)

func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	out := fs.String("out", "", "output directory to check (default from settings)")
	logPath := fs.String("log", "", "run log path to check (default from settings)")
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

	res, err := discovery.Doctor(discovery.DoctorOptions{
		OutputDir:    firstNonEmpty(*out, settings.OutputDir),
		SettingsPath: *settingsPath,
		LogPath:      firstNonEmpty(*logPath, settings.LogPath),
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}

	for _, c := range res.Checks {
		status := "ok"
		if !c.OK {
			status = "fail"
		}
		fmt.Printf("%s: %s (%s)\n", c.Name, status, c.Message)
	}
	if !res.OK {
		return errors.New("doctor checks failed")
	}
	fmt.Println("doctor: all checks passed")
	return nil
}
