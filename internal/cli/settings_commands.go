package cli

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"audio-batch-converter/internal/discovery"
)

func runSettings(args []string) error {
	if len(args) == 0 {
		printSettingsUsage()
		return nil
	}
	switch args[0] {
	case "show":
		return runSettingsShow(args[1:])
	case "set":
		return runSettingsSet(args[1:])
	case "help", "-h", "--help":
		printSettingsUsage()
		return nil
	default:
		printSettingsUsage()
		return fmt.Errorf("unknown settings subcommand %q", args[0])
	}
}

func runSettingsShow(args []string) error {
	fs := flag.NewFlagSet("settings show", flag.ContinueOnError)
	settingsPath := fs.String("settings", discovery.DefaultSettingsPath, "settings file path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, _, err := discovery.EnsureSettings(*settingsPath)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"settings_path": strings.TrimSpace(*settingsPath),
			"settings":      settings,
		})
	}

	fmt.Printf("settings: %s\n", strings.TrimSpace(*settingsPath))
	fmt.Printf("output_dir: %s\n", settings.OutputDir)
	fmt.Printf("format: %s\n", settings.Format)
	fmt.Printf("bitrate: %s\n", settings.Bitrate)
	if settings.Workers == 0 {
		fmt.Println("workers: auto")
	} else {
		fmt.Printf("workers: %d\n", settings.Workers)
	}
	fmt.Printf("overwrite: %t\n", settings.Overwrite)
	fmt.Printf("log_path: %s\n", settings.LogPath)
	return nil
}

func runSettingsSet(args []string) error {
	fs := flag.NewFlagSet("settings set", flag.ContinueOnError)
	settingsPath := fs.String("settings", discovery.DefaultSettingsPath, "settings file path")
	out := fs.String("out", "", "default output directory (empty keeps current)")
	format := fs.String("format", "", "default target format (empty keeps current)")
	bitrate := fs.String("bitrate", "", "default bitrate (empty keeps current)")
	workers := fs.Int("workers", -1, "default worker count (0 = auto, -1 keeps current)")
	overwrite := fs.String("overwrite", "", "overwrite outputs by default: true|false (empty keeps current)")
	logPath := fs.String("log", "", "run log path (empty keeps current)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, _, err := discovery.EnsureSettings(*settingsPath)
	if err != nil {
		return err
	}

	if strings.TrimSpace(*out) != "" {
		settings.OutputDir = strings.TrimSpace(*out)
	}
	if strings.TrimSpace(*format) != "" {
		f := strings.ToLower(strings.TrimSpace(*format))
		if !discovery.IsSupportedFormat(f) {
			return fmt.Errorf("--format must be one of: %s", strings.Join(discovery.SupportedFormats, ", "))
		}
		settings.Format = f
	}
	if strings.TrimSpace(*bitrate) != "" {
		b := strings.ToLower(strings.TrimSpace(*bitrate))
		if !discovery.IsSupportedBitrate(b) {
			return fmt.Errorf("--bitrate must be one of: %s", strings.Join(discovery.SupportedBitrates, ", "))
		}
		settings.Bitrate = b
	}
	if *workers != -1 {
		if *workers < 0 {
			return errors.New("--workers must be >= 0")
		}
		settings.Workers = *workers
	}
	if strings.TrimSpace(*overwrite) != "" {
		v, err := strconv.ParseBool(strings.TrimSpace(*overwrite))
		if err != nil {
			return errors.New("--overwrite must be true or false")
		}
		settings.Overwrite = v
	}
	if strings.TrimSpace(*logPath) != "" {
		settings.LogPath = strings.TrimSpace(*logPath)
	}

	res, err := discovery.UpdateSettings(*settingsPath, settings)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}

	fmt.Printf("updated settings in %s\n", res.SettingsPath)
	fmt.Printf("output_dir: %s\n", res.Settings.OutputDir)
	fmt.Printf("format: %s\n", res.Settings.Format)
	fmt.Printf("bitrate: %s\n", res.Settings.Bitrate)
	if res.Settings.Workers == 0 {
		fmt.Println("workers: auto")
	} else {
		fmt.Printf("workers: %d\n", res.Settings.Workers)
	}
	fmt.Printf("overwrite: %t\n", res.Settings.Overwrite)
	fmt.Printf("log_path: %s\n", res.Settings.LogPath)
	return nil
}

func printSettingsUsage() {
	fmt.Println("settings commands:")
	fmt.Println("  settings show")
	fmt.Println("  settings set [--out DIR] [--format F] [--bitrate B] [--workers N] [--overwrite true|false] [--log PATH]")
}
