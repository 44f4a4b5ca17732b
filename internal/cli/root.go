package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "convert":
		return runConvert(args[1:])
	case "interactive":
		return runInteractive(args[1:])
	case "watch":
		return runWatch(args[1:])
	case "probe":
		return runProbe(args[1:])
	case "formats":
		return runFormats(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "settings":
		return runSettings(args[1:])
	case "log":
		return runLog(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("audio-batch-converter: batch audio conversion driven by ffmpeg")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  audio-batch-converter convert --format mp3 --bitrate 192k <files or dirs>")
	fmt.Println("  audio-batch-converter interactive <files or dirs>")
	fmt.Println("  audio-batch-converter watch <dir>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  convert      convert files and directories in one batch")
	fmt.Println("  interactive  full-screen conversion with an options form")
	fmt.Println("  watch        convert supported files as they appear in a directory")
	fmt.Println("  probe        inspect duration, validity and tags of files")
	fmt.Println("  formats      list supported formats and bitrates")
	fmt.Println("  doctor       run dependency and filesystem preflight checks")
	fmt.Println("  settings     show/update persisted conversion defaults")
	fmt.Println("  log          list past conversion runs")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Use --json on commands for machine-readable output")
	fmt.Println("  - Flags beat persisted settings; see 'settings show'")
	fmt.Println("  - Press ctrl+c during a batch to stop active encoders")
}
