package discovery

import (
	"os"
	"path/filepath"
	"strings"

	"audio-batch-converter/internal/ffmpeg"
	"audio-batch-converter/internal/runlog"
)

type DoctorOptions struct {
	OutputDir    string
	SettingsPath string
	LogPath      string
}

type DoctorResult struct {
	OK     bool          `json:"ok"`
	Checks []DoctorCheck `json:"checks"`
}

type DoctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Doctor verifies everything a conversion run needs before any encoder
// starts: both binaries on PATH and writable homes for outputs, settings
// and the run history.
func Doctor(opts DoctorOptions) (DoctorResult, error) {
	outputDir := strings.TrimSpace(opts.OutputDir)
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	settingsPath := normalizeSettingsPath(opts.SettingsPath)
	logPath := strings.TrimSpace(opts.LogPath)
	if logPath == "" {
		logPath = DefaultLogPath
	}

	checks := make([]DoctorCheck, 0, 5)
	dep := ffmpeg.DependencyStatus()
	checks = append(checks, DoctorCheck{
		Name:    "dependency:ffmpeg",
		OK:      dep.FFmpegFound,
		Message: dependencyMessage(dep.FFmpegFound, dep.FFmpegPath, "ffmpeg"),
	})
	checks = append(checks, DoctorCheck{
		Name:    "dependency:ffprobe",
		OK:      dep.FFprobeFound,
		Message: dependencyMessage(dep.FFprobeFound, dep.FFprobePath, "ffprobe"),
	})

	outOK, outMessage := ensureWritableDir(outputDir)
	checks = append(checks, DoctorCheck{
		Name:    "directory:output",
		OK:      outOK,
		Message: outMessage,
	})

	cfgOK, cfgMessage := ensureWritableDir(filepath.Dir(settingsPath))
	checks = append(checks, DoctorCheck{
		Name:    "directory:settings",
		OK:      cfgOK,
		Message: cfgMessage,
	})

	logOK, logMessage := ensureWritableDir(filepath.Dir(logPath))
	checks = append(checks, DoctorCheck{
		Name:    "directory:runlog",
		OK:      logOK,
		Message: logMessage,
	})

	ok := true
	for _, c := range checks {
		if !c.OK {
			ok = false
			break
		}
	}

	return DoctorResult{OK: ok, Checks: checks}, nil
}

func dependencyMessage(ok bool, path, name string) string {
	if ok {
		return name + " found at " + path
	}
	return name + " not found on PATH"
}

func ensureWritableDir(path string) (bool, string) {
	if strings.TrimSpace(path) == "" {
		return false, "empty path"
	}
	if err := runlog.Mkdir(path); err != nil {
		return false, err.Error()
	}
	f, err := os.CreateTemp(path, "audio-batch-converter-check-*.tmp")
	if err != nil {
		return false, err.Error()
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return true, "writable"
}
