package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"audio-batch-converter/internal/runlog"
)

const (
	DefaultSettingsPath = "config/settings.json"
	DefaultOutputDir    = "converted"
	DefaultFormat       = "mp3"
	DefaultBitrate      = "192k"
	DefaultLogPath      = "conversion_log.jsonl"

	settingsSchemaVersion = 1
)

// Settings are the persisted defaults for conversion runs. Zero workers
// means sizing to the machine at run time.
type Settings struct {
	OutputDir string `json:"output_dir,omitempty"`
	Format    string `json:"format,omitempty"`
	Bitrate   string `json:"bitrate,omitempty"`
	Workers   int    `json:"workers,omitempty"`
	Overwrite bool   `json:"overwrite,omitempty"`
	LogPath   string `json:"log_path,omitempty"`
}

type settingsFile struct {
	SchemaVersion int      `json:"schema_version"`
	UpdatedAt     string   `json:"updated_at"`
	Settings      Settings `json:"settings"`
}

type UpdateSettingsResult struct {
	SettingsPath string   `json:"settings_path"`
	Settings     Settings `json:"settings"`
}

func defaultSettings() Settings {
	return Settings{
		OutputDir: DefaultOutputDir,
		Format:    DefaultFormat,
		Bitrate:   DefaultBitrate,
		Workers:   0,
		LogPath:   DefaultLogPath,
	}
}

func normalizeSettings(raw Settings) Settings {
	norm := raw
	norm.OutputDir = strings.TrimSpace(norm.OutputDir)
	if norm.OutputDir == "" {
		norm.OutputDir = DefaultOutputDir
	}
	norm.Format = strings.ToLower(strings.TrimSpace(norm.Format))
	if !IsSupportedFormat(norm.Format) {
		norm.Format = DefaultFormat
	}
	norm.Bitrate = strings.ToLower(strings.TrimSpace(norm.Bitrate))
	if !IsSupportedBitrate(norm.Bitrate) {
		norm.Bitrate = DefaultBitrate
	}
	if norm.Workers < 0 {
		norm.Workers = 0
	}
	norm.LogPath = strings.TrimSpace(norm.LogPath)
	if norm.LogPath == "" {
		norm.LogPath = DefaultLogPath
	}
	return norm
}

func normalizeSettingsPath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return DefaultSettingsPath
	}
	return p
}

// ReadSettings loads the registry without creating it; a missing file means
// defaults.
func ReadSettings(settingsPath string) (Settings, error) {
	path := normalizeSettingsPath(settingsPath)
	var file settingsFile
	err := runlog.ReadJSON(path, &file)
	if err == nil {
		return normalizeSettings(file.Settings), nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return defaultSettings(), nil
	}
	return Settings{}, err
}

// EnsureSettings loads the registry, creating it with defaults on first
// use. The second return reports whether the file was created.
func EnsureSettings(settingsPath string) (Settings, bool, error) {
	path := normalizeSettingsPath(settingsPath)
	var file settingsFile
	err := runlog.ReadJSON(path, &file)
	if err == nil {
		return normalizeSettings(file.Settings), false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return Settings{}, false, err
	}
	settings := defaultSettings()
	if err := saveSettings(path, settings); err != nil {
		return Settings{}, false, err
	}
	return settings, true, nil
}

func UpdateSettings(settingsPath string, next Settings) (UpdateSettingsResult, error) {
	path := normalizeSettingsPath(settingsPath)
	settings := normalizeSettings(next)
	if err := saveSettings(path, settings); err != nil {
		return UpdateSettingsResult{}, err
	}
	return UpdateSettingsResult{SettingsPath: path, Settings: settings}, nil
}

func saveSettings(path string, settings Settings) error {
	if err := runlog.Mkdir(filepath.Dir(path)); err != nil {
		return err
	}
	return runlog.WriteJSON(path, settingsFile{
		SchemaVersion: settingsSchemaVersion,
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339),
		Settings:      settings,
	})
}

// RunConfig is the fully resolved configuration for one batch: flags beat
// persisted settings beat built-in defaults.
type RunConfig struct {
	OutputDir string
	Format    string
	Bitrate   string
	Workers   int
	Overwrite bool
	LogPath   string
}

func ResolveRunConfig(settings Settings, outputDir, format, bitrate string, workers int, overwrite *bool) (RunConfig, error) {
	settings = normalizeSettings(settings)

	cfg := RunConfig{
		OutputDir: settings.OutputDir,
		Format:    settings.Format,
		Bitrate:   settings.Bitrate,
		Workers:   settings.Workers,
		Overwrite: settings.Overwrite,
		LogPath:   settings.LogPath,
	}

	if v := strings.TrimSpace(outputDir); v != "" {
		cfg.OutputDir = v
	}
	if v := strings.ToLower(strings.TrimSpace(format)); v != "" {
		if !IsSupportedFormat(v) {
			return RunConfig{}, fmt.Errorf("unsupported output format %q (supported: %s)", format, strings.Join(SupportedFormats, ", "))
		}
		cfg.Format = v
	}
	if v := strings.ToLower(strings.TrimSpace(bitrate)); v != "" {
		if !IsSupportedBitrate(v) {
			return RunConfig{}, fmt.Errorf("unsupported bitrate %q (supported: %s)", bitrate, strings.Join(SupportedBitrates, ", "))
		}
		cfg.Bitrate = v
	}
	if workers < 0 {
		return RunConfig{}, fmt.Errorf("workers must be >= 0")
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if overwrite != nil {
		cfg.Overwrite = *overwrite
	}
	return cfg, nil
}
