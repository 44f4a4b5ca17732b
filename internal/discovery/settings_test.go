package discovery

import (
	"path/filepath"
	"testing"
)

func TestReadSettingsDefaultsWhenFileMissing(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "missing.json")

	settings, err := ReadSettings(cfg)
	if err != nil {
		t.Fatalf("read settings failed: %v", err)
	}
	if settings.Format != DefaultFormat {
		t.Fatalf("format default mismatch: got %q want %q", settings.Format, DefaultFormat)
	}
	if settings.Bitrate != DefaultBitrate {
		t.Fatalf("bitrate default mismatch: got %q want %q", settings.Bitrate, DefaultBitrate)
	}
	if settings.Workers != 0 {
		t.Fatalf("workers must default to auto, got %d", settings.Workers)
	}
}

func TestEnsureSettingsCreatesThenReloads(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config", "settings.json")

	_, created, err := EnsureSettings(cfg)
	if err != nil {
		t.Fatalf("ensure settings failed: %v", err)
	}
	if !created {
		t.Fatalf("expected settings file to be created")
	}

	_, created, err = EnsureSettings(cfg)
	if err != nil {
		t.Fatalf("ensure settings second pass failed: %v", err)
	}
	if created {
		t.Fatalf("expected settings file to be reused")
	}
}

func TestUpdateSettingsNormalizesUnknownValues(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "settings.json")

	res, err := UpdateSettings(cfg, Settings{Format: "MP3", Bitrate: "999k", Workers: -2})
	if err != nil {
		t.Fatalf("update settings failed: %v", err)
	}
	if res.Settings.Format != "mp3" {
		t.Fatalf("format not normalized: %q", res.Settings.Format)
	}
	if res.Settings.Bitrate != DefaultBitrate {
		t.Fatalf("unknown bitrate must fall back to default, got %q", res.Settings.Bitrate)
	}
	if res.Settings.Workers != 0 {
		t.Fatalf("negative workers must normalize to auto, got %d", res.Settings.Workers)
	}

	reloaded, err := ReadSettings(cfg)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Format != "mp3" || reloaded.Bitrate != DefaultBitrate {
		t.Fatalf("persisted settings mismatch: %+v", reloaded)
	}
}

func TestResolveRunConfigPrecedence(t *testing.T) {
	settings := Settings{
		OutputDir: "/from/settings",
		Format:    "flac",
		Bitrate:   "256k",
		Workers:   4,
		Overwrite: true,
		LogPath:   "history.jsonl",
	}

	cfg, err := ResolveRunConfig(settings, "", "", "", 0, nil)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if cfg.OutputDir != "/from/settings" || cfg.Format != "flac" || cfg.Workers != 4 || !cfg.Overwrite {
		t.Fatalf("settings must apply when flags are unset: %+v", cfg)
	}

	off := false
	cfg, err = ResolveRunConfig(settings, "/from/flag", "ogg", "320k", 2, &off)
	if err != nil {
		t.Fatalf("resolve with flags failed: %v", err)
	}
	if cfg.OutputDir != "/from/flag" || cfg.Format != "ogg" || cfg.Bitrate != "320k" || cfg.Workers != 2 || cfg.Overwrite {
		t.Fatalf("flags must beat settings: %+v", cfg)
	}
}

func TestResolveRunConfigRejectsUnknownTargets(t *testing.T) {
	if _, err := ResolveRunConfig(Settings{}, "", "midi", "", 0, nil); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if _, err := ResolveRunConfig(Settings{}, "", "", "64k", 0, nil); err == nil {
		t.Fatal("expected error for unsupported bitrate")
	}
	if _, err := ResolveRunConfig(Settings{}, "", "", "", -1, nil); err == nil {
		t.Fatal("expected error for negative workers")
	}
}
