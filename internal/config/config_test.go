package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ArchiveMonths == 0 || cfg.ArchiveCron == "" || cfg.SoundCommand == "" {
		t.Errorf("defaults not filled: %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("first run did not write a config file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config perms = %v, want 0600", info.Mode().Perm())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	in := DefaultConfig()
	in.Timezone = "Europe/Berlin"
	in.ArchiveMonths = 12
	in.Foreign = []ForeignMount{{Tag: "F00", Path: "/tmp/shared.db", ReadOnly: true}}
	in.Debug = true

	if err := Save(path, in); err != nil {
		t.Fatal(err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if out.Timezone != "Europe/Berlin" || out.ArchiveMonths != 12 || !out.Debug {
		t.Errorf("round trip changed values: %+v", out)
	}
	if len(out.Foreign) != 1 || out.Foreign[0].Tag != "F00" || !out.Foreign[0].ReadOnly {
		t.Errorf("foreign mounts lost: %+v", out.Foreign)
	}
}

func TestNormalizeFillsGaps(t *testing.T) {
	cfg := &Config{ArchiveMonths: -1}
	cfg.Normalize()
	if cfg.PrimaryPath == "" || cfg.ArchivePath == "" || cfg.AlarmSnapshotPath == "" {
		t.Errorf("paths not defaulted: %+v", cfg)
	}
	if cfg.ArchiveMonths != 0 {
		t.Errorf("negative archive months not clamped: %d", cfg.ArchiveMonths)
	}
	if cfg.ArchiveCron == "" || cfg.SoundCommand == "" || cfg.NotifyLockfile == "" {
		t.Errorf("ambient defaults missing: %+v", cfg)
	}
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("empty path should fail")
	}
	if err := Save("", DefaultConfig()); err == nil {
		t.Error("empty path should fail")
	}
}
