package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/xfce-mirror/orage-sub000/internal/constants"
)

// ForeignMount describes one read-only or read-write foreign calendar
// store ("F00".."F09").
type ForeignMount struct {
	Tag      string `yaml:"tag" json:"tag"`
	Path     string `yaml:"path" json:"path"`
	ReadOnly bool   `yaml:"read_only" json:"read_only"`
}

// Config is the daemon's on-disk configuration.
type Config struct {
	// Timezone is the IANA zone floating timestamps resolve in. Empty
	// means the process-local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// PrimaryPath and ArchivePath locate the "O" and "A" store databases.
	PrimaryPath string `yaml:"primary_path" json:"primary_path"`
	ArchivePath string `yaml:"archive_path" json:"archive_path"`

	// Foreign lists additional mounted stores.
	Foreign []ForeignMount `yaml:"foreign,omitempty" json:"foreign,omitempty"`

	// AlarmSnapshotPath is where persistent pending alarms are written.
	AlarmSnapshotPath string `yaml:"alarm_snapshot_path" json:"alarm_snapshot_path"`

	// ArchiveMonths is how far back the periodic archive run reaches: the
	// threshold is now minus this many months. Zero disables the job.
	ArchiveMonths int `yaml:"archive_months" json:"archive_months"`

	// ArchiveCron schedules the periodic archive run.
	ArchiveCron string `yaml:"archive_cron" json:"archive_cron"`

	// NotifyLockfile locates the tray daemon's lockfile.
	NotifyLockfile string `yaml:"notify_lockfile,omitempty" json:"notify_lockfile,omitempty"`

	// SoundCommand plays alarm sounds.
	SoundCommand string `yaml:"sound_command" json:"sound_command"`

	Debug bool `yaml:"debug" json:"debug"`
}

func DefaultConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Timezone:          "",
		PrimaryPath:       filepath.Join(dataDir, "calendar.db"),
		ArchivePath:       filepath.Join(dataDir, "archive.db"),
		AlarmSnapshotPath: filepath.Join(dataDir, "alarms.json"),
		ArchiveMonths:     constants.DefaultArchiveMonths,
		ArchiveCron:       constants.DefaultArchiveCron,
		SoundCommand:      constants.DefaultSoundCommand,
	}
}

func defaultDataDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(configDir, "oragealarmd")
}

// Normalize fills missing values so partially filled configs from older
// versions still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.PrimaryPath == "" {
		c.PrimaryPath = def.PrimaryPath
	}
	if c.ArchivePath == "" {
		c.ArchivePath = def.ArchivePath
	}
	if c.AlarmSnapshotPath == "" {
		c.AlarmSnapshotPath = def.AlarmSnapshotPath
	}
	if c.ArchiveMonths < 0 {
		c.ArchiveMonths = 0
	}
	if c.ArchiveCron == "" {
		c.ArchiveCron = constants.DefaultArchiveCron
	}
	if c.SoundCommand == "" {
		c.SoundCommand = constants.DefaultSoundCommand
	}
	if c.NotifyLockfile == "" {
		c.NotifyLockfile = filepath.Join(defaultDataDir(), constants.NotifierLockfileName)
	}
}

// Load reads the YAML config at path. A missing file is a first run: a
// default config is written with 0600 perms and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			cfg.Normalize()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes the config atomically: temp file in the target directory,
// chmod 0600, rename.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".oragealarmd-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
