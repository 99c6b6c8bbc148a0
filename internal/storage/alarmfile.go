package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xfce-mirror/orage-sub000/internal/apperr"
	"github.com/xfce-mirror/orage-sub000/internal/logger"
	"github.com/xfce-mirror/orage-sub000/internal/models"
)

// AlarmFile snapshots the persistent subset of pending alarms so they
// survive a process restart. It is read once at startup and rewritten
// after every rebuild.
type AlarmFile struct {
	path string
}

func NewAlarmFile(path string) *AlarmFile {
	return &AlarmFile{path: path}
}

// Save writes the snapshot atomically: temp file in the same directory,
// fsync, rename.
func (f *AlarmFile) Save(alarms []models.Alarm) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(alarms, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".alarms-*.tmp")
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
	return os.Rename(tmpName, f.path)
}

// Load reads the snapshot back. A missing file is an empty snapshot. A
// single malformed entry is skipped and logged; the rest still load.
func (f *AlarmFile) Load() ([]models.Alarm, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrCorruptAlarm, f.path, err)
	}

	var out []models.Alarm
	for i, entry := range raw {
		var a models.Alarm
		if err := json.Unmarshal(entry, &a); err != nil {
			logger.Warn("skipping corrupt alarm snapshot entry", "index", i, "error", err)
			continue
		}
		if err := a.Validate(); err != nil {
			logger.Warn("skipping invalid alarm snapshot entry", "index", i, "error", err)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
