package cli

import (
	"fmt"

	"github.com/xfce-mirror/orage-sub000/internal/alarm"
	"github.com/xfce-mirror/orage-sub000/internal/archive"
	"github.com/xfce-mirror/orage-sub000/internal/config"
	"github.com/xfce-mirror/orage-sub000/internal/constants"
	"github.com/xfce-mirror/orage-sub000/internal/notifier"
	"github.com/xfce-mirror/orage-sub000/internal/scheduler"
	"github.com/xfce-mirror/orage-sub000/internal/storage"
	"github.com/xfce-mirror/orage-sub000/internal/storage/sqlite"
	"github.com/xfce-mirror/orage-sub000/internal/timeres"
)

// Context carries the wired application graph into every command.
type Context struct {
	Config   *config.Config
	Registry *storage.Registry
	Resolver *timeres.Resolver
}

// NewContext builds the store registry and time resolver from the loaded
// config. Stores are mounted but not opened; commands open what they use.
func NewContext(cfg *config.Config) (*Context, error) {
	res, err := timeres.New(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	reg := storage.NewRegistry()
	if err := reg.Mount(sqlite.NewStore(constants.PrimaryStoreTag, cfg.PrimaryPath, false)); err != nil {
		return nil, err
	}
	if err := reg.Mount(sqlite.NewStore(constants.ArchiveStoreTag, cfg.ArchivePath, false)); err != nil {
		return nil, err
	}
	for _, fm := range cfg.Foreign {
		if !storage.ValidTag(fm.Tag) {
			return nil, fmt.Errorf("invalid foreign store tag %q", fm.Tag)
		}
		if err := reg.Mount(sqlite.NewStore(fm.Tag, fm.Path, fm.ReadOnly)); err != nil {
			return nil, err
		}
	}

	return &Context{Config: cfg, Registry: reg, Resolver: res}, nil
}

func (c *Context) Calculator() *alarm.Calculator {
	return alarm.NewCalculator(c.Resolver)
}

func (c *Context) Migrator() *archive.Migrator {
	return archive.NewMigrator(c.Registry, c.Resolver)
}

func (c *Context) Notifier() *notifier.Notifier {
	return notifier.New(notifier.Config{
		LockfilePath: c.Config.NotifyLockfile,
		SoundCommand: c.Config.SoundCommand,
	})
}

func (c *Context) Scheduler() *scheduler.Scheduler {
	snapshot := storage.NewAlarmFile(c.Config.AlarmSnapshotPath)
	return scheduler.New(c.Registry, c.Calculator(), snapshot, c.Notifier())
}

// Close releases every mounted store.
func (c *Context) Close() {
	c.Registry.CloseAll()
}
