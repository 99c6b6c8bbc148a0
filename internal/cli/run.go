package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/xfce-mirror/orage-sub000/internal/logger"
)

type RunCmd struct{}

// Run starts the alarm daemon: snapshot load, firing loop, the periodic
// archive job and signal handling. SIGUSR1 forces a recheck, which is how
// resume-from-suspend hooks poke the scheduler.
func (c *RunCmd) Run(ctx *Context) error {
	defer ctx.Close()

	sched := ctx.Scheduler()
	if err := sched.LoadSnapshot(); err != nil {
		logger.Warn("alarm snapshot unusable, starting empty", "error", err)
	}

	runCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	defer signal.Stop(usr1)
	go func() {
		for range usr1 {
			logger.Info("recheck requested")
			sched.Recheck()
		}
	}()

	if ctx.Config.ArchiveMonths > 0 {
		cr := cron.New()
		_, err := cr.AddFunc(ctx.Config.ArchiveCron, func() {
			threshold := time.Now().AddDate(0, -ctx.Config.ArchiveMonths, 0)
			if err := ctx.Migrator().Migrate(threshold); err != nil {
				logger.Error("scheduled archive run failed", "error", err)
				return
			}
			sched.Recheck()
		})
		if err != nil {
			return err
		}
		cr.Start()
		defer cr.Stop()
	}

	logger.Info("alarm daemon started", "stores", len(ctx.Registry.Stores()))
	return sched.Run(runCtx)
}
