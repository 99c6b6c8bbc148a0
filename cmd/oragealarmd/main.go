package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/xfce-mirror/orage-sub000/internal/cli"
	"github.com/xfce-mirror/orage-sub000/internal/config"
	"github.com/xfce-mirror/orage-sub000/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"path" placeholder:"PATH"`
	Debug   bool   `help:"Enable debug logging."`

	Run       cli.RunCmd       `cmd:"" help:"Run the alarm daemon." default:"1"`
	Rebuild   cli.RebuildCmd   `cmd:"" help:"Recompute pending alarms and refresh the snapshot."`
	Alarms    cli.AlarmsCmd    `cmd:"" help:"List upcoming alarms."`
	Migrate   cli.MigrateCmd   `cmd:"" help:"Move aged-out records to the archive store."`
	Unarchive cli.UnarchiveCmd `cmd:"" help:"Restore archived records to the primary store."`
	Import    cli.ImportCmd    `cmd:"" help:"Import events from an iCalendar file."`
	Export    cli.ExportCmd    `cmd:"" help:"Export a store's events as iCalendar."`
	Init      cli.InitCmd      `cmd:"" help:"Create the store databases and default config."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("oragealarmd"),
		kong.Description("Calendar alarm daemon"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": "v0.1.0"},
	)

	cfgPath := CLI.Config
	if cfgPath == "" {
		cfgPath = defaultConfigPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if CLI.Debug {
		cfg.Debug = true
	}
	if err := logger.Init(logger.Config{Debug: cfg.Debug, ConfigDir: filepath.Dir(cfgPath)}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	appCtx, err := cli.NewContext(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := ctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "oragealarmd", "config.yaml")
}
