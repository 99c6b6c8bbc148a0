package cli

import (
	"fmt"
	"time"
)

type MigrateCmd struct {
	Months int    `help:"Archive records older than this many months. Defaults to the configured value."`
	Before string `help:"Archive records ending before this date (YYYY-MM-DD). Overrides --months."`
}

// Run performs one archive pass over the primary store.
func (c *MigrateCmd) Run(ctx *Context) error {
	defer ctx.Close()

	months := c.Months
	if months <= 0 {
		months = ctx.Config.ArchiveMonths
	}
	threshold := time.Now().AddDate(0, -months, 0)
	if c.Before != "" {
		t, err := time.ParseInLocation("2006-01-02", c.Before, ctx.Resolver.Local())
		if err != nil {
			return fmt.Errorf("invalid --before date %q: %w", c.Before, err)
		}
		threshold = t
	}

	if err := ctx.Migrator().Migrate(threshold); err != nil {
		return err
	}
	fmt.Printf("Archived records ending before %s.\n", threshold.Format("2006-01-02"))
	return nil
}

type UnarchiveCmd struct{}

// Run reverses every past archive run: shadowed windows first, then the
// archived records themselves.
func (c *UnarchiveCmd) Run(ctx *Context) error {
	defer ctx.Close()

	if err := ctx.Migrator().Unarchive(); err != nil {
		return err
	}
	fmt.Println("Restored archived records to the primary store.")
	return nil
}
