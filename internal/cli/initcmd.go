package cli

import (
	"fmt"
)

type InitCmd struct{}

// Run creates the store databases so first daemon start does not race
// schema creation. The config file itself is written on load when absent.
func (c *InitCmd) Run(ctx *Context) error {
	defer ctx.Close()

	for _, st := range ctx.Registry.Stores() {
		if err := st.Open(); err != nil {
			return fmt.Errorf("initializing store %s: %w", st.Tag(), err)
		}
	}
	fmt.Printf("Initialized %d store(s).\n", len(ctx.Registry.Stores()))
	fmt.Printf("Primary:  %s\nArchive:  %s\nSnapshot: %s\n",
		ctx.Config.PrimaryPath, ctx.Config.ArchivePath, ctx.Config.AlarmSnapshotPath)
	return nil
}
