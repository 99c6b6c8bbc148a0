package cli

import (
	"fmt"
	"time"
)

type AlarmsCmd struct {
	Limit int `help:"Show at most this many upcoming alarms." default:"20"`
}

// Run prints the pending alarm list a running daemon would hold right now.
func (c *AlarmsCmd) Run(ctx *Context) error {
	defer ctx.Close()

	sched := ctx.Scheduler()
	if err := sched.Rebuild(); err != nil {
		return err
	}
	pending := sched.Pending()
	if len(pending) == 0 {
		fmt.Println("No pending alarms.")
		return nil
	}

	shown := len(pending)
	if c.Limit > 0 && shown > c.Limit {
		shown = c.Limit
	}
	for _, a := range pending[:shown] {
		when := "unscheduled"
		if !a.FireAt.IsZero() {
			when = a.FireAt.Format(time.RFC1123)
		}
		fmt.Printf("%-30s  %s  (%s)\n", when, a.Title, a.ActionTime)
	}
	if shown < len(pending) {
		fmt.Printf("... and %d more\n", len(pending)-shown)
	}
	return nil
}

type RebuildCmd struct{}

// Run recomputes the pending alarms once and refreshes the persistent
// snapshot, without starting the firing loop.
func (c *RebuildCmd) Run(ctx *Context) error {
	defer ctx.Close()

	sched := ctx.Scheduler()
	if err := sched.Rebuild(); err != nil {
		return err
	}
	fmt.Printf("Rebuilt pending alarm list: %d alarm(s).\n", len(sched.Pending()))
	return nil
}
