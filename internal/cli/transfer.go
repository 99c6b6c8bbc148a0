package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/xfce-mirror/orage-sub000/internal/ics"
	"github.com/xfce-mirror/orage-sub000/internal/logger"
)

type ImportCmd struct {
	File  string `arg:"" help:"iCalendar file to import." type:"existingfile"`
	Store string `help:"Destination store tag." default:"O"`
}

// Run imports every parsable event from an iCalendar file. Events without
// a UID get a fresh one.
func (c *ImportCmd) Run(ctx *Context) error {
	defer ctx.Close()

	body, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	records, err := ics.Import(body)
	if err != nil {
		return err
	}

	st, err := ctx.Registry.Get(c.Store)
	if err != nil {
		return err
	}
	if err := st.Open(); err != nil {
		return err
	}

	added := 0
	for i := range records {
		rec := records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if err := st.AddRecord(rec); err != nil {
			logger.Warn("import skipped a record", "record", rec.ID, "error", err)
			continue
		}
		added++
	}
	fmt.Printf("Imported %d of %d event(s) into store %s.\n", added, len(records), c.Store)
	return nil
}

type ExportCmd struct {
	Output string `help:"Write the calendar here instead of stdout." short:"o"`
	Store  string `help:"Source store tag." default:"O"`
}

// Run serializes a store's events as iCalendar.
func (c *ExportCmd) Run(ctx *Context) error {
	defer ctx.Close()

	st, err := ctx.Registry.Get(c.Store)
	if err != nil {
		return err
	}
	if err := st.Open(); err != nil {
		return err
	}
	records, err := st.ListRecords()
	if err != nil {
		return err
	}

	payload, err := ics.Export(records)
	if err != nil {
		return err
	}
	if c.Output == "" {
		fmt.Print(payload)
		return nil
	}
	if err := os.WriteFile(c.Output, []byte(payload), 0o600); err != nil {
		return err
	}
	fmt.Printf("Exported %s to %s.\n", c.Store, c.Output)
	return nil
}
