package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/quadflow/quadflow/internal/store"
)

// Run lists recent runs, newest first.
func (c *RunsCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	st, err := store.New(filepath.Join(cfg.StoragePath(), "runs.db"))
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(c.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTATUS\tCREATED\tUPDATED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.ID, r.Status,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
