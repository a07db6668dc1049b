package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/quadflow/quadflow/internal/replay"
	"github.com/quadflow/quadflow/internal/store"
)

// Run renders a run's recorded event history.
func (c *ReplayCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	st, err := store.New(filepath.Join(cfg.StoragePath(), "runs.db"))
	if err != nil {
		return err
	}
	defer st.Close()

	payloads, err := st.RecentEvents(c.RunID, c.Limit)
	if err != nil {
		return err
	}
	if len(payloads) == 0 {
		return fmt.Errorf("no events recorded for run %s", c.RunID)
	}
	return replay.New(os.Stdout, c.Verbose).Replay(c.RunID, payloads)
}
