package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/quadflow/quadflow/internal/config"
	"github.com/quadflow/quadflow/internal/console"
	"github.com/quadflow/quadflow/internal/engine"
	"github.com/quadflow/quadflow/internal/logging"
	"github.com/quadflow/quadflow/internal/policy"
	"github.com/quadflow/quadflow/internal/role"
	"github.com/quadflow/quadflow/internal/store"
	"github.com/quadflow/quadflow/internal/transport"
)

// Run wires config, storage, transport and the engine together and runs
// until interrupted.
func (c *RunCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.StoragePath(), cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer log.Close()

	perms := policy.Default()
	if cfg.Policy.Path != "" {
		perms, err = policy.Load(cfg.Policy.Path)
		if err != nil {
			return err
		}
	}

	st, err := store.New(filepath.Join(cfg.StoragePath(), "runs.db"))
	if err != nil {
		return err
	}
	defer st.Close()

	runID := c.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	tr, err := transport.Connect(cfg.Transport.URL, cfg.Transport.SubjectPrefix, log)
	if err != nil {
		return err
	}
	defer tr.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	eng := engine.New(engine.Options{
		RunID:     runID,
		Logger:    log,
		Store:     st,
		Publisher: tr.IntentPublisher(runID),
		Policy:    perms,
		Models:    roleModels(cfg),
		Debounce:  cfg.SnapshotDebounce(),
	})

	if c.Resume && c.RunID != "" {
		if err := eng.Resume(ctx); err != nil {
			return fmt.Errorf("resume run %s: %w", runID, err)
		}
	}
	if eng.SessionID() == "" {
		eng.StartSession(uuid.NewString())
	}

	sub, err := tr.SubscribeEvents(runID, eng.Submit)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	eng.Start(ctx)

	// Hot-reload only the per-role model selection; everything else needs
	// a restart.
	watchPath := cli.Config
	if watchPath == "" {
		if p, ok := config.DefaultPath(); ok {
			watchPath = p
		}
	}
	if watchPath != "" {
		_ = config.Watch(ctx, watchPath, func(next *config.Config) {
			eng.SetModels(roleModels(next))
		})
	}

	if c.NoTUI {
		fmt.Printf("run %s listening on %s\n", runID, cfg.Transport.URL)
		<-ctx.Done()
		return nil
	}

	prog := tea.NewProgram(console.New(ctx, eng), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = prog.Run()
	if err != nil && ctx.Err() != nil {
		return nil // interrupted
	}
	return err
}

// roleModels converts the config's string-keyed model table.
func roleModels(cfg *config.Config) map[role.Role]string {
	models := make(map[role.Role]string, len(cfg.Models))
	for name, m := range cfg.Models {
		if r, ok := role.Parse(name); ok {
			models[r] = m
		}
	}
	return models
}
