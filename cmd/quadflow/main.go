// Package main is the entry point for the quadflow console.
package main

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/quadflow/quadflow/internal/config"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	// Load .env for any additional env vars
	_ = godotenv.Load()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("quadflow"),
		kong.Description("Multi-role pipeline console: Plan, Build, Review, Deploy."),
		kong.UsageOnError(),
		kongVars(),
	)
	kctx.FatalIfErrorf(kctx.Run(&cli))
}

// loadConfig loads the configured or default config file.
func loadConfig(cli *CLI) (*config.Config, error) {
	if cli.Config != "" {
		return config.LoadFile(cli.Config)
	}
	return config.LoadDefault()
}

// Run shows version information.
func (c *VersionCmd) Run(cli *CLI) error {
	fmt.Printf("quadflow version %s (commit: %s, built: %s)\n", version, commit, buildTime)
	return nil
}
