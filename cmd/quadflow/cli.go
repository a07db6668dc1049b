// Package main defines the CLI structure using kong.
package main

import "github.com/alecthomas/kong"

// CLI defines the command-line interface.
type CLI struct {
	Run      RunCmd      `cmd:"" help:"Start or resume a pipeline run"`
	Runs     RunsCmd     `cmd:"" help:"List recent runs"`
	Replay   ReplayCmd   `cmd:"" help:"Render the recorded event history of a run"`
	Validate ValidateCmd `cmd:"" help:"Validate config and policy files"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`

	Config string `help:"Config file path" type:"path"`
}

// RunCmd starts (or resumes) a pipeline run and opens the console.
type RunCmd struct {
	RunID  string `help:"Run to resume; omit to start a new run"`
	NoTUI  bool   `help:"Run headless without the console"`
	Resume bool   `help:"Restore the latest snapshot before processing events"`
}

// RunsCmd lists recent runs.
type RunsCmd struct {
	Limit int `short:"n" default:"20" help:"Maximum runs to list"`
}

// ReplayCmd renders a run's recorded events.
type ReplayCmd struct {
	RunID   string `arg:"" help:"Run to replay"`
	Limit   int    `short:"n" default:"200" help:"Maximum events to render"`
	Verbose int    `short:"v" type:"counter" help:"Verbosity level (-v)"`
}

// ValidateCmd checks the config and permission policy files.
type ValidateCmd struct{}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
