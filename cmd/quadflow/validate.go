package main

import (
	"fmt"

	"github.com/quadflow/quadflow/internal/policy"
)

// Run validates the config file and, if configured, the permission policy.
func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	fmt.Println("config: ok")

	if cfg.Policy.Path == "" {
		fmt.Println("policy: none configured (permissive defaults)")
		return nil
	}
	if _, err := policy.Load(cfg.Policy.Path); err != nil {
		return err
	}
	fmt.Println("policy: ok")
	return nil
}
