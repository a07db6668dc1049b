// Package policy loads the permission policy that assigns risk levels to
// commands surfacing in permission requests.
package policy

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Risk levels, lowest to highest.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// Rule maps a command pattern to a risk level.
type Rule struct {
	Pattern string `yaml:"pattern"` // regular expression matched against the command
	Risk    string `yaml:"risk"`
}

// Policy is an ordered rule list; the first matching rule wins.
type Policy struct {
	DefaultRisk string `yaml:"default_risk"`
	Rules       []Rule `yaml:"rules"`

	compiled []*regexp.Regexp
}

// Default returns a permissive policy that rates everything medium.
func Default() *Policy {
	return &Policy{DefaultRisk: RiskMedium}
}

// Load reads and compiles a policy file.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if p.DefaultRisk == "" {
		p.DefaultRisk = RiskMedium
	}
	for _, r := range p.Rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("policy pattern %q: %w", r.Pattern, err)
		}
		p.compiled = append(p.compiled, re)
	}
	return &p, nil
}

// RiskFor returns the risk level for a command.
func (p *Policy) RiskFor(command string) string {
	for i, re := range p.compiled {
		if re.MatchString(command) {
			return p.Rules[i].Risk
		}
	}
	return p.DefaultRisk
}
