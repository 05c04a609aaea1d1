// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"bytes"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/planopt/planopt/pkg/sql/opt"
	"gopkg.in/yaml.v3"
)

// DefaultMaxRewritesPerNode is the default value of
// Config.MaxRewritesPerNode.
const DefaultMaxRewritesPerNode = 64

// Config holds the settings of an optimization.
type Config struct {
	// EnableFilterScan enables the FilterScan and RangeScan rules, which fold
	// filters into table scans and derive key ranges from them.
	EnableFilterScan bool `yaml:"enable_filter_scan"`

	// DisabledRules lists the names of rules that must not run. Both
	// normalization and heuristic rules can be disabled.
	DisabledRules []string `yaml:"disabled_rules"`

	// StrictRuleErrors makes the optimization fail when a rule meets a
	// predicate it cannot handle. By default, the rule is skipped at that
	// node.
	StrictRuleErrors bool `yaml:"strict_rule_errors"`

	// MaxRewritesPerNode bounds the number of rule applications at a single
	// position of the tree. Reaching it means that a rule matches its own
	// output, and fails the optimization. Zero means the default.
	MaxRewritesPerNode int `yaml:"max_rewrites_per_node"`

	disabled mapset.Set[opt.RuleName]
}

// DefaultConfig returns the configuration used when none is given: all
// rules are enabled except FilterScan and RangeScan.
func DefaultConfig() Config {
	return Config{MaxRewritesPerNode: DefaultMaxRewritesPerNode}
}

// ParseConfig decodes a YAML configuration. Unknown fields are rejected.
// Empty input yields the default configuration.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "parsing optimizer config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and decodes the YAML configuration file at the given
// path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading optimizer config %s", path)
	}
	return ParseConfig(data)
}

// Validate checks the configuration and resolves the names of the disabled
// rules.
func (c *Config) Validate() error {
	if c.MaxRewritesPerNode < 0 {
		return errors.Newf("max_rewrites_per_node must not be negative: %d", c.MaxRewritesPerNode)
	}
	if c.MaxRewritesPerNode == 0 {
		c.MaxRewritesPerNode = DefaultMaxRewritesPerNode
	}
	disabled := mapset.NewThreadUnsafeSet[opt.RuleName]()
	for _, name := range c.DisabledRules {
		r, err := opt.ParseRuleName(name)
		if err != nil {
			return errors.Wrap(err, "invalid disabled_rules")
		}
		disabled.Add(r)
	}
	c.disabled = disabled
	return nil
}

// DisableRule adds a rule to the disabled rules.
func (c *Config) DisableRule(name opt.RuleName) {
	c.DisabledRules = append(c.DisabledRules, name.String())
	if c.disabled != nil {
		c.disabled.Add(name)
	}
}

// ruleEnabled returns true if the rule may run with this configuration. The
// configuration must have been validated.
func (c *Config) ruleEnabled(name opt.RuleName) bool {
	if c.disabled != nil && c.disabled.Contains(name) {
		return false
	}
	switch name {
	case opt.FilterScan, opt.RangeScan:
		return c.EnableFilterScan
	}
	return true
}
