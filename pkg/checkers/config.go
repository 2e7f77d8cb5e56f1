package checkers

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/neuralogix/core/pkg/ir"
)

// SuiteConfig declares which checkers a suite runs and how they are tuned.
type SuiteConfig struct {
	Type        bool          `yaml:"type"`
	Consistency bool          `yaml:"consistency"`
	Tautology   bool          `yaml:"tautology"`
	Budget      *BudgetConfig `yaml:"budget"`
	Schema      *SchemaConfig `yaml:"schema"`
	Policies    []PolicyRule  `yaml:"policies"`
}

// BudgetConfig tunes the BudgetChecker.
type BudgetConfig struct {
	// Thresholds maps a node type name or "default" to its τ value.
	Thresholds map[string]float64 `yaml:"thresholds"`
}

// SchemaConfig tunes the SchemaChecker.
type SchemaConfig struct {
	// HardFail escalates schema violations from SOFT_FAIL to HARD_FAIL.
	HardFail bool `yaml:"hard_fail"`
	// NodeSchemas maps a node type name to a JSON Schema document.
	NodeSchemas map[string]string `yaml:"node_schemas"`
}

// LoadSuiteConfig reads a YAML suite configuration from disk and builds the
// suite it describes.
func LoadSuiteConfig(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load suite config %q: %w", path, err)
	}

	var cfg SuiteConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse suite config %q: %w", path, err)
	}
	return BuildSuite(cfg)
}

// BuildSuite constructs a suite from a configuration. Checkers run in a fixed
// order: type, consistency, tautology, budget, schema, policy.
func BuildSuite(cfg SuiteConfig) (*Suite, error) {
	var list []Checker

	if cfg.Type {
		list = append(list, NewTypeChecker())
	}
	if cfg.Consistency {
		list = append(list, NewConsistencyChecker())
	}
	if cfg.Tautology {
		list = append(list, NewAntiTautologyChecker())
	}
	if cfg.Budget != nil {
		list = append(list, NewBudgetChecker(cfg.Budget.Thresholds))
	}
	if cfg.Schema != nil {
		severity := StatusSoftFail
		if cfg.Schema.HardFail {
			severity = StatusHardFail
		}
		schemas := make(map[ir.NodeType]string, len(cfg.Schema.NodeSchemas))
		for name, doc := range cfg.Schema.NodeSchemas {
			schemas[ir.NodeType(name)] = doc
		}
		sc, err := NewSchemaChecker(schemas, severity)
		if err != nil {
			return nil, err
		}
		list = append(list, sc)
	}
	if len(cfg.Policies) > 0 {
		pc, err := NewPolicyChecker(cfg.Policies)
		if err != nil {
			return nil, err
		}
		list = append(list, pc)
	}

	return NewSuite(list...), nil
}
