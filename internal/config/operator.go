package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/leadbot/internal/extractor"
	"github.com/MikeSquared-Agency/leadbot/internal/lead"
)

// Operator is the operator-editable settings file: prompt assets and the
// capture settings a deployment starts with.
type Operator struct {
	Capture lead.CaptureConfig `yaml:"capture"`
	Prompts Prompts            `yaml:"prompts"`
}

type Prompts struct {
	lead.Instructions `yaml:",inline"`
	Listener          string         `yaml:"listener"`
	ListenerForm      extractor.Form `yaml:"listener_form"`
}

// DefaultOperator returns the built-in operator settings.
func DefaultOperator() Operator {
	return Operator{
		Capture: lead.DefaultCaptureConfig(),
		Prompts: Prompts{
			Instructions: lead.DefaultInstructions(),
			ListenerForm: extractor.FormVerdict,
		},
	}
}

// LoadOperator reads the YAML file at path on top of the defaults. An empty
// path returns the defaults.
func LoadOperator(path string) (Operator, error) {
	op := DefaultOperator()
	if path == "" {
		return op, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Operator{}, fmt.Errorf("read settings file: %w", err)
	}
	return ParseOperator(data)
}

// ParseOperator decodes YAML operator settings on top of the defaults and
// validates the result.
func ParseOperator(data []byte) (Operator, error) {
	op := DefaultOperator()
	if err := yaml.Unmarshal(data, &op); err != nil {
		return Operator{}, fmt.Errorf("parse settings file: %w", err)
	}
	op.Capture = op.Capture.Normalized()
	if err := op.Capture.Validate(); err != nil {
		return Operator{}, err
	}
	if op.Prompts.ListenerForm == "" {
		op.Prompts.ListenerForm = extractor.FormVerdict
	}
	if !op.Prompts.ListenerForm.Valid() {
		return Operator{}, fmt.Errorf("unknown listener_form %q", op.Prompts.ListenerForm)
	}
	op.Prompts.Instructions = op.Prompts.Instructions.WithDefaults()
	return op, nil
}
