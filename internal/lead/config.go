package lead

import (
	"errors"
	"fmt"
)

// Mode is the policy deciding when the assistant starts asking for contact details.
type Mode string

const (
	// ModeThreshold hands the conversation to the lead-capture persona after
	// a fixed number of user turns.
	ModeThreshold Mode = "threshold"
	// ModeContinuous keeps the general persona and nudges for missing fields
	// in every reply.
	ModeContinuous Mode = "continuous"
)

// Scope is what the extractor inspects on each turn.
type Scope string

const (
	ScopeUtterance  Scope = "utterance"
	ScopeTranscript Scope = "transcript"
)

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid capture config")

// CaptureConfig is the operator-chosen capture behaviour. It is read-only to
// the coordinator during a turn.
type CaptureConfig struct {
	Enabled   bool `json:"enabled" yaml:"enabled"`
	Mode      Mode `json:"mode" yaml:"mode"`
	Threshold int  `json:"threshold" yaml:"threshold"`

	// StartWithCapture puts the lead-capture persona in charge from the
	// first turn (threshold mode only).
	StartWithCapture bool `json:"start_with_capture" yaml:"start_with_capture"`

	AppendMessage           string `json:"append_message,omitempty" yaml:"append_message"`
	AppendAfter             *int   `json:"append_after,omitempty" yaml:"append_after"`
	DisableInputAfterAppend bool   `json:"disable_input_after_append" yaml:"disable_input_after_append"`

	ExtractScope Scope `json:"extract_scope" yaml:"extract_scope"`

	// AnnounceInTranscript appends the capture notice to the visible chat
	// log as its own assistant turn, after the reply.
	AnnounceInTranscript bool `json:"announce_in_transcript" yaml:"announce_in_transcript"`
}

// DefaultCaptureConfig returns the settings a fresh deployment starts with.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		Enabled:              true,
		Mode:                 ModeThreshold,
		Threshold:            3,
		ExtractScope:         ScopeUtterance,
		AnnounceInTranscript: true,
	}
}

// Normalized fills unset enumerations with their defaults.
func (c CaptureConfig) Normalized() CaptureConfig {
	if c.Mode == "" {
		c.Mode = ModeThreshold
	}
	if c.ExtractScope == "" {
		c.ExtractScope = ScopeUtterance
	}
	return c
}

// Validate rejects out-of-range values.
func (c CaptureConfig) Validate() error {
	switch c.Mode {
	case ModeThreshold, ModeContinuous:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.Threshold < 1 {
		return fmt.Errorf("%w: threshold must be at least 1, got %d", ErrInvalidConfig, c.Threshold)
	}
	if c.AppendAfter != nil && *c.AppendAfter < 0 {
		return fmt.Errorf("%w: append_after must not be negative, got %d", ErrInvalidConfig, *c.AppendAfter)
	}
	switch c.ExtractScope {
	case ScopeUtterance, ScopeTranscript:
	default:
		return fmt.Errorf("%w: unknown extract scope %q", ErrInvalidConfig, c.ExtractScope)
	}
	return nil
}

func (c CaptureConfig) appendPolicyActive() bool {
	return c.Enabled && c.AppendMessage != "" && c.AppendAfter != nil
}
