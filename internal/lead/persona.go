package lead

import "strings"

const (
	DefaultGeneralInstruction = "You are a helpful assistant that can answer questions and provide information."

	DefaultLeadCaptureInstruction = `You are a friendly assistant whose job right now is to collect the user's contact details so the team can follow up.

- Ask for the user's name first, then their email address.
- Ask for one thing at a time and keep each message short.
- If the user asks a question, answer it briefly, then return to collecting their details.
- Never invent details and never ask for anything other than name and email.
- Once you have both, thank the user and confirm what you recorded.`

	// DefaultContinuousDirective is appended to the general instruction in
	// continuous mode. "{missing}" is replaced with the unknown fields.
	DefaultContinuousDirective = `After answering, politely ask the user for their {missing} so the team can follow up. Keep the request to one short, natural sentence and never repeat a request the user has already answered.`

	WelcomeGeneral     = "How may I assist you today?"
	WelcomeLeadCapture = "Before we begin, could you please provide your name?"
)

// Instructions are the system instructions the selector chooses between.
type Instructions struct {
	General             string `yaml:"general"`
	LeadCapture         string `yaml:"lead_capture"`
	ContinuousDirective string `yaml:"continuous_directive"`
}

// DefaultInstructions returns the built-in instruction set.
func DefaultInstructions() Instructions {
	return Instructions{
		General:             DefaultGeneralInstruction,
		LeadCapture:         DefaultLeadCaptureInstruction,
		ContinuousDirective: DefaultContinuousDirective,
	}
}

// WithDefaults fills empty instructions from the built-in set.
func (in Instructions) WithDefaults() Instructions {
	def := DefaultInstructions()
	if in.General == "" {
		in.General = def.General
	}
	if in.LeadCapture == "" {
		in.LeadCapture = def.LeadCapture
	}
	if in.ContinuousDirective == "" {
		in.ContinuousDirective = def.ContinuousDirective
	}
	return in
}

// Selection is the persona chosen for one reply.
type Selection struct {
	Kind        Persona
	Instruction string
	Augmented   bool
}

// Selector picks the persona for the next reply.
type Selector struct {
	Instructions Instructions
}

// Select applies the decision table in order; the first match wins.
func (s Selector) Select(state SessionState, cfg CaptureConfig) Selection {
	plain := Selection{Kind: PersonaGeneral, Instruction: s.Instructions.General}

	if !cfg.Enabled || state.Captured() {
		return plain
	}
	if cfg.Mode == ModeThreshold && (state.TurnCount >= cfg.Threshold || cfg.StartWithCapture) {
		return Selection{Kind: PersonaLeadCapture, Instruction: s.Instructions.LeadCapture}
	}
	if cfg.Mode == ModeContinuous {
		missing := state.Fields.Missing()
		if len(missing) == 0 {
			return plain
		}
		directive := strings.ReplaceAll(s.Instructions.ContinuousDirective, "{missing}", strings.Join(missing, " and "))
		return Selection{
			Kind:        PersonaGeneral,
			Instruction: s.Instructions.General + "\n\n" + directive,
			Augmented:   true,
		}
	}
	return plain
}

// Welcome returns the greeting a fresh session opens with.
func (s Selector) Welcome(cfg CaptureConfig) string {
	if cfg.Enabled && cfg.Mode == ModeThreshold && cfg.StartWithCapture {
		return WelcomeLeadCapture
	}
	return WelcomeGeneral
}
