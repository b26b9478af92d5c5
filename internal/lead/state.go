package lead

import (
	"fmt"

	"github.com/MikeSquared-Agency/leadbot/internal/conversation"
)

// Status is the capture status of a session. It moves from NotCaptured to
// Captured at most once.
type Status string

const (
	StatusNotCaptured Status = "not_captured"
	StatusCaptured    Status = "captured"
)

// Persona is the kind of system instruction governing a reply.
type Persona string

const (
	PersonaGeneral     Persona = "general"
	PersonaLeadCapture Persona = "lead_capture"
)

// Fields holds the contact details learned so far. An empty string means
// not yet known.
type Fields struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Empty reports whether neither field is known.
func (f Fields) Empty() bool {
	return f.Name == "" && f.Email == ""
}

// Complete reports whether both fields are known.
func (f Fields) Complete() bool {
	return f.Name != "" && f.Email != ""
}

// Missing lists the unknown fields in a fixed order.
func (f Fields) Missing() []string {
	var out []string
	if f.Name == "" {
		out = append(out, "name")
	}
	if f.Email == "" {
		out = append(out, "email")
	}
	return out
}

// merge applies an extraction on top of f. Empty values never overwrite
// known ones.
func (f Fields) merge(name, email string) Fields {
	if name != "" {
		f.Name = name
	}
	if email != "" {
		f.Email = email
	}
	return f
}

// Notice is the human-readable capture announcement.
func (f Fields) Notice() string {
	switch {
	case f.Email == "":
		return "Lead captured: " + f.Name
	case f.Name == "":
		return "Lead captured: " + f.Email
	}
	return fmt.Sprintf("Lead captured: %s (%s)", f.Name, f.Email)
}

// SessionState is a read-only view of a session. ActivePersona is the
// persona selected from the committed state.
type SessionState struct {
	Transcript    []conversation.Turn `json:"transcript"`
	Fields        Fields              `json:"lead"`
	Status        Status              `json:"status"`
	TurnCount     int                 `json:"turn_count"`
	ActivePersona Persona             `json:"active_persona"`

	NoticeAppended bool `json:"notice_appended"`
	InputDisabled  bool `json:"input_disabled"`
}

// Captured reports whether the lead has been captured.
func (s SessionState) Captured() bool {
	return s.Status == StatusCaptured
}
