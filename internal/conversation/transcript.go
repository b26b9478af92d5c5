package conversation

import (
	"errors"
	"fmt"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrSystemTurn is returned when a system turn is appended to a transcript.
// System instructions are injected per completion call and never stored.
var ErrSystemTurn = errors.New("system turns cannot be stored in a transcript")

// Turn is a single message in a conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Transcript is an append-only log of user and assistant turns.
// The zero value is an empty transcript ready for use.
type Transcript struct {
	turns []Turn
}

// Append adds a turn to the end of the transcript.
func (t *Transcript) Append(turn Turn) error {
	switch turn.Role {
	case RoleUser, RoleAssistant:
	case RoleSystem:
		return ErrSystemTurn
	default:
		return fmt.Errorf("unknown role %q", turn.Role)
	}
	t.turns = append(t.turns, turn)
	return nil
}

// AddUser appends a user turn.
func (t *Transcript) AddUser(text string) {
	t.turns = append(t.turns, Turn{Role: RoleUser, Text: text})
}

// AddAssistant appends an assistant turn.
func (t *Transcript) AddAssistant(text string) {
	t.turns = append(t.turns, Turn{Role: RoleAssistant, Text: text})
}

// Turns returns a copy of the turns in append order.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of stored turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Count returns the number of turns with the given role.
func (t *Transcript) Count(role Role) int {
	n := 0
	for _, turn := range t.turns {
		if turn.Role == role {
			n++
		}
	}
	return n
}

// Last returns the most recent turn, if any.
func (t *Transcript) Last() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// Reset removes every turn.
func (t *Transcript) Reset() {
	t.turns = nil
}
