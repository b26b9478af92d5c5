package hermes

import "time"

const (
	// SubjectLeadCaptured carries a LeadCapturedEvent for every captured lead.
	SubjectLeadCaptured = "leadbot.lead.captured"
	// SubjectSettingsUpdated tells every instance to reload capture settings.
	SubjectSettingsUpdated = "leadbot.settings.updated"
)

// LeadCapturedEvent is published once per session, on the turn the lead is captured.
type LeadCapturedEvent struct {
	SessionID  string    `json:"session_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Turn       int       `json:"turn"`
	CapturedAt time.Time `json:"captured_at"`
}

// SettingsUpdatedEvent announces that the stored capture settings changed.
type SettingsUpdatedEvent struct {
	InstanceID string    `json:"instance_id"`
	UpdatedBy  string    `json:"updated_by"`
	Mode       string    `json:"mode"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (e LeadCapturedEvent) stamped(now time.Time) LeadCapturedEvent {
	if e.CapturedAt.IsZero() {
		e.CapturedAt = now.UTC()
	}
	return e
}

func (e SettingsUpdatedEvent) stamped(now time.Time) SettingsUpdatedEvent {
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now.UTC()
	}
	return e
}
