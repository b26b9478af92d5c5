package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/leadbot/internal/hermes"
	"github.com/MikeSquared-Agency/leadbot/internal/lead"
)

// Capture is one captured lead, as handed to notifiers.
type Capture struct {
	SessionID  string
	Fields     lead.Fields
	Turn       int
	CapturedAt time.Time
}

// Notifier delivers a captured lead somewhere outside the conversation.
type Notifier interface {
	LeadCaptured(ctx context.Context, c Capture) error
}

// Publisher is the subset of the hermes client used for lead events.
type Publisher interface {
	PublishLeadCaptured(evt hermes.LeadCapturedEvent) error
}

// EventNotifier publishes captured leads on the message bus.
type EventNotifier struct {
	Publisher Publisher
}

func (n EventNotifier) LeadCaptured(_ context.Context, c Capture) error {
	err := n.Publisher.PublishLeadCaptured(hermes.LeadCapturedEvent{
		SessionID:  c.SessionID,
		Name:       c.Fields.Name,
		Email:      c.Fields.Email,
		Turn:       c.Turn,
		CapturedAt: c.CapturedAt,
	})
	if err != nil {
		return fmt.Errorf("publish lead: %w", err)
	}
	return nil
}

// Poster is the subset of the slack poster used for lead alerts.
type Poster interface {
	PostLeadCaptured(ctx context.Context, sessionID string, fields lead.Fields, turn int) (string, error)
}

// SlackNotifier posts captured leads to the leads channel.
type SlackNotifier struct {
	Poster Poster
}

func (n SlackNotifier) LeadCaptured(ctx context.Context, c Capture) error {
	if _, err := n.Poster.PostLeadCaptured(ctx, c.SessionID, c.Fields, c.Turn); err != nil {
		return fmt.Errorf("post lead: %w", err)
	}
	return nil
}
