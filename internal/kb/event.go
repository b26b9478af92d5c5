// Package kb answers questions from a hosted knowledge base that streams its
// replies as JSON events with citations.
package kb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// EventStatus is the kind of a stream event.
type EventStatus string

const (
	StatusProgress EventStatus = "progress"
	StatusError    EventStatus = "error"
	StatusFinish   EventStatus = "finish"
)

// CitationID is an opaque source identifier. Numeric and string JSON ids
// are both accepted and kept in their textual form.
type CitationID string

func (c *CitationID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = CitationID(s)
		return nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("citation id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("citation id must be a string or number: %w", err)
	}
	*c = CitationID(n.String())
	return nil
}

// Event is one record of a streamed answer.
type Event struct {
	Status    EventStatus  `json:"status"`
	Message   *string      `json:"message"`
	Citations []CitationID `json:"citations"`
}

// Text returns the event message, or "" when it is null or absent.
func (e Event) Text() string {
	if e.Message == nil {
		return ""
	}
	return *e.Message
}

var ErrMalformedEvent = errors.New("malformed stream event")

// ParseEvent decodes a single event. Payloads that are not exactly one JSON
// object with a known status are rejected.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if dec.More() {
		return Event{}, fmt.Errorf("%w: trailing data", ErrMalformedEvent)
	}
	switch ev.Status {
	case StatusProgress, StatusError, StatusFinish:
	default:
		return Event{}, fmt.Errorf("%w: unknown status %q", ErrMalformedEvent, ev.Status)
	}
	return ev, nil
}
