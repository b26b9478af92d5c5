// Package completion wraps a chat provider behind a single call shape:
// system instruction, prior turns, new user text.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/leadbot/internal/anthropic"
	"github.com/MikeSquared-Agency/leadbot/internal/conversation"
)

const (
	DefaultMaxTokens = 4096
	DefaultTimeout   = 60 * time.Second
)

// Provider is the remote chat completion backend.
type Provider interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message, maxTokens int) (string, error)
	CompleteJSON(ctx context.Context, system string, messages []anthropic.Message, maxTokens int) (string, error)
}

// ProviderError reports that the provider could not produce a completion.
type ProviderError struct {
	Structured bool
	Err        error
}

func (e *ProviderError) Error() string {
	kind := "text"
	if e.Structured {
		kind = "structured"
	}
	return fmt.Sprintf("provider %s completion: %v", kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err is or wraps a *ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

type Client struct {
	provider  Provider
	maxTokens int
	timeout   time.Duration
}

type Option func(*Client)

func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithTimeout bounds each provider call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func New(p Provider, opts ...Option) *Client {
	c := &Client{
		provider:  p,
		maxTokens: DefaultMaxTokens,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends instruction + prior + userText to the provider. When
// structured is set the provider is constrained to a JSON object reply.
// Every failure, including an expired timeout, is a *ProviderError.
func (c *Client) Complete(ctx context.Context, instruction string, prior []conversation.Turn, userText string, structured bool) (string, error) {
	messages := make([]anthropic.Message, 0, len(prior)+1)
	for _, turn := range prior {
		if turn.Role == conversation.RoleSystem {
			continue
		}
		messages = append(messages, anthropic.Message{Role: string(turn.Role), Content: turn.Text})
	}
	messages = append(messages, anthropic.Message{Role: string(conversation.RoleUser), Content: userText})

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var (
		out string
		err error
	)
	if structured {
		out, err = c.provider.CompleteJSON(ctx, instruction, messages, c.maxTokens)
	} else {
		out, err = c.provider.Complete(ctx, instruction, messages, c.maxTokens)
	}
	if err != nil {
		return "", &ProviderError{Structured: structured, Err: err}
	}
	if strings.TrimSpace(out) == "" {
		return "", &ProviderError{Structured: structured, Err: errors.New("empty completion")}
	}
	return out, nil
}

// Responder generates free-text assistant replies through a Client.
type Responder struct {
	Client *Client
}

func (r Responder) Respond(ctx context.Context, instruction string, prior []conversation.Turn, userText string) (string, error) {
	return r.Client.Complete(ctx, instruction, prior, userText, false)
}
