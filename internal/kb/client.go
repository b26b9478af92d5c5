package kb

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/leadbot/internal/conversation"
)

const maxEventSize = 1 << 20

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 120 * time.Second},
		logger:  logger,
	}
}

// Query is a question sent to the knowledge base.
type Query struct {
	Query       string              `json:"query"`
	Instruction string              `json:"instruction,omitempty"`
	History     []conversation.Turn `json:"history,omitempty"`
}

// Stream posts q and calls fn for every well-formed event in the reply.
// The body is read as newline-delimited JSON; SSE "data:" framing is also
// accepted. Malformed events are logged and skipped.
func (c *Client) Stream(ctx context.Context, projectID string, q Query, fn func(Event) error) error {
	body, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/chat", c.baseURL, url.PathEscape(projectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("kb stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("kb stream %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "data:") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
		if line == "" || strings.HasPrefix(line, ":") || line == "[DONE]" {
			continue
		}
		ev, err := ParseEvent([]byte(line))
		if err != nil {
			c.logger.Warn("rejected stream event", "error", err)
			continue
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}

// Lookup resolves a citation. Unknown citations yield an empty Source.
func (c *Client) Lookup(ctx context.Context, projectID string, id CitationID) (Source, error) {
	endpoint := fmt.Sprintf("%s/v1/projects/%s/sources/%s", c.baseURL, url.PathEscape(projectID), url.PathEscape(string(id)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Source{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return Source{}, fmt.Errorf("kb lookup: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Source{}, nil
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Source{}, fmt.Errorf("kb lookup %s: status %d", id, resp.StatusCode)
	}

	var src Source
	if err := json.NewDecoder(resp.Body).Decode(&src); err != nil {
		return Source{}, fmt.Errorf("decode source: %w", err)
	}
	return src, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// Streamer is the streaming half of the knowledge-base API.
type Streamer interface {
	Stream(ctx context.Context, projectID string, q Query, fn func(Event) error) error
}

// Responder answers a turn from the knowledge base, so the coordinator can
// drive it exactly like a completion-backed reply.
type Responder struct {
	Streamer  Streamer
	Resolver  CitationResolver
	ProjectID string
	Logger    *slog.Logger
}

func (r Responder) Respond(ctx context.Context, instruction string, prior []conversation.Turn, userText string) (string, error) {
	a := NewAssembler(r.Resolver, r.ProjectID, r.Logger)
	q := Query{Query: userText, Instruction: instruction, History: prior}

	err := r.Streamer.Stream(ctx, r.ProjectID, q, func(ev Event) error {
		a.Add(ev)
		return nil
	})
	if err != nil {
		if a.Empty() {
			return "", err
		}
		r.Logger.Warn("kb stream ended early, returning partial answer", "error", err)
	}
	return a.Result(ctx), nil
}

var _ CitationResolver = (*Client)(nil)
var _ Streamer = (*Client)(nil)
