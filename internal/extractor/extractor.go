package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/leadbot/internal/conversation"
)

// Form selects the reply shape the listener prompt asks for.
type Form string

const (
	// FormVerdict replies carry a boolean verdict gating the fields.
	FormVerdict Form = "verdict"
	// FormFields replies carry name and email only.
	FormFields Form = "fields"
)

// Valid reports whether f is a known form.
func (f Form) Valid() bool {
	return f == FormVerdict || f == FormFields
}

// Completer is the structured completion call the extractor needs.
type Completer interface {
	Complete(ctx context.Context, instruction string, prior []conversation.Turn, userText string, structured bool) (string, error)
}

// Result is the extractor's reading of one utterance.
// Verdict is nil when the reply carried no verdict.
type Result struct {
	Name    string
	Email   string
	Verdict *bool
}

// Empty reports whether no field was extracted.
func (r Result) Empty() bool {
	return r.Name == "" && r.Email == ""
}

// Positive reports whether the reply carried verdict=true.
func (r Result) Positive() bool {
	return r.Verdict != nil && *r.Verdict
}

type Extractor struct {
	llm    Completer
	form   Form
	prompt string
	logger *slog.Logger
}

// New returns an extractor for the given form. An empty prompt selects the
// built-in listener prompt for that form.
func New(llm Completer, form Form, prompt string, logger *slog.Logger) *Extractor {
	if !form.Valid() {
		form = FormVerdict
	}
	if prompt == "" {
		prompt = DefaultPrompt(form)
	}
	return &Extractor{llm: llm, form: form, prompt: prompt, logger: logger}
}

// DefaultPrompt returns the built-in listener prompt for form.
func DefaultPrompt(form Form) string {
	if form == FormFields {
		return FieldsPrompt
	}
	return VerdictPrompt
}

// Form returns the configured reply form.
func (e *Extractor) Form() Form {
	return e.form
}

type llmResponse struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Verdict *bool  `json:"verdict"`
}

// Extract asks the listener about utterance, with history as the prior
// conversation (nil to inspect the utterance alone). A reply that cannot be
// parsed yields an empty Result and no error; only provider failures are
// returned as errors.
func (e *Extractor) Extract(ctx context.Context, utterance string, history []conversation.Turn) (Result, error) {
	raw, err := e.llm.Complete(ctx, e.prompt, history, utterance, true)
	if err != nil {
		return Result{}, fmt.Errorf("llm extraction: %w", err)
	}

	resp, ok := parse(raw)
	if !ok {
		e.logger.Warn("unparseable extraction response", "raw", raw)
		return Result{}, nil
	}

	res := Result{
		Name:  strings.TrimSpace(resp.Name),
		Email: strings.TrimSpace(resp.Email),
	}
	if e.form == FormVerdict {
		res.Verdict = resp.Verdict
		if !res.Positive() {
			res.Name, res.Email = "", ""
		}
	}

	e.logger.Debug("extraction complete",
		"form", string(e.form),
		"verdict", res.Positive(),
		"has_name", res.Name != "",
		"has_email", res.Email != "",
	)
	return res, nil
}

var fenced = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)```")

func parse(raw string) (llmResponse, bool) {
	if resp, err := decode(raw); err == nil {
		return resp, true
	}
	m := fenced.FindStringSubmatch(raw)
	if m == nil {
		return llmResponse{}, false
	}
	resp, err := decode(m[1])
	if err != nil {
		return llmResponse{}, false
	}
	return resp, true
}

func decode(s string) (llmResponse, error) {
	var resp llmResponse
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(s)))
	if err := dec.Decode(&resp); err != nil {
		return llmResponse{}, err
	}
	if dec.More() {
		return llmResponse{}, fmt.Errorf("trailing data after JSON object")
	}
	return resp, nil
}
