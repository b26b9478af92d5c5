package lead

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/leadbot/internal/conversation"
	"github.com/MikeSquared-Agency/leadbot/internal/extractor"
)

const (
	// FallbackReply stands in for the assistant when the reply could not be generated.
	FallbackReply = "I'm sorry, I'm having trouble responding right now. Please try again in a moment."

	followUp = "How else can I assist you today?"
)

var (
	ErrInputDisabled  = errors.New("input is disabled for this session")
	ErrEmptyUtterance = errors.New("utterance is empty")
)

// Extractor reads contact details out of one utterance.
type Extractor interface {
	Extract(ctx context.Context, utterance string, history []conversation.Turn) (extractor.Result, error)
}

// Responder produces the assistant reply under a system instruction.
type Responder interface {
	Respond(ctx context.Context, instruction string, prior []conversation.Turn, userText string) (string, error)
}

// CaptureHook is called once, on the turn the lead becomes captured.
type CaptureHook func(ctx context.Context, fields Fields)

// TurnResult reports what one HandleTurn call did.
type TurnResult struct {
	Reply string
	// Persona is the persona whose instruction produced Reply.
	Persona Persona

	// Captured is true only on the turn the status flipped.
	Captured bool
	Fields   Fields
	Status   Status

	// Notice is the capture announcement appended to the transcript, if any.
	Notice string
	// Appended is the operator message appended this turn, if any.
	Appended      string
	InputDisabled bool

	// Failed is set when the reply is the fallback text.
	Failed bool
}

// Coordinator owns one session's state and runs the per-turn protocol.
// It is not safe for concurrent use; callers serialise turns per session.
type Coordinator struct {
	cfg       CaptureConfig
	selector  Selector
	extractor Extractor
	responder Responder
	hooks     []CaptureHook
	parallel  bool
	logger    *slog.Logger

	transcript     conversation.Transcript
	fields         Fields
	status         Status
	turnCount      int
	persona        Persona
	noticeAppended bool
	inputDisabled  bool
}

type Option func(*Coordinator)

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

func WithInstructions(in Instructions) Option {
	return func(c *Coordinator) { c.selector = Selector{Instructions: in.WithDefaults()} }
}

// OnLeadCaptured registers hooks fired when the lead is captured.
func OnLeadCaptured(hooks ...CaptureHook) Option {
	return func(c *Coordinator) { c.hooks = append(c.hooks, hooks...) }
}

// WithParallel runs extraction and reply generation concurrently. The
// reply persona is then chosen from the state before this turn's
// extraction; committed state is the same as in sequential mode.
func WithParallel(on bool) Option {
	return func(c *Coordinator) { c.parallel = on }
}

// New validates cfg and returns a coordinator holding a fresh session.
func New(cfg CaptureConfig, ext Extractor, resp Responder, opts ...Option) (*Coordinator, error) {
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Coordinator{
		cfg:       cfg,
		selector:  Selector{Instructions: DefaultInstructions()},
		extractor: ext,
		responder: resp,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Reset()
	return c, nil
}

// Reset clears the session and re-emits the welcome turn.
func (c *Coordinator) Reset() {
	c.transcript.Reset()
	c.fields = Fields{}
	c.status = StatusNotCaptured
	c.turnCount = 0
	c.noticeAppended = false
	c.inputDisabled = false
	c.persona = c.selector.Select(c.state(), c.cfg).Kind
	c.transcript.AddAssistant(c.selector.Welcome(c.cfg))
}

// Reconfigure swaps in a new config. An invalid config is rejected and the
// current one kept. A mode change resets the session; the return value
// reports whether that happened. Otherwise the config applies in place:
// state derived from the old config (persona, input lock, and the welcome
// turn of an untouched session) is recomputed under the new one.
func (c *Coordinator) Reconfigure(cfg CaptureConfig) (bool, error) {
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return false, err
	}
	modeChanged := cfg.Mode != c.cfg.Mode
	c.cfg = cfg
	if modeChanged {
		c.logger.Info("capture mode changed, resetting session", "mode", string(cfg.Mode))
		c.Reset()
		return true, nil
	}
	if c.turnCount == 0 {
		// Nothing but the welcome turn to lose.
		c.Reset()
		return false, nil
	}
	c.inputDisabled = c.noticeAppended && cfg.DisableInputAfterAppend && cfg.appendPolicyActive()
	c.persona = c.selector.Select(c.state(), c.cfg).Kind
	return false, nil
}

// Config returns the active capture config.
func (c *Coordinator) Config() CaptureConfig {
	return c.cfg
}

// Snapshot returns a copy of the session state.
func (c *Coordinator) Snapshot() SessionState {
	return c.state()
}

func (c *Coordinator) state() SessionState {
	return SessionState{
		Transcript:     c.transcript.Turns(),
		Fields:         c.fields,
		Status:         c.status,
		TurnCount:      c.turnCount,
		ActivePersona:  c.persona,
		NoticeAppended: c.noticeAppended,
		InputDisabled:  c.inputDisabled,
	}
}

// HandleTurn processes one user utterance end to end.
func (c *Coordinator) HandleTurn(ctx context.Context, utterance string) (TurnResult, error) {
	if strings.TrimSpace(utterance) == "" {
		return TurnResult{}, ErrEmptyUtterance
	}
	if c.inputDisabled {
		return TurnResult{}, ErrInputDisabled
	}

	prior := c.transcript.Turns()
	c.turnCount++
	c.transcript.AddUser(utterance)

	var (
		sel      Selection
		res      extractor.Result
		reply    string
		replyErr error
	)
	if c.parallel {
		sel = c.selector.Select(c.state(), c.cfg)
		var g errgroup.Group
		g.Go(func() error {
			res = c.extract(ctx, utterance, prior)
			return nil
		})
		g.Go(func() error {
			reply, replyErr = c.responder.Respond(ctx, sel.Instruction, prior, utterance)
			return nil
		})
		_ = g.Wait()
	} else {
		res = c.extract(ctx, utterance, prior)
	}

	captured := c.apply(res)

	if !c.parallel {
		sel = c.selector.Select(c.state(), c.cfg)
		reply, replyErr = c.responder.Respond(ctx, sel.Instruction, prior, utterance)
	}

	out := TurnResult{Persona: sel.Kind}
	if replyErr != nil {
		c.logger.Error("reply generation failed",
			"persona", string(sel.Kind),
			"turn", c.turnCount,
			"error", replyErr,
		)
		reply = FallbackReply
		out.Failed = true
	}
	// The committed persona is the post-merge selection in both modes; the
	// reply itself may have been produced under the earlier one.
	c.persona = sel.Kind
	if c.parallel {
		c.persona = c.selector.Select(c.state(), c.cfg).Kind
	}
	c.transcript.AddAssistant(reply)
	out.Reply = reply

	if captured {
		out.Captured = true
		out.Notice = c.announce(ctx)
	}
	out.Appended = c.applyAppendPolicy()

	out.Fields = c.fields
	out.Status = c.status
	out.InputDisabled = c.inputDisabled
	return out, nil
}

func (c *Coordinator) extract(ctx context.Context, utterance string, prior []conversation.Turn) extractor.Result {
	if !c.cfg.Enabled || c.status == StatusCaptured {
		return extractor.Result{}
	}
	var history []conversation.Turn
	if c.cfg.ExtractScope == ScopeTranscript {
		history = prior
	}
	res, err := c.extractor.Extract(ctx, utterance, history)
	if err != nil {
		c.logger.Warn("extraction failed, treating as nothing extracted", "turn", c.turnCount, "error", err)
		return extractor.Result{}
	}
	return res
}

// apply merges an extraction and runs the transition rule. It reports
// whether the status flipped to captured.
func (c *Coordinator) apply(res extractor.Result) bool {
	c.fields = c.fields.merge(res.Name, res.Email)
	if c.status == StatusCaptured {
		return false
	}

	capture := c.fields.Complete()
	if res.Positive() {
		if c.fields.Empty() {
			c.logger.Warn("extractor reported a verdict with no fields", "turn", c.turnCount)
		} else {
			capture = true
		}
	}
	if !capture {
		return false
	}

	c.status = StatusCaptured
	c.logger.Info("lead captured",
		"turn", c.turnCount,
		"has_name", c.fields.Name != "",
		"has_email", c.fields.Email != "",
	)
	return true
}

func (c *Coordinator) announce(ctx context.Context) string {
	for _, hook := range c.hooks {
		hook(ctx, c.fields)
	}
	if !c.cfg.AnnounceInTranscript {
		return ""
	}
	notice := fmt.Sprintf("%s\n\n%s", c.fields.Notice(), followUp)
	c.transcript.AddAssistant(notice)
	return notice
}

// applyAppendPolicy appends the operator message once the session has
// produced AppendAfter replies without capturing the lead.
func (c *Coordinator) applyAppendPolicy() string {
	if !c.cfg.appendPolicyActive() || c.noticeAppended || c.status == StatusCaptured {
		return ""
	}
	if c.turnCount < *c.cfg.AppendAfter {
		return ""
	}
	c.transcript.AddAssistant(c.cfg.AppendMessage)
	c.noticeAppended = true
	if c.cfg.DisableInputAfterAppend {
		c.inputDisabled = true
	}
	c.logger.Info("operator message appended", "turn", c.turnCount, "input_disabled", c.inputDisabled)
	return c.cfg.AppendMessage
}
