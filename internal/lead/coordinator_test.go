package lead

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/MikeSquared-Agency/leadbot/internal/conversation"
	"github.com/MikeSquared-Agency/leadbot/internal/extractor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func verdict(v bool) *bool { return &v }

func intPtr(n int) *int { return &n }

// scriptedExtractor returns one result per call, then empty results.
type scriptedExtractor struct {
	mu        sync.Mutex
	results   []extractor.Result
	errs      []error
	calls     int
	histories [][]conversation.Turn
}

func (s *scriptedExtractor) Extract(_ context.Context, _ string, history []conversation.Turn) (extractor.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	s.histories = append(s.histories, history)
	if i < len(s.errs) && s.errs[i] != nil {
		return extractor.Result{}, s.errs[i]
	}
	if i < len(s.results) {
		return s.results[i], nil
	}
	return extractor.Result{}, nil
}

type recordingResponder struct {
	mu           sync.Mutex
	instructions []string
	priors       [][]conversation.Turn
	err          error
}

func (r *recordingResponder) Respond(_ context.Context, instruction string, prior []conversation.Turn, userText string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instructions = append(r.instructions, instruction)
	r.priors = append(r.priors, prior)
	if r.err != nil {
		return "", r.err
	}
	return "reply to " + userText, nil
}

func newTestCoordinator(t *testing.T, cfg CaptureConfig, ext Extractor, resp Responder, opts ...Option) *Coordinator {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	c, err := New(cfg, ext, resp, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func turn(t *testing.T, c *Coordinator, text string) TurnResult {
	t.Helper()
	res, err := c.HandleTurn(context.Background(), text)
	if err != nil {
		t.Fatalf("HandleTurn(%q): %v", text, err)
	}
	return res
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Threshold = 0
	if _, err := New(cfg, &scriptedExtractor{}, &recordingResponder{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestHandleTurn_MonotonicMerge(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Threshold = 10
	ext := &scriptedExtractor{results: []extractor.Result{
		{Name: "Jane"},
		{},
		{Name: ""},
	}}
	c := newTestCoordinator(t, cfg, ext, &recordingResponder{})

	for _, text := range []string{"I'm Jane", "what's the weather", "ok"} {
		turn(t, c, text)
		if got := c.Snapshot().Fields.Name; got != "Jane" {
			t.Fatalf("after %q: known name erased, got %q", text, got)
		}
	}
}

func TestHandleTurn_NewerValueReplacesOlder(t *testing.T) {
	ext := &scriptedExtractor{results: []extractor.Result{
		{Name: "Jan"},
		{Name: "Jane"},
	}}
	c := newTestCoordinator(t, DefaultCaptureConfig(), ext, &recordingResponder{})

	turn(t, c, "I'm Jan")
	turn(t, c, "sorry, Jane")

	if got := c.Snapshot().Fields.Name; got != "Jane" {
		t.Errorf("expected most recent name, got %q", got)
	}
}

func TestHandleTurn_CompletenessTrigger(t *testing.T) {
	ext := &scriptedExtractor{results: []extractor.Result{
		{Name: "Jane"},
		{Email: "jane@x.com", Verdict: verdict(false)},
	}}
	var hooked []Fields
	hook := func(_ context.Context, f Fields) { hooked = append(hooked, f) }
	c := newTestCoordinator(t, DefaultCaptureConfig(), ext, &recordingResponder{}, OnLeadCaptured(hook))

	first := turn(t, c, "I'm Jane")
	if first.Captured || first.Status != StatusNotCaptured {
		t.Fatalf("expected not captured after turn 1, got %+v", first)
	}

	second := turn(t, c, "jane@x.com")
	if !second.Captured || second.Status != StatusCaptured {
		t.Fatalf("expected captured after turn 2, got %+v", second)
	}
	want := Fields{Name: "Jane", Email: "jane@x.com"}
	if diff := cmp.Diff([]Fields{want}, hooked); diff != "" {
		t.Errorf("hook calls mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleTurn_VerdictTrigger(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Threshold = 10
	// A verdict carrying no fields still captures when a field is already known.
	ext := &scriptedExtractor{results: []extractor.Result{
		{Name: "Jane"},
		{Verdict: verdict(false)},
		{Verdict: verdict(true)},
	}}
	c := newTestCoordinator(t, cfg, ext, &recordingResponder{})

	turn(t, c, "I'm Jane")
	turn(t, c, "hello")
	res := turn(t, c, "that's all")

	if !res.Captured {
		t.Fatalf("expected verdict to capture with a known name, got %+v", res)
	}
	if res.Fields.Name != "Jane" {
		t.Errorf("expected name kept, got %q", res.Fields.Name)
	}
}

func TestHandleTurn_VerdictWithBothFieldsKnown(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Mode = ModeContinuous
	ext := &scriptedExtractor{results: []extractor.Result{
		{Name: "Jane"},
		{Email: "jane@x.com"},
	}}
	c := newTestCoordinator(t, cfg, ext, &recordingResponder{})

	turn(t, c, "I'm Jane")
	res := turn(t, c, "jane@x.com")
	if !res.Captured {
		t.Fatalf("expected captured once both fields known, got %+v", res)
	}
}

func TestHandleTurn_VerdictContradiction(t *testing.T) {
	ext := &scriptedExtractor{results: []extractor.Result{
		{Verdict: verdict(true)},
	}}
	c := newTestCoordinator(t, DefaultCaptureConfig(), ext, &recordingResponder{})

	res := turn(t, c, "hello")
	if res.Captured || res.Status != StatusNotCaptured {
		t.Fatalf("verdict without fields must not capture, got %+v", res)
	}
}

func TestHandleTurn_Latch(t *testing.T) {
	ext := &scriptedExtractor{results: []extractor.Result{
		{Name: "Jane", Email: "jane@x.com", Verdict: verdict(true)},
		{Verdict: verdict(false)},
		{},
	}}
	hooks := 0
	c := newTestCoordinator(t, DefaultCaptureConfig(), ext, &recordingResponder{},
		OnLeadCaptured(func(context.Context, Fields) { hooks++ }))

	turn(t, c, "Jane, jane@x.com")
	for _, text := range []string{"no wait", "never mind"} {
		res := turn(t, c, text)
		if res.Status != StatusCaptured || res.Captured {
			t.Fatalf("after %q: latch broken or re-fired, got %+v", text, res)
		}
	}
	if hooks != 1 {
		t.Errorf("expected capture hook once, got %d", hooks)
	}
	if ext.calls != 1 {
		t.Errorf("expected no extraction after capture, got %d calls", ext.calls)
	}
}

func TestHandleTurn_ThresholdPersonaSwitch(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Threshold = 3
	resp := &recordingResponder{}
	c := newTestCoordinator(t, cfg, &scriptedExtractor{}, resp)

	var personas []Persona
	for _, text := range []string{"one", "two", "three", "four"} {
		personas = append(personas, turn(t, c, text).Persona)
	}

	want := []Persona{PersonaGeneral, PersonaGeneral, PersonaLeadCapture, PersonaLeadCapture}
	if diff := cmp.Diff(want, personas); diff != "" {
		t.Errorf("persona sequence mismatch (-want +got):\n%s", diff)
	}
	if resp.instructions[1] != DefaultGeneralInstruction {
		t.Errorf("turn 2 should use the plain instruction")
	}
	if resp.instructions[2] != DefaultLeadCaptureInstruction {
		t.Errorf("turn 3 should use the lead-capture instruction")
	}
	if c.Snapshot().ActivePersona != PersonaLeadCapture {
		t.Errorf("expected active persona lead_capture, got %s", c.Snapshot().ActivePersona)
	}
}

func TestHandleTurn_ThresholdBoundaryCaptureUsesGeneral(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Threshold = 1
	ext := &scriptedExtractor{results: []extractor.Result{
		{Name: "Jane", Email: "jane@x.com", Verdict: verdict(true)},
	}}
	resp := &recordingResponder{}
	c := newTestCoordinator(t, cfg, ext, resp)

	res := turn(t, c, "Jane, jane@x.com")
	if res.Persona != PersonaGeneral {
		t.Errorf("capturing turn should already reply as general, got %s", res.Persona)
	}
}

func TestHandleTurn_ContinuousAugmentation(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Mode = ModeContinuous
	ext := &scriptedExtractor{results: []extractor.Result{
		{},
		{Name: "Jane"},
		{Email: "jane@x.com"},
	}}
	resp := &recordingResponder{}
	c := newTestCoordinator(t, cfg, ext, resp)

	turn(t, c, "hi")
	turn(t, c, "I'm Jane")
	turn(t, c, "jane@x.com")
	turn(t, c, "thanks")

	if !strings.Contains(resp.instructions[0], "name and email") {
		t.Errorf("turn 1 should ask for name and email, got %q", resp.instructions[0])
	}
	if !strings.Contains(resp.instructions[1], "their email") || strings.Contains(resp.instructions[1], "name and") {
		t.Errorf("turn 2 should ask only for email, got %q", resp.instructions[1])
	}
	if resp.instructions[2] != DefaultGeneralInstruction {
		t.Errorf("capturing turn should use the plain instruction, got %q", resp.instructions[2])
	}
	if resp.instructions[3] != DefaultGeneralInstruction {
		t.Errorf("after capture the plain instruction should be used, got %q", resp.instructions[3])
	}
}

func TestHandleTurn_CaptureNoticeInTranscript(t *testing.T) {
	ext := &scriptedExtractor{results: []extractor.Result{
		{Name: "Jane", Email: "jane@x.com", Verdict: verdict(true)},
	}}
	c := newTestCoordinator(t, DefaultCaptureConfig(), ext, &recordingResponder{})

	res := turn(t, c, "Jane, jane@x.com")
	wantNotice := "Lead captured: Jane (jane@x.com)\n\nHow else can I assist you today?"
	if res.Notice != wantNotice {
		t.Errorf("unexpected notice %q", res.Notice)
	}

	want := []conversation.Turn{
		{Role: conversation.RoleAssistant, Text: WelcomeGeneral},
		{Role: conversation.RoleUser, Text: "Jane, jane@x.com"},
		{Role: conversation.RoleAssistant, Text: "reply to Jane, jane@x.com"},
		{Role: conversation.RoleAssistant, Text: wantNotice},
	}
	if diff := cmp.Diff(want, c.Snapshot().Transcript); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleTurn_CaptureNoticeHookOnly(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.AnnounceInTranscript = false
	ext := &scriptedExtractor{results: []extractor.Result{
		{Name: "Jane", Email: "jane@x.com"},
	}}
	fired := false
	c := newTestCoordinator(t, cfg, ext, &recordingResponder{},
		OnLeadCaptured(func(context.Context, Fields) { fired = true }))

	res := turn(t, c, "Jane, jane@x.com")
	if !fired {
		t.Error("expected hook to fire")
	}
	if res.Notice != "" {
		t.Errorf("expected no transcript notice, got %q", res.Notice)
	}
	if n := c.Snapshot().Transcript; len(n) != 3 {
		t.Errorf("expected welcome, user and reply only, got %d turns", len(n))
	}
}

func TestHandleTurn_ExtractScope(t *testing.T) {
	cfg := DefaultCaptureConfig()
	ext := &scriptedExtractor{}
	c := newTestCoordinator(t, cfg, ext, &recordingResponder{})
	turn(t, c, "hello")
	if ext.histories[0] != nil {
		t.Errorf("utterance scope should pass no history, got %v", ext.histories[0])
	}

	cfg.ExtractScope = ScopeTranscript
	ext = &scriptedExtractor{}
	c = newTestCoordinator(t, cfg, ext, &recordingResponder{})
	turn(t, c, "hello")
	turn(t, c, "again")
	if len(ext.histories[1]) != 3 {
		t.Errorf("transcript scope should pass prior turns, got %d", len(ext.histories[1]))
	}
}

func TestHandleTurn_DisabledSkipsExtraction(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Enabled = false
	cfg.Threshold = 1
	ext := &scriptedExtractor{results: []extractor.Result{{Name: "Jane", Email: "jane@x.com"}}}
	resp := &recordingResponder{}
	c := newTestCoordinator(t, cfg, ext, resp)

	res := turn(t, c, "Jane, jane@x.com")
	if res.Captured || ext.calls != 0 {
		t.Errorf("disabled capture should not extract, captured=%v calls=%d", res.Captured, ext.calls)
	}
	if res.Persona != PersonaGeneral {
		t.Errorf("expected general persona, got %s", res.Persona)
	}
}

func TestHandleTurn_ExtractionErrorIsNothingExtracted(t *testing.T) {
	ext := &scriptedExtractor{errs: []error{errors.New("provider down")}}
	c := newTestCoordinator(t, DefaultCaptureConfig(), ext, &recordingResponder{})

	res := turn(t, c, "I'm Jane")
	if res.Failed {
		t.Error("extraction failure must not fail the reply")
	}
	if res.Reply != "reply to I'm Jane" {
		t.Errorf("unexpected reply %q", res.Reply)
	}
}

func TestHandleTurn_ReplyFailureUsesFallback(t *testing.T) {
	resp := &recordingResponder{err: errors.New("503")}
	c := newTestCoordinator(t, DefaultCaptureConfig(), &scriptedExtractor{}, resp)

	res := turn(t, c, "hi")
	if !res.Failed || res.Reply != FallbackReply {
		t.Fatalf("expected fallback reply, got %+v", res)
	}
	snap := c.Snapshot()
	last := snap.Transcript[len(snap.Transcript)-1]
	if last.Role != conversation.RoleAssistant || last.Text != FallbackReply {
		t.Errorf("expected fallback as last assistant turn, got %+v", last)
	}
	if snap.TurnCount != 1 {
		t.Errorf("expected turn count 1, got %d", snap.TurnCount)
	}
}

func TestHandleTurn_EmptyUtterance(t *testing.T) {
	c := newTestCoordinator(t, DefaultCaptureConfig(), &scriptedExtractor{}, &recordingResponder{})
	if _, err := c.HandleTurn(context.Background(), "   "); !errors.Is(err, ErrEmptyUtterance) {
		t.Fatalf("expected ErrEmptyUtterance, got %v", err)
	}
	if c.Snapshot().TurnCount != 0 {
		t.Error("blank utterance must not count as a turn")
	}
}

func TestHandleTurn_AppendPolicy(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Threshold = 10
	cfg.AppendMessage = "Please leave your email and we'll be in touch."
	cfg.AppendAfter = intPtr(2)
	cfg.DisableInputAfterAppend = true
	c := newTestCoordinator(t, cfg, &scriptedExtractor{}, &recordingResponder{})

	first := turn(t, c, "one")
	if first.Appended != "" {
		t.Fatalf("message appended too early")
	}
	second := turn(t, c, "two")
	if second.Appended != cfg.AppendMessage || !second.InputDisabled {
		t.Fatalf("expected message appended and input disabled, got %+v", second)
	}

	snap := c.Snapshot()
	if last := snap.Transcript[len(snap.Transcript)-1]; last.Text != cfg.AppendMessage {
		t.Errorf("expected operator message last, got %q", last.Text)
	}
	if _, err := c.HandleTurn(context.Background(), "three"); !errors.Is(err, ErrInputDisabled) {
		t.Fatalf("expected ErrInputDisabled, got %v", err)
	}
}

func TestHandleTurn_AppendPolicySkippedWhenCaptured(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.AppendMessage = "Leave your details"
	cfg.AppendAfter = intPtr(1)
	ext := &scriptedExtractor{results: []extractor.Result{{Name: "Jane", Email: "jane@x.com"}}}
	c := newTestCoordinator(t, cfg, ext, &recordingResponder{})

	res := turn(t, c, "Jane, jane@x.com")
	if res.Appended != "" {
		t.Errorf("captured session should not get the operator message")
	}
}

func TestHandleTurn_AppendPolicyOnce(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Threshold = 10
	cfg.AppendMessage = "Leave your details"
	cfg.AppendAfter = intPtr(0)
	c := newTestCoordinator(t, cfg, &scriptedExtractor{}, &recordingResponder{})

	turn(t, c, "one")
	if res := turn(t, c, "two"); res.Appended != "" {
		t.Errorf("operator message must be appended only once")
	}
}

func TestReset(t *testing.T) {
	ext := &scriptedExtractor{results: []extractor.Result{{Name: "Jane", Email: "jane@x.com"}}}
	c := newTestCoordinator(t, DefaultCaptureConfig(), ext, &recordingResponder{})
	turn(t, c, "Jane, jane@x.com")
	turn(t, c, "more")

	c.Reset()
	snap := c.Snapshot()
	want := SessionState{
		Transcript:    []conversation.Turn{{Role: conversation.RoleAssistant, Text: WelcomeGeneral}},
		Status:        StatusNotCaptured,
		ActivePersona: PersonaGeneral,
	}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Errorf("state after reset mismatch (-want +got):\n%s", diff)
	}
}

func TestReset_StartWithCapture(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.StartWithCapture = true
	resp := &recordingResponder{}
	c := newTestCoordinator(t, cfg, &scriptedExtractor{}, resp)

	snap := c.Snapshot()
	if snap.Transcript[0].Text != WelcomeLeadCapture {
		t.Errorf("expected lead-capture welcome, got %q", snap.Transcript[0].Text)
	}
	if snap.ActivePersona != PersonaLeadCapture {
		t.Errorf("expected lead_capture persona, got %s", snap.ActivePersona)
	}
	if res := turn(t, c, "hi"); res.Persona != PersonaLeadCapture {
		t.Errorf("first turn should use lead capture, got %s", res.Persona)
	}
}

func TestReconfigure(t *testing.T) {
	c := newTestCoordinator(t, DefaultCaptureConfig(), &scriptedExtractor{}, &recordingResponder{})
	turn(t, c, "hello")

	bad := c.Config()
	bad.Threshold = 0
	if _, err := c.Reconfigure(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if c.Config().Threshold != 3 {
		t.Errorf("prior config not retained, threshold=%d", c.Config().Threshold)
	}

	same := c.Config()
	same.Threshold = 5
	reset, err := c.Reconfigure(same)
	if err != nil || reset {
		t.Fatalf("threshold change should not reset: reset=%v err=%v", reset, err)
	}
	if c.Snapshot().TurnCount != 1 {
		t.Error("session state lost without a mode change")
	}

	cont := c.Config()
	cont.Mode = ModeContinuous
	reset, err = c.Reconfigure(cont)
	if err != nil || !reset {
		t.Fatalf("mode change should reset: reset=%v err=%v", reset, err)
	}
	if snap := c.Snapshot(); snap.TurnCount != 0 || len(snap.Transcript) != 1 {
		t.Errorf("expected fresh session after mode change, got %+v", snap)
	}
}

func TestHandleTurn_ParallelCommitsSameState(t *testing.T) {
	results := []extractor.Result{
		{Name: "Jane"},
		{Email: "jane@x.com"},
		{},
	}
	run := func(parallel bool) SessionState {
		ext := &scriptedExtractor{results: results}
		c := newTestCoordinator(t, DefaultCaptureConfig(), ext, &recordingResponder{}, WithParallel(parallel))
		for _, text := range []string{"I'm Jane", "jane@x.com", "thanks"} {
			turn(t, c, text)
		}
		return c.Snapshot()
	}

	seq, par := run(false), run(true)
	if diff := cmp.Diff(seq.Fields, par.Fields); diff != "" {
		t.Errorf("fields differ (-seq +par):\n%s", diff)
	}
	if seq.ActivePersona != par.ActivePersona {
		t.Errorf("active persona differs: seq=%s par=%s", seq.ActivePersona, par.ActivePersona)
	}
	if seq.Status != par.Status || seq.TurnCount != par.TurnCount {
		t.Errorf("committed state differs: seq=%s/%d par=%s/%d", seq.Status, seq.TurnCount, par.Status, par.TurnCount)
	}
	if par.Status != StatusCaptured {
		t.Errorf("expected captured, got %s", par.Status)
	}
}

func TestHandleTurn_ParallelPersonaAtThresholdCapture(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Threshold = 1
	run := func(parallel bool) (TurnResult, SessionState) {
		ext := &scriptedExtractor{results: []extractor.Result{{Name: "Jane", Email: "jane@x.com"}}}
		c := newTestCoordinator(t, cfg, ext, &recordingResponder{}, WithParallel(parallel))
		res := turn(t, c, "Jane, jane@x.com")
		return res, c.Snapshot()
	}

	seqRes, seq := run(false)
	parRes, par := run(true)

	if seq.ActivePersona != PersonaGeneral || par.ActivePersona != PersonaGeneral {
		t.Errorf("expected general after capture, got seq=%s par=%s", seq.ActivePersona, par.ActivePersona)
	}
	if seqRes.Persona != PersonaGeneral {
		t.Errorf("sequential reply should use the post-merge persona, got %s", seqRes.Persona)
	}
	if parRes.Persona != PersonaLeadCapture {
		t.Errorf("parallel reply should use the pre-merge persona, got %s", parRes.Persona)
	}
}

func TestReconfigure_RecomputesInputLock(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.AppendMessage = "We'll be in touch."
	cfg.AppendAfter = intPtr(1)
	cfg.DisableInputAfterAppend = true
	c := newTestCoordinator(t, cfg, &scriptedExtractor{}, &recordingResponder{})

	if res := turn(t, c, "hello"); !res.InputDisabled {
		t.Fatal("expected input disabled after the operator message")
	}

	still := c.Config()
	still.Threshold = 5
	if _, err := c.Reconfigure(still); err != nil {
		t.Fatal(err)
	}
	if _, err := c.HandleTurn(context.Background(), "again"); !errors.Is(err, ErrInputDisabled) {
		t.Errorf("lock should survive an unrelated change, got %v", err)
	}

	off := c.Config()
	off.Enabled = false
	off.DisableInputAfterAppend = false
	reset, err := c.Reconfigure(off)
	if err != nil || reset {
		t.Fatalf("expected in-place change: reset=%v err=%v", reset, err)
	}
	if c.Snapshot().InputDisabled {
		t.Error("input lock not lifted by the new config")
	}
	if _, err := c.HandleTurn(context.Background(), "back again"); err != nil {
		t.Errorf("expected turn to be accepted, got %v", err)
	}
	if c.Snapshot().TurnCount != 2 {
		t.Errorf("expected session kept, turn count %d", c.Snapshot().TurnCount)
	}
}

func TestReconfigure_RefreshesPersonaAndWelcome(t *testing.T) {
	c := newTestCoordinator(t, DefaultCaptureConfig(), &scriptedExtractor{}, &recordingResponder{})

	start := c.Config()
	start.StartWithCapture = true
	if _, err := c.Reconfigure(start); err != nil {
		t.Fatal(err)
	}
	snap := c.Snapshot()
	want := []conversation.Turn{{Role: conversation.RoleAssistant, Text: WelcomeLeadCapture}}
	if diff := cmp.Diff(want, snap.Transcript); diff != "" {
		t.Errorf("welcome not refreshed (-want +got):\n%s", diff)
	}
	if snap.ActivePersona != PersonaLeadCapture {
		t.Errorf("expected lead capture persona, got %s", snap.ActivePersona)
	}

	turn(t, c, "hello")
	off := c.Config()
	off.Enabled = false
	if _, err := c.Reconfigure(off); err != nil {
		t.Fatal(err)
	}
	snap = c.Snapshot()
	if snap.ActivePersona != PersonaGeneral {
		t.Errorf("expected general persona once capture is off, got %s", snap.ActivePersona)
	}
	if snap.TurnCount != 1 || len(snap.Transcript) != 3 {
		t.Errorf("started session should be kept, got %+v", snap)
	}
}
