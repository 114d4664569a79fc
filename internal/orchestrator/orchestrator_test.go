package orchestrator

import (
	"fmt"
	"strings"
	"testing"
)

type fakeRetriever struct {
	quick, deep, focused []Item
	err                  error
}

func (f *fakeRetriever) Quick(sessionID, query string) ([]Item, error) {
	return f.quick, f.err
}

func (f *fakeRetriever) Deep(sessionID, query string, rerank bool) ([]Item, error) {
	return f.deep, f.err
}

func (f *fakeRetriever) Focused(sessionID, query, intent string) ([]Item, error) {
	return f.focused, f.err
}

type fakeResumer struct {
	summary, pending string
	err              error
}

func (f *fakeResumer) LastState(sessionID string) (string, string, error) {
	return f.summary, f.pending, f.err
}

func TestResolveModeExplicitWins(t *testing.T) {
	if m := ResolveMode(Input{Mode: ModeQuick, Intent: "add_feature"}); m != ModeQuick {
		t.Fatalf("expected explicit mode to win, got %s", m)
	}
}

func TestResolveModeFromIntentTable(t *testing.T) {
	cases := map[string]Mode{
		"add_feature":    ModeDeep,
		"refactor":       ModeDeep,
		"security_audit": ModeDeep,
		"fix_bug":        ModeFocused,
		"understand":     ModeFocused,
	}
	for intent, want := range cases {
		if got := ResolveMode(Input{Mode: ModeAuto, Intent: intent}); got != want {
			t.Fatalf("intent %q: expected %s, got %s", intent, want, got)
		}
	}
}

func TestResolveModeUnknownIntentDefaultsToFocused(t *testing.T) {
	if m := ResolveMode(Input{Mode: ModeAuto, Intent: "unrecognized"}); m != ModeFocused {
		t.Fatalf("expected default ModeFocused, got %s", m)
	}
	if m := ResolveMode(Input{}); m != ModeFocused {
		t.Fatalf("expected default ModeFocused for empty input, got %s", m)
	}
}

func TestGetContextEmptyQueryIsValidationError(t *testing.T) {
	o := New(&fakeRetriever{}, nil)
	env := o.GetContext(Input{Query: "   ", Mode: ModeQuick})
	if !env.Meta.IsError {
		t.Fatalf("expected IsError=true")
	}
	if !strings.HasPrefix(env.Summary, "Error: ") {
		t.Fatalf("expected Summary prefixed with 'Error: ', got %q", env.Summary)
	}
	if len(env.Hints) == 0 {
		t.Fatalf("expected at least one hint")
	}
	if !strings.Contains(env.Hints[0], "L1:Orchestration") {
		t.Fatalf("expected hint to reference layer L1:Orchestration, got %q", env.Hints[0])
	}
}

func TestGetContextResumeModeAllowsEmptyQuery(t *testing.T) {
	o := New(&fakeRetriever{}, &fakeResumer{summary: "last summary", pending: "finish the thing"})
	env := o.GetContext(Input{Mode: ModeResume, SessionID: "s1"})
	if env.Meta.IsError {
		t.Fatalf("expected resume mode with empty query to succeed, got error %q", env.Summary)
	}
	if env.Summary != "last summary" {
		t.Fatalf("expected resumer summary to be used, got %q", env.Summary)
	}
}

func TestGetContextResumeWithoutResumerIsError(t *testing.T) {
	o := New(&fakeRetriever{}, nil)
	env := o.GetContext(Input{Mode: ModeResume, SessionID: "s1"})
	if !env.Meta.IsError {
		t.Fatalf("expected error when no resumer is configured")
	}
	if !strings.HasPrefix(env.Summary, "Error: ") {
		t.Fatalf("expected Summary prefixed with 'Error: ', got %q", env.Summary)
	}
	if len(env.Hints) == 0 {
		t.Fatalf("expected a recovery hint")
	}
}

func TestGetContextRetrievalErrorDegradesToErrorEnvelope(t *testing.T) {
	o := New(&fakeRetriever{err: fmt.Errorf("backend unavailable")}, nil)
	env := o.GetContext(Input{Query: "q", Mode: ModeDeep})
	if !env.Meta.IsError {
		t.Fatalf("expected error envelope on retrieval failure")
	}
	if !strings.Contains(env.Summary, "backend unavailable") {
		t.Fatalf("expected underlying error message surfaced, got %q", env.Summary)
	}
	if len(env.Hints) == 0 {
		t.Fatalf("expected a recovery hint")
	}
}

func TestGetContextDeepModeUsesRerankFlagAndBudget(t *testing.T) {
	items := []Item{{ID: "m1", Content: strings.Repeat("x", 400)}}
	o := New(&fakeRetriever{deep: items}, nil)
	env := o.GetContext(Input{Query: "q", Mode: ModeDeep, Rerank: true})
	if env.Meta.IsError {
		t.Fatalf("unexpected error: %s", env.Summary)
	}
	if len(env.Data) != 1 {
		t.Fatalf("expected 1 item within budget, got %d", len(env.Data))
	}
}

func TestGetContextTruncatesToBudgetAndHints(t *testing.T) {
	items := []Item{
		{ID: "m1", Content: strings.Repeat("x", 3200)},
		{ID: "m2", Content: strings.Repeat("y", 3200)},
	}
	o := New(&fakeRetriever{quick: items}, nil)
	env := o.GetContext(Input{Query: "q", Mode: ModeQuick})
	if len(env.Data) != 1 {
		t.Fatalf("expected truncation to 1 item under the 800-token quick budget, got %d", len(env.Data))
	}
	found := false
	for _, h := range env.Hints {
		if strings.Contains(h, "truncated") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a truncation hint, got %v", env.Hints)
	}
}

func TestTruncateToBudgetNoBudgetReturnsAll(t *testing.T) {
	items := []Item{{ID: "m1", Content: strings.Repeat("x", 10000)}}
	out, truncated := truncateToBudget(items, 0)
	if truncated {
		t.Fatalf("expected no truncation when budget<=0")
	}
	if len(out) != 1 {
		t.Fatalf("expected all items returned, got %d", len(out))
	}
}

func TestTruncateToBudgetDropsOverflow(t *testing.T) {
	items := []Item{
		{ID: "m1", Content: strings.Repeat("x", 40)},
		{ID: "m2", Content: strings.Repeat("y", 40)},
	}
	out, truncated := truncateToBudget(items, 15)
	if !truncated {
		t.Fatalf("expected truncation")
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 item retained, got %d", len(out))
	}
}

func TestUnknownModeIsValidationError(t *testing.T) {
	o := New(&fakeRetriever{}, nil)
	env := o.GetContext(Input{Query: "q", Mode: Mode("bogus")})
	if !env.Meta.IsError {
		t.Fatalf("expected error for unknown mode")
	}
	if !strings.Contains(env.Hints[0], "L1:Orchestration") {
		t.Fatalf("expected L1:Orchestration hint, got %v", env.Hints)
	}
}
