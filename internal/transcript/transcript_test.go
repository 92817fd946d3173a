package transcript

import (
	"testing"
	"time"
)

func TestAggregatorFinalize(t *testing.T) {
	a := NewAggregator()
	fixed := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	if got := a.AppendUser("Hello"); got != "Hello" {
		t.Fatalf("pending user = %q", got)
	}
	if got := a.AppendUser(" world"); got != "Hello world" {
		t.Fatalf("pending user = %q", got)
	}
	if got := a.AppendModel("Hi there"); got != "Hi there" {
		t.Fatalf("pending model = %q", got)
	}

	turn := a.Finalize()
	if turn.User != "Hello world" || turn.Model != "Hi there" {
		t.Fatalf("unexpected turn: %+v", turn)
	}
	if !turn.Completed.Equal(fixed) {
		t.Fatalf("unexpected completion time %s", turn.Completed)
	}

	user, model := a.Pending()
	if user != "" || model != "" {
		t.Fatalf("buffers not reset: user=%q model=%q", user, model)
	}
}

func TestAggregatorTrimsWhitespace(t *testing.T) {
	a := NewAggregator()
	a.AppendUser("  spaced out ")
	a.AppendModel("\n reply\t")

	turn := a.Finalize()
	if turn.User != "spaced out" || turn.Model != "reply" {
		t.Fatalf("unexpected turn: %+v", turn)
	}
}

func TestAggregatorEmptyTurn(t *testing.T) {
	turn := NewAggregator().Finalize()
	if turn.User != "" || turn.Model != "" {
		t.Fatalf("expected empty turn, got %+v", turn)
	}
}

func TestHistoryTurnsIsCopy(t *testing.T) {
	var h History
	h.Append(Turn{User: "a", Model: "b"})

	turns := h.Turns()
	turns[0].User = "changed"

	if h.Turns()[0].User != "a" {
		t.Fatal("history was mutated through Turns()")
	}
	if h.Len() != 1 {
		t.Fatalf("expected 1 turn, got %d", h.Len())
	}
}

func TestFormat(t *testing.T) {
	got := Format([]Turn{{User: "hi", Model: "hello"}, {User: "bye", Model: "see you"}})
	want := "You: hi\nGemini: hello\n\nYou: bye\nGemini: see you\n"
	if got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}
