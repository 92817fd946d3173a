// Package transcript accumulates streamed transcription fragments into
// conversation turns.
package transcript

import (
	"fmt"
	"strings"
	"time"
)

// Turn is one finalized user/model exchange.
type Turn struct {
	User      string    `json:"user"`
	Model     string    `json:"model"`
	Completed time.Time `json:"completed"`
}

// Aggregator collects pending user and model text until a turn completes.
type Aggregator struct {
	user  strings.Builder
	model strings.Builder
	now   func() time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{now: time.Now}
}

// AppendUser adds a user fragment and returns the pending user text.
func (a *Aggregator) AppendUser(fragment string) string {
	a.user.WriteString(fragment)
	return a.user.String()
}

// AppendModel adds a model fragment and returns the pending model text.
func (a *Aggregator) AppendModel(fragment string) string {
	a.model.WriteString(fragment)
	return a.model.String()
}

// Pending returns the untrimmed text accumulated so far.
func (a *Aggregator) Pending() (user, model string) {
	return a.user.String(), a.model.String()
}

// Finalize returns the trimmed turn and clears both buffers.
func (a *Aggregator) Finalize() Turn {
	turn := Turn{
		User:      strings.TrimSpace(a.user.String()),
		Model:     strings.TrimSpace(a.model.String()),
		Completed: a.now(),
	}
	a.user.Reset()
	a.model.Reset()
	return turn
}

// History is the ordered list of turns for one session.
type History struct {
	turns []Turn
}

func (h *History) Append(t Turn) {
	h.turns = append(h.turns, t)
}

func (h *History) Len() int {
	return len(h.turns)
}

// Turns returns a copy of the recorded turns.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Format renders turns as plain text, one speaker per line.
func Format(turns []Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "You: %s\nGemini: %s\n", t.User, t.Model)
	}
	return b.String()
}
