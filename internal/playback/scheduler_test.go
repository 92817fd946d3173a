package playback

import (
	"testing"
	"time"

	"github.com/petems/live-tray/internal/pcm"
)

type fakeClock struct {
	now time.Duration
}

func (c *fakeClock) Now() time.Duration { return c.now }

type scheduled struct {
	at     time.Duration
	frames int
}

type recordingSink struct {
	calls []scheduled
}

func (s *recordingSink) Schedule(buf pcm.Buffer, at time.Duration) {
	s.calls = append(s.calls, scheduled{at: at, frames: buf.Frames()})
}

func bufferOf(d time.Duration) pcm.Buffer {
	frames := pcm.DurationToFrames(d, pcm.OutputSampleRate)
	return pcm.Buffer{
		SampleRate: pcm.OutputSampleRate,
		Channels:   [][]float32{make([]float32, frames)},
	}
}

func TestSchedulerChainsOverlappingArrivals(t *testing.T) {
	clock := &fakeClock{}
	sink := &recordingSink{}
	s := NewScheduler(clock, sink)

	if got := s.Enqueue(bufferOf(time.Second)); got != 0 {
		t.Fatalf("first buffer should start at 0, got %s", got)
	}

	clock.now = 300 * time.Millisecond
	if got := s.Enqueue(bufferOf(500 * time.Millisecond)); got != time.Second {
		t.Fatalf("second buffer should start at 1s, got %s", got)
	}

	if s.Cursor() != 1500*time.Millisecond {
		t.Fatalf("cursor should be 1.5s, got %s", s.Cursor())
	}
	if len(sink.calls) != 2 || sink.calls[1].at != time.Second {
		t.Fatalf("unexpected sink calls: %+v", sink.calls)
	}
}

func TestSchedulerLateArrivalStartsAtClock(t *testing.T) {
	clock := &fakeClock{}
	s := NewScheduler(clock, &recordingSink{})

	s.Enqueue(bufferOf(200 * time.Millisecond))

	clock.now = 2 * time.Second
	if got := s.Enqueue(bufferOf(100 * time.Millisecond)); got != 2*time.Second {
		t.Fatalf("late buffer should start at the clock, got %s", got)
	}
	if s.Cursor() != 2100*time.Millisecond {
		t.Fatalf("cursor should be 2.1s, got %s", s.Cursor())
	}
}

func TestSchedulerCursorNeverDecreases(t *testing.T) {
	clock := &fakeClock{}
	s := NewScheduler(clock, &recordingSink{})

	var last time.Duration
	steps := []time.Duration{0, 50 * time.Millisecond, 10 * time.Millisecond, 3 * time.Second, 3 * time.Second}
	for i, now := range steps {
		clock.now = now
		start := s.Enqueue(bufferOf(40 * time.Millisecond))
		if start < now {
			t.Fatalf("step %d scheduled at %s before clock %s", i, start, now)
		}
		if s.Cursor() < last {
			t.Fatalf("step %d cursor went backwards: %s < %s", i, s.Cursor(), last)
		}
		last = s.Cursor()
	}
}
