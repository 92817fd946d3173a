package audio

import (
	"testing"
	"time"
)

func TestTimelineRendersBackToBack(t *testing.T) {
	tl := newTimeline(1000) // 1 frame per millisecond

	tl.schedule([]float32{1, 2, 3}, 0)
	tl.schedule([]float32{4, 5}, 3*time.Millisecond)

	out := make([]float32, 4)
	tl.render(out)
	want := []float32{1, 2, 3, 4}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("frame %d: got %f want %f", i, out[i], want[i])
		}
	}
	if tl.now() != 4*time.Millisecond {
		t.Fatalf("clock should be 4ms, got %s", tl.now())
	}

	tl.render(out)
	want = []float32{5, 0, 0, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("frame %d: got %f want %f", i, out[i], want[i])
		}
	}
	if tl.buffered() != 0 {
		t.Fatalf("expected nothing buffered, got %d", tl.buffered())
	}
}

func TestTimelineSilenceBeforeScheduledStart(t *testing.T) {
	tl := newTimeline(1000)
	tl.schedule([]float32{7, 8}, 2*time.Millisecond)

	out := make([]float32, 4)
	tl.render(out)
	want := []float32{0, 0, 7, 8}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("frame %d: got %f want %f", i, out[i], want[i])
		}
	}
}

func TestTimelinePastScheduleClampsToClock(t *testing.T) {
	tl := newTimeline(1000)
	tl.render(make([]float32, 5))

	tl.schedule([]float32{9}, time.Millisecond)
	if tl.buffered() != 1 {
		t.Fatalf("expected 1 buffered frame, got %d", tl.buffered())
	}

	out := make([]float32, 1)
	tl.render(out)
	if out[0] != 9 {
		t.Fatalf("late segment should play immediately, got %f", out[0])
	}
}

func TestTimelineOutOfOrderSchedule(t *testing.T) {
	tl := newTimeline(1000)
	tl.schedule([]float32{3}, 2*time.Millisecond)
	tl.schedule([]float32{1}, 0)

	out := make([]float32, 3)
	tl.render(out)
	if out[0] != 1 || out[1] != 0 || out[2] != 3 {
		t.Fatalf("unexpected output %v", out)
	}
}

// buffered returns the number of scheduled frames not yet rendered.
func (t *timeline) buffered() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int64
	for _, s := range t.segs {
		end := s.start + int64(len(s.samples))
		if end > t.pos {
			n += end - max(s.start, t.pos)
		}
	}
	return n
}
