package audio

import (
	"sync"
	"time"

	"github.com/petems/live-tray/internal/pcm"
)

type segment struct {
	start   int64
	samples []float32
}

// timeline holds scheduled mono segments and renders them in frame order.
// The frame counter advanced by render is the output clock.
type timeline struct {
	mu   sync.Mutex
	rate int
	pos  int64
	segs []segment
}

func newTimeline(sampleRate int) *timeline {
	return &timeline{rate: sampleRate}
}

func (t *timeline) now() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return pcm.FramesToDuration(t.pos, t.rate)
}

func (t *timeline) schedule(samples []float32, at time.Duration) {
	if len(samples) == 0 {
		return
	}
	start := pcm.DurationToFrames(at, t.rate)

	t.mu.Lock()
	defer t.mu.Unlock()
	if start < t.pos {
		start = t.pos
	}
	seg := segment{start: start, samples: samples}
	i := len(t.segs)
	for i > 0 && t.segs[i-1].start > start {
		i--
	}
	t.segs = append(t.segs, segment{})
	copy(t.segs[i+1:], t.segs[i:])
	t.segs[i] = seg
}

// render fills out with the next len(out) frames and advances the clock.
// Frames with nothing scheduled are silent.
func (t *timeline) render(out []float32) {
	for i := range out {
		out[i] = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	from := t.pos
	to := from + int64(len(out))
	kept := t.segs[:0]
	for _, s := range t.segs {
		end := s.start + int64(len(s.samples))
		if s.start < to && end > from {
			lo, hi := max(s.start, from), min(end, to)
			for f := lo; f < hi; f++ {
				out[f-from] += s.samples[f-s.start]
			}
		}
		if end > to {
			kept = append(kept, s)
		}
	}
	clear(t.segs[len(kept):])
	t.segs = kept
	t.pos = to
}
