// Package playback chains irregularly arriving audio buffers into gapless
// output.
package playback

import (
	"time"

	"github.com/petems/live-tray/internal/pcm"
)

// Clock reports the current position of the output device.
type Clock interface {
	Now() time.Duration
}

// Sink plays a buffer starting at an output-clock time.
type Sink interface {
	Schedule(buf pcm.Buffer, at time.Duration)
}

// Scheduler places each enqueued buffer directly after the previous one, or
// at the current output time if the previous buffer has already finished.
// It is not safe for concurrent use; one goroutine owns a Scheduler.
type Scheduler struct {
	clock  Clock
	sink   Sink
	cursor time.Duration
}

func NewScheduler(clock Clock, sink Sink) *Scheduler {
	return &Scheduler{clock: clock, sink: sink}
}

// Enqueue schedules buf and returns the time it will start playing.
func (s *Scheduler) Enqueue(buf pcm.Buffer) time.Duration {
	start := s.cursor
	if now := s.clock.Now(); now > start {
		start = now
	}
	s.sink.Schedule(buf, start)
	s.cursor = start + buf.Duration()
	return start
}

// Cursor returns the scheduled end of the last enqueued buffer.
func (s *Scheduler) Cursor() time.Duration {
	return s.cursor
}
