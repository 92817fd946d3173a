package live

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/petems/live-tray/internal/pcm"
	"github.com/rs/zerolog"
)

// Sender accepts encoded outbound audio.
type Sender interface {
	Send(blob pcm.Blob) error
}

// Pump turns capture chunks of any size into fixed-size encoded segments
// and hands them to a Sender without ever blocking the capture side.
// When the outbound queue is full the oldest segment is dropped.
type Pump struct {
	sender     Sender
	log        zerolog.Logger
	sampleRate int
	chunkSize  int

	pending []float32
	queue   chan pcm.Blob

	stopOnce sync.Once
	stop     chan struct{}

	sent    atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewPump creates a pump emitting chunkSize-sample segments at sampleRate.
// queueLen bounds the number of encoded segments waiting to be sent.
func NewPump(sender Sender, sampleRate, chunkSize, queueLen int, log zerolog.Logger) *Pump {
	if queueLen < 1 {
		queueLen = 1
	}
	return &Pump{
		sender:     sender,
		log:        log,
		sampleRate: sampleRate,
		chunkSize:  chunkSize,
		pending:    make([]float32, 0, chunkSize),
		queue:      make(chan pcm.Blob, queueLen),
		stop:       make(chan struct{}),
	}
}

// Run consumes in until ctx is done, Stop is called, or in is closed.
// A partial trailing chunk is discarded.
func (p *Pump) Run(ctx context.Context, in <-chan []float32) error {
	sendCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.sendLoop(sendCtx)
	}()

	p.produce(ctx, in)

	cancel()
	wg.Wait()
	return nil
}

func (p *Pump) produce(ctx context.Context, in <-chan []float32) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case samples, ok := <-in:
			if !ok {
				return
			}
			p.push(samples)
		}
	}
}

// push appends samples and enqueues every complete chunk.
func (p *Pump) push(samples []float32) {
	for len(samples) > 0 {
		n := min(p.chunkSize-len(p.pending), len(samples))
		p.pending = append(p.pending, samples[:n]...)
		samples = samples[n:]

		if len(p.pending) == p.chunkSize {
			p.enqueue(pcm.EncodeOutbound(p.pending, p.sampleRate))
			p.pending = p.pending[:0]
		}
	}
}

func (p *Pump) enqueue(blob pcm.Blob) {
	for {
		select {
		case p.queue <- blob:
			return
		default:
		}
		select {
		case <-p.queue:
			p.dropped.Add(1)
		default:
		}
	}
}

func (p *Pump) sendLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case blob := <-p.queue:
			if err := p.sender.Send(blob); err != nil {
				// The receive side owns failure detection.
				if p.failed.Add(1) == 1 {
					p.log.Warn().Err(err).Msg("Failed to send audio")
				}
				continue
			}
			p.sent.Add(1)
		}
	}
}

// Stop detaches the pump from its input. Safe to call more than once.
func (p *Pump) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Stats reports segments sent, dropped on overflow, and failed to send.
func (p *Pump) Stats() (sent, dropped, failed int64) {
	return p.sent.Load(), p.dropped.Load(), p.failed.Load()
}
