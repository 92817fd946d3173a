package live

import (
	"errors"

	"github.com/petems/live-tray/internal/transcript"
)

// State is the lifecycle position of a Controller.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Closed
	Errored
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

var (
	// ErrSessionActive is returned by Start while a session is open or opening.
	ErrSessionActive = errors.New("live session already active")
	// ErrTransportOpenFailed wraps dial failures.
	ErrTransportOpenFailed = errors.New("failed to open live session")
	// ErrTransport wraps failures of an established session.
	ErrTransport = errors.New("live session transport error")
	// ErrStopped is returned by Start when Stop interrupts the connection attempt.
	ErrStopped = errors.New("live session stopped while connecting")
)

// Observer receives session notifications. Calls arrive outside the
// controller's lock in dispatch order. Implementations must not call
// Controller.Stop synchronously.
type Observer interface {
	OnStateChange(State)
	OnUserText(pending string)
	OnModelText(pending string)
	OnTurn(transcript.Turn)
	OnError(error)
	OnClosed()
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) OnStateChange(State) {}
func (NopObserver) OnUserText(string) {}
func (NopObserver) OnModelText(string) {}
func (NopObserver) OnTurn(transcript.Turn) {}
func (NopObserver) OnError(error) {}
func (NopObserver) OnClosed() {}
