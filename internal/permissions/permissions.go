package permissions

import "errors"

var (
	// ErrMicrophoneDenied means the user or a policy refused microphone access.
	ErrMicrophoneDenied = errors.New("microphone permission not granted")
	// ErrAccessibilityDenied means global hotkeys cannot be registered.
	ErrAccessibilityDenied = errors.New("accessibility permission not granted")
)

// Status mirrors the platform authorization states.
type Status int

const (
	NotDetermined Status = iota
	Restricted
	Denied
	Authorized
)

func (s Status) String() string {
	switch s {
	case NotDetermined:
		return "not-determined"
	case Restricted:
		return "restricted"
	case Denied:
		return "denied"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// microphoneError maps a status to the error returned by Microphone.
func microphoneError(s Status) error {
	if s == Authorized {
		return nil
	}
	return ErrMicrophoneDenied
}
