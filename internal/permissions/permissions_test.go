package permissions

import (
	"errors"
	"testing"
)

func TestMicrophoneError(t *testing.T) {
	tests := []struct {
		status Status
		denied bool
	}{
		{NotDetermined, true},
		{Restricted, true},
		{Denied, true},
		{Authorized, false},
	}

	for _, tt := range tests {
		err := microphoneError(tt.status)
		if got := errors.Is(err, ErrMicrophoneDenied); got != tt.denied {
			t.Errorf("%s: denied = %v, want %v", tt.status, got, tt.denied)
		}
	}
}

func TestStatusString(t *testing.T) {
	if Authorized.String() != "authorized" {
		t.Errorf("unexpected %q", Authorized.String())
	}
	if Status(42).String() != "unknown" {
		t.Errorf("unexpected %q", Status(42).String())
	}
}
