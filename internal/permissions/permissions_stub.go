//go:build !darwin

package permissions

// CheckMicrophone reports Authorized; access is enforced by the audio stack.
func CheckMicrophone() Status {
	return Authorized
}

// RequestMicrophone is a no-op on non-macOS platforms.
func RequestMicrophone() {}

// Microphone is a no-op on non-macOS platforms.
func Microphone() error {
	return microphoneError(CheckMicrophone())
}

// Accessibility is a no-op on non-macOS platforms.
func Accessibility() error {
	return nil
}
