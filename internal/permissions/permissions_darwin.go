//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework AVFoundation -framework Cocoa
#import <AVFoundation/AVFoundation.h>
#import <Cocoa/Cocoa.h>

int checkMicrophonePermission() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}

void requestMicrophonePermission() {
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {}];
}

int checkAccessibilityPermission() {
    NSDictionary *options = @{(__bridge id)kAXTrustedCheckOptionPrompt: @YES};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}
*/
import "C"

// CheckMicrophone returns the current microphone permission status
func CheckMicrophone() Status {
	return Status(C.checkMicrophonePermission())
}

// RequestMicrophone triggers the system microphone permission dialog
func RequestMicrophone() {
	C.requestMicrophonePermission()
}

// Microphone returns ErrMicrophoneDenied unless access is authorized.
// An undetermined status triggers the system prompt first.
func Microphone() error {
	status := CheckMicrophone()
	if status == NotDetermined {
		RequestMicrophone()
	}
	return microphoneError(status)
}

// Accessibility checks, and prompts for, accessibility permission (needed for hotkeys)
func Accessibility() error {
	if int(C.checkAccessibilityPermission()) == 1 {
		return nil
	}
	return ErrAccessibilityDenied
}
