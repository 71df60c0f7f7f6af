//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework AVFoundation
#import <AVFoundation/AVFoundation.h>

int checkMicrophonePermission() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}

void requestMicrophonePermission() {
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {}];
}
*/
import "C"

import "github.com/rs/zerolog"

// CheckMicrophone returns the current microphone permission status
func CheckMicrophone() int {
	return int(C.checkMicrophonePermission())
}

// RequestMicrophone triggers the system microphone permission dialog
func RequestMicrophone() {
	C.requestMicrophonePermission()
}

// EnsureMicrophone fails unless capture is authorized, prompting the user
// the first time.
func EnsureMicrophone(log zerolog.Logger) error {
	status := CheckMicrophone()
	if status == PermissionAuthorized {
		return nil
	}

	log.Warn().Str("status", statusName(status)).Msg("Microphone permission required")
	if status == PermissionNotDetermined {
		RequestMicrophone()
	} else {
		log.Warn().Msg("Grant access in System Settings → Privacy & Security → Microphone")
	}
	return ErrMicrophoneDenied
}
