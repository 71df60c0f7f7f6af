package permissions

import "errors"

// ErrMicrophoneDenied is returned when the OS has not granted microphone
// access to the process.
var ErrMicrophoneDenied = errors.New("microphone permission not granted")

// Microphone authorization states, matching AVAuthorizationStatus.
const (
	PermissionNotDetermined = 0
	PermissionRestricted    = 1
	PermissionDenied        = 2
	PermissionAuthorized    = 3
)

func statusName(status int) string {
	switch status {
	case PermissionNotDetermined:
		return "not_determined"
	case PermissionRestricted:
		return "restricted"
	case PermissionDenied:
		return "denied"
	case PermissionAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}
