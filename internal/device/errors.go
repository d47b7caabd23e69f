package device

import "errors"

// Domain errors for the device package.
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when an identifier is not registered.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidDevice is returned when a registration lacks its keys.
	ErrInvalidDevice = errors.New("device: invalid")
)
