package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device UUID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when adding a device with a UUID that
	// already exists.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidUUID is returned when an identifier is not a valid UUID.
	ErrInvalidUUID = errors.New("device: invalid uuid")

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrInvalidTTL is returned when a TTL is zero, negative, or too large.
	ErrInvalidTTL = errors.New("device: invalid ttl")

	// ErrInvalidLastWill is returned when a last-will payload exceeds the
	// size limit.
	ErrInvalidLastWill = errors.New("device: invalid last will")
)
