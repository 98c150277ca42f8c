package device

import (
	"fmt"

	"github.com/google/uuid"
)

// Validation limits.
const (
	// maxNameLength bounds display names.
	maxNameLength = 255

	// maxLastWillBytes bounds last-will payloads (64 KiB). Payloads are
	// opaque to the core but travel over MQTT on delivery, so they are
	// capped well below broker limits.
	maxLastWillBytes = 64 << 10

	// maxTTLSeconds is ten years; anything longer is almost certainly a
	// unit mistake by the caller.
	maxTTLSeconds = int64(10 * 365 * 24 * 60 * 60)
)

// ValidateRegistration checks a registration request before it becomes a
// command. Malformed identifiers are a transport concern, so the API layer
// calls this and maps failures to 400 responses; the domain handlers assume
// commands arrive well-formed.
func ValidateRegistration(id, name, lastWill string, ttl int64) error {
	if err := ValidateUUID(id); err != nil {
		return err
	}
	if name == "" || len(name) > maxNameLength {
		return fmt.Errorf("%w: must be 1-%d characters", ErrInvalidName, maxNameLength)
	}
	if len(lastWill) > maxLastWillBytes {
		return fmt.Errorf("%w: payload exceeds %d bytes", ErrInvalidLastWill, maxLastWillBytes)
	}
	if ttl <= 0 || ttl > maxTTLSeconds {
		return fmt.Errorf("%w: must be 1-%d seconds", ErrInvalidTTL, maxTTLSeconds)
	}
	return nil
}

// ValidateUUID checks that an identifier parses as a UUID.
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidUUID, id)
	}
	return nil
}
