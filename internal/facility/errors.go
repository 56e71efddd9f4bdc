package facility

import "errors"

var (
	ErrCapacityExceeded = errors.New("facility capacity exceeded")

	// ErrAlreadyReleased is returned by Release for a booking this pool no
	// longer holds, either because it was released before or never existed.
	ErrAlreadyReleased = errors.New("booking already released")

	ErrInvalidRange = errors.New("end must be after start")

	ErrInvalidCapacity = errors.New("facility capacity must be positive")

	ErrInvalidName = errors.New("invalid facility name")
)
