package grid

import (
	"errors"
	"fmt"
)

// Grid errors.
var (
	ErrBoundary          = errors.New("cell is outside the grid")
	ErrOccupied          = errors.New("cell is already reserved")
	ErrNoGrid            = errors.New("reservation is not attached to a grid")
	ErrInvalidDimensions = errors.New("grid dimensions must be positive")
)

// OccupiedError is returned by TryClaim when the target slot already holds a reservation.
type OccupiedError struct {
	Existing *Reservation // Reservation currently holding the slot.
}

func (e *OccupiedError) Error() string {
	return fmt.Sprintf("%s: %s held by %s", ErrOccupied, e.Existing.Position, e.Existing.ID)
}

// Unwrap lets errors.Is match ErrOccupied.
func (e *OccupiedError) Unwrap() error {
	return ErrOccupied
}
