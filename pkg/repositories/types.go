package repositories

// ErrNotFound is returned when no record exists for the requested player.
type ErrNotFound struct{}

func (e *ErrNotFound) Error() string {
	return "player record not found"
}
