package artifact

import "fmt"

var (
	// ErrNotFound is returned when no artifact exists for the given space /
	// id pair.
	ErrNotFound = fmt.Errorf("artifact not found")
)
