package factor

import (
	"errors"
	"fmt"
)

var (
	// ErrSecurityNotFound is returned by Factor for securities outside the
	// configured universe.
	ErrSecurityNotFound = errors.New("security not in configured universe")

	// ErrDateNotFound is returned by Cross for dates outside the reference axis.
	ErrDateNotFound = errors.New("date not on reference axis")
)

// ShapeError reports a synthesis strategy whose output does not match the
// configured universe. It is fatal: the engine instance stays failed and
// every later accessor returns the same error.
type ShapeError struct {
	Strategy string
	Want     int
	Got      int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("strategy %s produced %d composite series for a %d-security universe",
		e.Strategy, e.Got, e.Want)
}
