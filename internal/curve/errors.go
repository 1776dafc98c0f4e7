package curve

import "errors"

var (
	// ErrInvalidCurve is returned for malformed curve definitions.
	ErrInvalidCurve = errors.New("invalid curve")
	// ErrInvalidCurveContinuity is returned when a replacement curve moves the
	// spot price at the current supply by more than the tolerance.
	ErrInvalidCurveContinuity = errors.New("invalid curve continuity")
	// ErrInvalidRange is returned by Cost when from > to.
	ErrInvalidRange = errors.New("invalid supply range")
)
