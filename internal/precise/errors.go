// internal/precise/errors.go
package precise

import "errors"

// Arithmetic failures. Every checked operation in this package returns one of
// these (possibly wrapped) instead of wrapping around or panicking.
var (
	ErrOverflow      = errors.New("arithmetic overflow")
	ErrUnderflow     = errors.New("arithmetic underflow")
	ErrDivideByZero  = errors.New("division by zero")
	ErrInvalidSqrt   = errors.New("square root of negative value")
	ErrNoConvergence = errors.New("root approximation did not converge")
	ErrNegative      = errors.New("negative value cannot be coerced to unsigned")
	ErrConversion    = errors.New("value does not fit in target integer width")
	ErrInvalidRoot   = errors.New("root degree must be positive")
)

// IsArithmetic reports whether err originates from a precise arithmetic failure.
func IsArithmetic(err error) bool {
	for _, target := range []error{
		ErrOverflow, ErrUnderflow, ErrDivideByZero, ErrInvalidSqrt,
		ErrNoConvergence, ErrNegative, ErrConversion, ErrInvalidRoot,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
