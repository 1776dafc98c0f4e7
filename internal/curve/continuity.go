package curve

import (
	"fmt"

	"github.com/rovshanmuradov/curvebond/internal/precise"
)

// CheckContinuity verifies that replacing old with next keeps the spot price at
// supply within tolerance. Outstanding holders must not be repriced instantly.
func CheckContinuity(old, next Definition, supply, tolerance precise.Number) error {
	before, err := old.Price(supply)
	if err != nil {
		return fmt.Errorf("current curve price: %w", err)
	}
	after, err := next.Price(supply)
	if err != nil {
		return fmt.Errorf("new curve price: %w", err)
	}
	jump, err := precise.Positive(after).CheckedSub(precise.Positive(before))
	if err != nil {
		return fmt.Errorf("price jump: %w", err)
	}
	if jump.Abs().Gt(tolerance) {
		return fmt.Errorf("%w: price at supply %s moves by %s (tolerance %s)",
			ErrInvalidCurveContinuity, supply, jump, tolerance)
	}
	return nil
}
