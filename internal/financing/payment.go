package financing

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned for loan parameters the amortization formula cannot accept
var ErrInvalidInput = errors.New("invalid loan parameters")

// MonthlyPayment returns the fixed payment that amortizes principal over termMonths
// at annualRatePercent (e.g. 5.5 for 5.5% APR).
//
// A zero rate is special-cased to principal/termMonths so the general formula never
// divides by (1+r)^n - 1 == 0.
func MonthlyPayment(principal, annualRatePercent float64, termMonths int) (float64, error) {
	if termMonths <= 0 {
		return 0, fmt.Errorf("%w: term must be positive, got %d months", ErrInvalidInput, termMonths)
	}
	if !isFinite(principal) || principal < 0 {
		return 0, fmt.Errorf("%w: principal must be a non-negative number, got %v", ErrInvalidInput, principal)
	}
	if !isFinite(annualRatePercent) || annualRatePercent < 0 {
		return 0, fmt.Errorf("%w: rate must be a non-negative number, got %v", ErrInvalidInput, annualRatePercent)
	}

	if principal == 0 {
		return 0, nil
	}
	if annualRatePercent == 0 {
		return principal / float64(termMonths), nil
	}

	r := annualRatePercent / 100 / 12
	growth := math.Pow(1+r, float64(termMonths))
	return principal * r * growth / (growth - 1), nil
}

// BasePrice estimates a vehicle price from a monthly payment over the standard 60-month term
func BasePrice(monthlyPayment float64) float64 {
	return monthlyPayment * 60
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
