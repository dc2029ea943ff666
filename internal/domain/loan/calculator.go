package loan

import (
	"fmt"
	"math"

	"microloan-engine/internal/pkg/apperrors"
)

// Installment computes the fixed monthly payment for an amortized loan:
//
//	EMI = P * r * (1+r)^n / ((1+r)^n - 1)
//
// where r is the monthly fractional rate (annual/12/100) and n the term in
// months. A zero rate degenerates to simple division. Values are full
// float64 precision; rounding to currency is a display concern.
func Installment(principal Money, annualInterestRate Money, termMonths int) (Money, error) {
	if principal <= 0 || termMonths <= 0 || annualInterestRate < 0 {
		return 0, fmt.Errorf("%w: invalid parameters for installment calculation", apperrors.ErrInvalidArgument)
	}

	monthlyRate := annualInterestRate / 12.0 / 100.0
	if monthlyRate == 0 {
		return principal / float64(termMonths), nil
	}

	growth := math.Pow(1+monthlyRate, float64(termMonths))
	return principal * monthlyRate * growth / (growth - 1), nil
}

// TotalInterest is the interest paid over the full term: EMI*n - P.
func TotalInterest(installment Money, termMonths int, principal Money) Money {
	return installment*float64(termMonths) - principal
}

// TotalPayable is the gross repayment over the full term: EMI*n.
func TotalPayable(installment Money, termMonths int) Money {
	return installment * float64(termMonths)
}
