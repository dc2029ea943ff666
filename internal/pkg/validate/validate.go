// Package validate holds the underwriting rules shared by the loan and
// borrower services and by request DTO validation.
package validate

import "regexp"

const (
	MinLoanAmount = 1.0
	MaxLoanAmount = 100_000.0

	MinInterestRate = 0.0
	MaxInterestRate = 100.0
)

var (
	phoneSeparators = regexp.MustCompile(`[\s\-().]`)
	phoneDigits     = regexp.MustCompile(`^\d{10,15}$`)
)

// LoanAmount reports whether amount is inside the allowed principal range,
// bounds inclusive.
func LoanAmount(amount float64) bool {
	return amount >= MinLoanAmount && amount <= MaxLoanAmount
}

// InterestRate reports whether rate is a valid annual percentage (0-100).
func InterestRate(rate float64) bool {
	return rate >= MinInterestRate && rate <= MaxInterestRate
}

// Income reports whether income is positive.
func Income(income float64) bool {
	return income > 0
}

// PhoneNumber strips common separators and requires 10-15 decimal digits.
// Blank input is invalid.
func PhoneNumber(phone string) bool {
	cleaned := phoneSeparators.ReplaceAllString(phone, "")
	return phoneDigits.MatchString(cleaned)
}
