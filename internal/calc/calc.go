// Package calc holds the error kinds and numeric guards shared by the
// calculation packages.
package calc

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInput reports a value outside the domain of a calculation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDivisionByZero reports a zero denominator.
	ErrDivisionByZero = errors.New("division by zero")
)

// Invalid wraps ErrInvalidInput with a field-specific message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Divide returns num/den, or ErrDivisionByZero naming the denominator.
func Divide(num, den float64, what string) (float64, error) {
	if den == 0 {
		return 0, fmt.Errorf("%w: %s is zero", ErrDivisionByZero, what)
	}
	r := num / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, Invalid("quotient over %s is out of range", what)
	}
	return r, nil
}

// Finite rejects NaN and infinities.
func Finite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Invalid("%s must be a finite number", name)
	}
	return nil
}

// NonNegative rejects non-finite and negative values.
func NonNegative(name string, v float64) error {
	if err := Finite(name, v); err != nil {
		return err
	}
	if v < 0 {
		return Invalid("%s must not be negative", name)
	}
	return nil
}

// Field is a named value for the ordered checks below.
type Field struct {
	Name  string
	Value float64
}

// FiniteAll runs Finite over fields in order and returns the first failure.
func FiniteAll(fields ...Field) error {
	for _, f := range fields {
		if err := Finite(f.Name, f.Value); err != nil {
			return err
		}
	}
	return nil
}

// NonNegativeAll runs NonNegative over fields in order and returns the
// first failure.
func NonNegativeAll(fields ...Field) error {
	for _, f := range fields {
		if err := NonNegative(f.Name, f.Value); err != nil {
			return err
		}
	}
	return nil
}

// Percent returns part/whole*100.
func Percent(part, whole float64, what string) (float64, error) {
	r, err := Divide(part, whole, what)
	if err != nil {
		return 0, err
	}
	pct := r * 100
	if math.IsInf(pct, 0) {
		return 0, Invalid("percentage over %s is out of range", what)
	}
	return pct, nil
}

// Round2 rounds to two decimals. Values too large to carry a fraction are
// returned unchanged.
func Round2(v float64) float64 {
	if math.Abs(v) >= 1<<52 {
		return v
	}
	return math.Round(v*100) / 100
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
