package calc

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDivide(t *testing.T) {
	v, err := Divide(10, 4, "seats")
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	_, err = Divide(1, 0, "seats")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDivisionByZero))
	assert.Contains(t, err.Error(), "seats is zero")
}

func TestFiniteAndNonNegative(t *testing.T) {
	assert.NoError(t, Finite("x", -3))
	assert.ErrorIs(t, Finite("x", math.NaN()), ErrInvalidInput)
	assert.ErrorIs(t, Finite("x", math.Inf(1)), ErrInvalidInput)

	assert.NoError(t, NonNegative("x", 0))
	assert.ErrorIs(t, NonNegative("x", -0.1), ErrInvalidInput)
}

func TestPercentAndHelpers(t *testing.T) {
	p, err := Percent(45, 60, "capacity")
	require.NoError(t, err)
	assert.InDelta(t, 75.0, p, 1e-9)

	assert.Equal(t, 1.24, Round2(1.2351))
	assert.Equal(t, 0.0, Clamp01(-2))
	assert.Equal(t, 1.0, Clamp01(7))
	assert.Equal(t, 0.4, Clamp01(0.4))
}

func TestOverflowingResults(t *testing.T) {
	_, err := Divide(math.MaxFloat64, 0.5, "seats")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Percent(math.MaxFloat64, 2, "capacity")
	assert.ErrorIs(t, err, ErrInvalidInput)

	big := 1e300
	assert.Equal(t, big, Round2(big))
	assert.False(t, math.IsInf(Round2(math.MaxFloat64), 0))
}

func TestOrderedFieldChecks(t *testing.T) {
	err := NonNegativeAll(
		Field{"first", -1},
		Field{"second", math.NaN()},
		Field{"third", -2},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")

	err = FiniteAll(Field{"a", 1}, Field{"b", math.Inf(-1)}, Field{"c", math.NaN()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b must be a finite number")

	assert.NoError(t, FiniteAll(Field{"a", -5}, Field{"b", 0}))
}
