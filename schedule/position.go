package schedule

import (
	"errors"
	"math"
)

// Epsilon is the distance from a quantized position which is still treated
// as being on it.
const Epsilon = 0.000001

// ErrZeroDenominator is returned when quantization has zero denominator.
var ErrZeroDenominator = errors.New("denominator must be greater than zero")

// QuantizedPosition is a number of equally sized intervals from timeline
// zero. Denominator divides the bar, e.g. 16 is a sixteenth note and 1 is a
// whole bar.
type QuantizedPosition struct {
	Position    int64
	Denominator uint32
}

// NewQuantizedPosition returns validated position.
func NewQuantizedPosition(position int64, denominator uint32) (QuantizedPosition, error) {
	if denominator == 0 {
		return QuantizedPosition{}, ErrZeroDenominator
	}
	return QuantizedPosition{Position: position, Denominator: denominator}, nil
}

// Bar returns position of a bar.
func Bar(position int64) QuantizedPosition {
	return QuantizedPosition{Position: position, Denominator: 1}
}

// Bars returns position in bars.
func (q QuantizedPosition) Bars() float64 {
	return float64(q.Position) / float64(q.Denominator)
}

// EvenQuantization is a grid of Numerator/Denominator bars.
type EvenQuantization struct {
	Numerator   uint32
	Denominator uint32
}

// OneBar quantizes to the start of bars.
var OneBar = EvenQuantization{Numerator: 1, Denominator: 1}

// NewEvenQuantization returns validated quantization.
func NewEvenQuantization(numerator, denominator uint32) (EvenQuantization, error) {
	if denominator == 0 {
		return EvenQuantization{}, ErrZeroDenominator
	}
	return EvenQuantization{Numerator: numerator, Denominator: denominator}, nil
}

// NextQuantizedPosSloppy returns current position if within is closer than
// Epsilon to it, otherwise the position numerator intervals later.
func NextQuantizedPosSloppy(current int64, within float64, numerator uint32) int64 {
	if within < Epsilon {
		return current
	}
	return current + int64(numerator)
}

// QuantizeAccuratePos returns the next quantized position after accurate
// position, expressed in units of quantization denominator.
func QuantizeAccuratePos(accurate float64, q EvenQuantization) QuantizedPosition {
	current := math.Floor(accurate)
	next := NextQuantizedPosSloppy(int64(current), accurate-current, q.Numerator)
	return QuantizedPosition{Position: next, Denominator: q.Denominator}
}
