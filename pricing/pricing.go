// Package pricing computes order totals from captured line prices and a
// restaurant fee schedule. Everything here is pure and deterministic.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the precision every monetary result is rounded to
const CurrencyPlaces = 2

// MaxAmount is the largest amount an order or payment may carry. It fits the
// numeric(10,2) columns and the card gateway's per-charge limit.
var MaxAmount = decimal.RequireFromString("999999.99")

// MaxQuantity bounds a single cart line
const MaxQuantity = 1000

// ErrAmountOutOfRange is returned for totals or charges above MaxAmount
var ErrAmountOutOfRange = errors.New("amount exceeds the maximum of " + MaxAmount.StringFixed(CurrencyPlaces))

// TaxRate is the flat tax applied to the subtotal
var TaxRate = decimal.RequireFromString("0.10")

// Line is one priced cart line
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// FeeSchedule is the restaurant configuration consulted at checkout
type FeeSchedule struct {
	DeliveryFee  decimal.Decimal
	MinimumOrder decimal.Decimal
}

// Breakdown holds the frozen monetary fields of an order
type Breakdown struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
}

// BelowMinimumError is returned when the subtotal does not reach the
// restaurant's minimum order.
type BelowMinimumError struct {
	Minimum  decimal.Decimal
	Subtotal decimal.Decimal
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("Minimum order is %s", e.Minimum.StringFixed(CurrencyPlaces))
}

// Quote prices the lines against the fee schedule.
func Quote(lines []Line, fees FeeSchedule) (Breakdown, error) {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	subtotal = subtotal.Round(CurrencyPlaces)

	if subtotal.LessThan(fees.MinimumOrder) {
		return Breakdown{}, &BelowMinimumError{Minimum: fees.MinimumOrder, Subtotal: subtotal}
	}

	deliveryFee := fees.DeliveryFee.Round(CurrencyPlaces)
	tax := subtotal.Mul(TaxRate).Round(CurrencyPlaces)

	total := subtotal.Add(deliveryFee).Add(tax)
	if total.GreaterThan(MaxAmount) {
		return Breakdown{}, ErrAmountOutOfRange
	}

	return Breakdown{
		Subtotal:    subtotal,
		DeliveryFee: deliveryFee,
		Tax:         tax,
		Total:       total,
	}, nil
}

// IsCurrencyPrecise reports whether amount has no more than CurrencyPlaces decimals
func IsCurrencyPrecise(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(CurrencyPlaces))
}

// ToMinorUnits converts a major-unit amount to the nearest integer minor unit
// (cents). Amounts above MaxAmount are rejected rather than truncated.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if amount.Round(CurrencyPlaces).GreaterThan(MaxAmount) {
		return 0, ErrAmountOutOfRange
	}
	return amount.Shift(CurrencyPlaces).Round(0).IntPart(), nil
}
