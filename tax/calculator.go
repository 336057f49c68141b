package tax

import (
	"github.com/shopspring/decimal"

	"bitbucket.org/siddhisoft/distbooks_backend/models"
)

var (
	hundred    = decimal.NewFromInt(100)
	twoHundred = decimal.NewFromInt(200)
)

// LineInput carries the raw commercial figures of one document line.
// Percentages outside [0, 100] are clamped rather than rejected.
type LineInput struct {
	Qty             decimal.Decimal
	Rate            decimal.Decimal
	DiscountPercent decimal.Decimal
	GstPercent      decimal.Decimal
}

// LineResult is the fully derived money breakup of one line. All
// figures are kept at full decimal precision; rounding happens once,
// at the document level.
type LineResult struct {
	Amount         decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	CGST           decimal.Decimal
	SGST           decimal.Decimal
	IGST           decimal.Decimal
	LineTotal      decimal.Decimal
}

func clampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// CalculateLine derives one line's taxable value and GST split.
// Discount applies before tax. Intra-state splits the GST rate into
// equal CGST and SGST halves; inter-state charges the full rate as
// IGST. The place-of-supply decision is made once per document, so
// interState is an input here, never re-derived per line.
func CalculateLine(in LineInput, interState bool) (LineResult, error) {
	if !in.Qty.IsPositive() {
		return LineResult{}, models.ErrInvalidLine
	}
	if in.Rate.IsNegative() {
		return LineResult{}, models.ErrInvalidLine
	}

	discountPct := clampPercent(in.DiscountPercent)
	gstPct := clampPercent(in.GstPercent)

	amount := in.Qty.Mul(in.Rate)
	discount := amount.Mul(discountPct).Div(hundred)
	taxable := amount.Sub(discount)

	var res LineResult
	res.Amount = amount
	res.DiscountAmount = discount
	res.TaxableAmount = taxable

	if interState {
		res.IGST = taxable.Mul(gstPct).Div(hundred)
	} else {
		half := taxable.Mul(gstPct).Div(twoHundred)
		res.CGST = half
		res.SGST = half
	}
	res.LineTotal = taxable.Add(res.CGST).Add(res.SGST).Add(res.IGST)
	return res, nil
}
