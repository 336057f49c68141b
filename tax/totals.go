package tax

import (
	"github.com/shopspring/decimal"

	"bitbucket.org/siddhisoft/distbooks_backend/models"
)

// DocumentTotals is the aggregated money summary posted to the ledger.
// RoundOff is the signed adjustment that brings NetAmount to a whole
// rupee; it is zero when rounding is off.
type DocumentTotals struct {
	Subtotal  decimal.Decimal
	TotalCGST decimal.Decimal
	TotalSGST decimal.Decimal
	TotalIGST decimal.Decimal
	RoundOff  decimal.Decimal
	NetAmount decimal.Decimal
}

// roundHalfAwayFromZero rounds to the nearest integer rupee, ties away
// from zero. decimal.Round already implements this convention.
func roundHalfAwayFromZero(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// AggregateTotals sums already-calculated lines into document totals.
// An empty document is rejected, never posted as a zero journal. When
// applyRoundOff is set, the gross total is rounded half-away-from-zero
// to the nearest rupee and the signed difference is reported so the
// caller can post it to the round-off account.
func AggregateTotals(lines []LineResult, applyRoundOff bool) (DocumentTotals, error) {
	if len(lines) == 0 {
		return DocumentTotals{}, models.ErrEmptyDocument
	}

	var t DocumentTotals
	t.Subtotal = decimal.Zero
	t.TotalCGST = decimal.Zero
	t.TotalSGST = decimal.Zero
	t.TotalIGST = decimal.Zero
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.TaxableAmount)
		t.TotalCGST = t.TotalCGST.Add(l.CGST)
		t.TotalSGST = t.TotalSGST.Add(l.SGST)
		t.TotalIGST = t.TotalIGST.Add(l.IGST)
	}

	gross := t.Subtotal.Add(t.TotalCGST).Add(t.TotalSGST).Add(t.TotalIGST)
	if applyRoundOff {
		rounded := roundHalfAwayFromZero(gross)
		t.RoundOff = rounded.Sub(gross)
		t.NetAmount = rounded
	} else {
		t.RoundOff = decimal.Zero
		t.NetAmount = gross
	}
	return t, nil
}

// CalculateDocument runs the per-line calculator over a whole document
// and aggregates. Any bad line fails the document; partial totals are
// never returned.
func CalculateDocument(lines []LineInput, interState bool, applyRoundOff bool) ([]LineResult, DocumentTotals, error) {
	if len(lines) == 0 {
		return nil, DocumentTotals{}, models.ErrEmptyDocument
	}
	results := make([]LineResult, 0, len(lines))
	for _, in := range lines {
		res, err := CalculateLine(in, interState)
		if err != nil {
			return nil, DocumentTotals{}, err
		}
		results = append(results, res)
	}
	totals, err := AggregateTotals(results, applyRoundOff)
	if err != nil {
		return nil, DocumentTotals{}, err
	}
	return results, totals, nil
}
