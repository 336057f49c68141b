package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitbucket.org/siddhisoft/distbooks_backend/config"
	"bitbucket.org/siddhisoft/distbooks_backend/models"
	"bitbucket.org/siddhisoft/distbooks_backend/tax"
	"bitbucket.org/siddhisoft/distbooks_backend/utils"
)

const submitHandlerName = "SubmitVoucher"

// LineRequest is one incoming document line. GstPercent may be omitted
// to fall back to the item's rate, then the HSN default; a rate on the
// line always wins.
type LineRequest struct {
	ItemId          int              `json:"item_id"`
	ItemName        string           `json:"item_name"`
	HSNCode         string           `json:"hsn_code"`
	Qty             decimal.Decimal  `json:"qty" binding:"required"`
	Unit            string           `json:"unit"`
	Rate            decimal.Decimal  `json:"rate"`
	DiscountPercent decimal.Decimal  `json:"discount_percent"`
	GstPercent      *decimal.Decimal `json:"gst_percent"`
	Remark          string           `json:"remark"`
}

// SubmitVoucherInput is a tagged union: the common header plus exactly
// one of Lines, Journal or TaxPayment, matching the voucher type.
type SubmitVoucherInput struct {
	VoucherType   models.VoucherType `json:"voucher_type" binding:"required"`
	VoucherDate   time.Time          `json:"voucher_date" binding:"required"`
	VoucherNumber string             `json:"voucher_number"`
	SeriesPrefix  string             `json:"series_prefix"`
	PartyId       int                `json:"party_id"`
	InterState    *bool              `json:"inter_state"`
	ApplyRoundOff bool               `json:"apply_round_off"`
	Narration     string             `json:"narration"`
	RequestId     string             `json:"request_id"`

	Lines      []LineRequest      `json:"lines"`
	Journal    []JournalRow       `json:"journal"`
	TaxPayment *TaxPaymentDetails `json:"tax_payment"`
}

var defaultSeriesPrefix = map[models.VoucherType]string{
	models.VoucherTypeSalesInvoice:       "SI",
	models.VoucherTypePurchaseInvoice:    "PI",
	models.VoucherTypeSalesCreditNote:    "SCN",
	models.VoucherTypePurchaseCreditNote: "PCN",
	models.VoucherTypeDebitNote:          "DN",
	models.VoucherTypeJournal:            "JV",
	models.VoucherTypeGSTPayment:         "GSTP",
	models.VoucherTypeTDSPayment:         "TDSP",
	models.VoucherTypeTCSPayment:         "TCSP",
}

func isItemVoucher(t models.VoucherType) bool {
	switch t {
	case models.VoucherTypeSalesInvoice, models.VoucherTypePurchaseInvoice,
		models.VoucherTypeSalesCreditNote, models.VoucherTypePurchaseCreditNote,
		models.VoucherTypeDebitNote:
		return true
	}
	return false
}

func isTaxPaymentVoucher(t models.VoucherType) bool {
	switch t {
	case models.VoucherTypeGSTPayment, models.VoucherTypeTDSPayment, models.VoucherTypeTCSPayment:
		return true
	}
	return false
}

// validateSections enforces the tagged-union shape: exactly the
// section matching the voucher type must be present.
func (in *SubmitVoucherInput) validateSections() error {
	if !in.VoucherType.IsValid() {
		return models.ErrInvalidLine
	}
	hasLines := len(in.Lines) > 0
	hasJournal := len(in.Journal) > 0
	hasPayment := in.TaxPayment != nil
	switch {
	case isItemVoucher(in.VoucherType):
		if !hasLines {
			return models.ErrEmptyDocument
		}
		if hasJournal || hasPayment {
			return models.ErrInvalidLine
		}
	case in.VoucherType == models.VoucherTypeJournal:
		if !hasJournal {
			return models.ErrEmptyDocument
		}
		if hasLines || hasPayment {
			return models.ErrInvalidLine
		}
	case isTaxPaymentVoucher(in.VoucherType):
		if !hasPayment {
			return models.ErrEmptyDocument
		}
		if hasLines || hasJournal {
			return models.ErrInvalidLine
		}
	}
	return nil
}

// SubmitVoucher runs the whole submission: serialize per business,
// dedupe, calculate, resolve accounts, build postings, number, and
// persist everything in one transaction. Any failure rolls back with
// no partial state.
func SubmitVoucher(ctx context.Context, logger *logrus.Logger, input SubmitVoucherInput) (*models.Voucher, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, models.ErrRecordNotFound
	}
	if err := input.validateSections(); err != nil {
		return nil, err
	}
	if input.RequestId == "" {
		input.RequestId = uuid.NewString()
	}

	var voucher *models.Voucher
	db := config.GetDB()
	err := db.Transaction(func(tx *gorm.DB) error {
		tx = tx.WithContext(ctx)

		release, err := AcquireSubmissionLock(ctx, tx, businessId)
		if err != nil {
			config.LogError(logger, "submitVoucher.go", "SubmitVoucher", "AcquireSubmissionLock", businessId, err)
			return err
		}
		defer release()

		skip, err := BeginSubmission(tx, businessId, submitHandlerName, input.RequestId)
		if err != nil {
			return err
		}
		if skip {
			var existing models.Voucher
			if err := tx.Where("business_id = ?", businessId).
				Where("request_id = ?", input.RequestId).
				First(&existing).Error; err != nil {
				return err
			}
			voucher = &existing
			return nil
		}

		voucher, err = submitVoucherTx(ctx, tx, logger, businessId, input)
		if err != nil {
			_ = MarkSubmissionFailed(tx, businessId, submitHandlerName, input.RequestId, err)
			return err
		}
		return MarkSubmissionSucceeded(tx, businessId, submitHandlerName, input.RequestId)
	})
	if err != nil {
		return nil, err
	}
	return voucher, nil
}

func submitVoucherTx(ctx context.Context, tx *gorm.DB, logger *logrus.Logger, businessId string, input SubmitVoucherInput) (*models.Voucher, error) {
	business, err := models.GetBusinessById(tx, businessId)
	if err != nil {
		config.LogError(logger, "submitVoucher.go", "submitVoucherTx", "GetBusinessById", businessId, err)
		return nil, err
	}

	var party *models.Party
	if input.PartyId > 0 {
		party, err = models.GetPartyById(tx, businessId, input.PartyId)
		if err != nil {
			config.LogError(logger, "submitVoucher.go", "submitVoucherTx", "GetPartyById", input.PartyId, err)
			return nil, err
		}
	}
	if isItemVoucher(input.VoucherType) && input.VoucherType != models.VoucherTypeSalesInvoice && party == nil {
		return nil, models.ErrInvalidLine
	}

	interState := resolveInterState(input.InterState, business, party)

	voucher := &models.Voucher{
		BusinessId:    businessId,
		VoucherType:   input.VoucherType,
		VoucherDate:   input.VoucherDate,
		PartyId:       input.PartyId,
		InterState:    &interState,
		ApplyRoundOff: &input.ApplyRoundOff,
		Status:        models.VoucherStatusConfirmed,
		RequestId:     input.RequestId,
		Narration:     input.Narration,
	}

	if isItemVoucher(input.VoucherType) {
		items, totals, err := prepareItemLines(tx, businessId, input, interState)
		if err != nil {
			return nil, err
		}
		voucher.Items = items
		applyDocumentTotals(voucher, totals)
	}

	resolver, err := NewChartResolver(NewAccountLookup(tx), businessId)
	if err != nil {
		config.LogError(logger, "submitVoucher.go", "submitVoucherTx", "NewChartResolver", businessId, err)
		return nil, err
	}

	postings, err := buildPostings(resolver, businessId, voucher, party, input)
	if err != nil {
		return nil, err
	}

	if err := assignVoucherNumber(ctx, tx, NewNumberAllocator(), businessId, voucher, input); err != nil {
		return nil, err
	}

	if err := tx.Create(voucher).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return nil, models.ErrDuplicateDocumentNumber
		}
		config.LogError(logger, "submitVoucher.go", "submitVoucherTx", "Create Voucher", voucher.VoucherNumber, err)
		return nil, err
	}

	if len(postings) > 0 {
		journal := &models.AccountJournal{
			BusinessId:  businessId,
			VoucherId:   voucher.ID,
			VoucherType: voucher.VoucherType,
			JournalDate: voucher.VoucherDate,
			TotalAmount: journalTotal(postings),
			Narration:   voucher.Narration,
			Postings:    postings,
		}
		if err := tx.Create(journal).Error; err != nil {
			config.LogError(logger, "submitVoucher.go", "submitVoucherTx", "Create AccountJournal", voucher.VoucherNumber, err)
			return nil, err
		}
	}
	return voucher, nil
}

// applyDocumentTotals copies calculated totals onto the voucher,
// quantized to paise. The money columns hold two fraction digits, so
// the round-off is recomputed from the quantized figures; any paisa
// the quantization shifts lands in the round-off leg instead of
// unbalancing the stored batch.
func applyDocumentTotals(v *models.Voucher, totals tax.DocumentTotals) {
	v.Subtotal = totals.Subtotal.Round(2)
	v.TotalCGST = totals.TotalCGST.Round(2)
	v.TotalSGST = totals.TotalSGST.Round(2)
	v.TotalIGST = totals.TotalIGST.Round(2)
	v.NetAmount = totals.NetAmount.Round(2)
	v.RoundOff = v.NetAmount.
		Sub(v.Subtotal).Sub(v.TotalCGST).Sub(v.TotalSGST).Sub(v.TotalIGST)
}

// resolveInterState picks place of supply once per document: the
// explicit flag wins, else compare business and party state codes.
func resolveInterState(explicit *bool, business *models.Business, party *models.Party) bool {
	if explicit != nil {
		return *explicit
	}
	if business == nil || party == nil {
		return false
	}
	if business.StateCode == "" || party.StateCode == "" {
		return false
	}
	return business.StateCode != party.StateCode
}

// prepareItemLines fills each line's GST rate, runs the calculator and
// returns persisted-shape items plus document totals.
func prepareItemLines(tx *gorm.DB, businessId string, input SubmitVoucherInput, interState bool) ([]models.VoucherItem, tax.DocumentTotals, error) {
	lineInputs := make([]tax.LineInput, len(input.Lines))
	items := make([]models.VoucherItem, len(input.Lines))

	for i, line := range input.Lines {
		gstRate, hsn, name, unit, err := effectiveLineRate(tx, businessId, line)
		if err != nil {
			return nil, tax.DocumentTotals{}, err
		}
		lineInputs[i] = tax.LineInput{
			Qty:             line.Qty,
			Rate:            line.Rate,
			DiscountPercent: line.DiscountPercent,
			GstPercent:      gstRate,
		}
		items[i] = models.VoucherItem{
			ItemId:          line.ItemId,
			ItemName:        name,
			HSNCode:         hsn,
			Qty:             line.Qty,
			Unit:            unit,
			Rate:            line.Rate,
			DiscountPercent: line.DiscountPercent,
			GstPercent:      gstRate,
			Remark:          line.Remark,
		}
	}

	results, totals, err := tax.CalculateDocument(lineInputs, interState, input.ApplyRoundOff)
	if err != nil {
		return nil, tax.DocumentTotals{}, err
	}
	// Line money is stored at paise; the calculator keeps full
	// precision so per-line rounding never compounds into the totals.
	for i, res := range results {
		items[i].Amount = res.Amount.Round(2)
		items[i].DiscountAmount = res.DiscountAmount.Round(2)
		items[i].TaxableAmount = res.TaxableAmount.Round(2)
		items[i].CGST = res.CGST.Round(2)
		items[i].SGST = res.SGST.Round(2)
		items[i].IGST = res.IGST.Round(2)
		items[i].LineTotal = res.LineTotal.Round(2)
	}
	return items, totals, nil
}

// effectiveLineRate applies the rate precedence: the line's own rate,
// then the item master, then the HSN default, then zero.
func effectiveLineRate(tx *gorm.DB, businessId string, line LineRequest) (rate decimal.Decimal, hsn string, name string, unit string, err error) {
	hsn = line.HSNCode
	name = line.ItemName
	unit = line.Unit

	var item *models.Item
	if line.ItemId > 0 {
		item, err = models.GetItemById(tx, businessId, line.ItemId)
		if err != nil {
			return decimal.Zero, "", "", "", err
		}
		if hsn == "" {
			hsn = item.HSNCode
		}
		if name == "" {
			name = item.Name
		}
		if unit == "" {
			unit = item.Unit
		}
	}
	if name == "" {
		return decimal.Zero, "", "", "", models.ErrInvalidLine
	}

	if line.GstPercent != nil {
		return *line.GstPercent, hsn, name, unit, nil
	}
	if item != nil && !item.GstRate.IsZero() {
		return item.GstRate, hsn, name, unit, nil
	}
	if hsn != "" {
		defRate, found, err := models.DefaultGstRate(tx, businessId, hsn)
		if err != nil {
			return decimal.Zero, "", "", "", err
		}
		if found {
			return defRate, hsn, name, unit, nil
		}
	}
	return decimal.Zero, hsn, name, unit, nil
}

// buildPostings dispatches to the strategy for the voucher type. A
// sales tax invoice stores the voucher only; its accounting entry is
// owned elsewhere.
func buildPostings(resolver *ChartResolver, businessId string, voucher *models.Voucher, party *models.Party, input SubmitVoucherInput) ([]models.LedgerPosting, error) {
	switch input.VoucherType {
	case models.VoucherTypeSalesInvoice:
		return nil, nil
	case models.VoucherTypePurchaseInvoice:
		return BuildPurchaseInvoicePostings(resolver, businessId, voucher, party)
	case models.VoucherTypeSalesCreditNote:
		return BuildSalesCreditNotePostings(resolver, businessId, voucher, party)
	case models.VoucherTypePurchaseCreditNote, models.VoucherTypeDebitNote:
		return BuildPurchaseReturnPostings(resolver, businessId, voucher, party)
	case models.VoucherTypeJournal:
		if err := validateJournalAccounts(resolver, businessId, input.Journal); err != nil {
			return nil, err
		}
		return BuildJournalPostings(businessId, input.Journal)
	case models.VoucherTypeGSTPayment:
		return BuildGSTPaymentPostings(resolver, businessId, *input.TaxPayment)
	case models.VoucherTypeTDSPayment, models.VoucherTypeTCSPayment:
		return BuildDeductedTaxPaymentPostings(resolver, businessId, input.VoucherType, *input.TaxPayment)
	}
	return nil, models.ErrInvalidLine
}

// assignVoucherNumber honors an explicit number after a duplicate
// check, otherwise reserves the next number from the series under a
// row lock.
func assignVoucherNumber(ctx context.Context, tx *gorm.DB, allocator NumberAllocator, businessId string, voucher *models.Voucher, input SubmitVoucherInput) error {
	fiscalYear := models.FiscalYearLabel(input.VoucherDate)
	voucher.FiscalYear = fiscalYear

	if input.VoucherNumber != "" {
		exists, err := allocator.Exists(tx, businessId, input.VoucherType, input.VoucherNumber)
		if err != nil {
			return err
		}
		if exists {
			return models.ErrDuplicateDocumentNumber
		}
		voucher.VoucherNumber = input.VoucherNumber
		voucher.SeriesPrefix = input.SeriesPrefix
		return nil
	}

	prefix := input.SeriesPrefix
	if prefix == "" {
		prefix = defaultSeriesPrefix[input.VoucherType]
	}
	series, seq, err := allocator.ReserveNext(ctx, tx, businessId, input.VoucherType, prefix, fiscalYear)
	if err != nil {
		return err
	}
	voucher.SeriesPrefix = series.Prefix
	voucher.SequenceNo = seq
	voucher.VoucherNumber = models.FormatVoucherNumber(series.Prefix, fiscalYear, seq, series.PadWidth)
	return nil
}

func journalTotal(postings []models.LedgerPosting) decimal.Decimal {
	total := decimal.Zero
	for _, p := range postings {
		total = total.Add(p.DebitAmount)
	}
	return total
}
