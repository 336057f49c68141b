package workflow

import (
	"github.com/shopspring/decimal"

	"bitbucket.org/siddhisoft/distbooks_backend/models"
)

// TaxPaymentDetails carries the head-wise breakup of a statutory
// payment voucher. GST payments use the bucket fields, TDS/TCS
// payments use Amount. Interest and the other charge heads apply to
// either kind.
type TaxPaymentDetails struct {
	CGST         decimal.Decimal `json:"cgst"`
	SGST         decimal.Decimal `json:"sgst"`
	IGST         decimal.Decimal `json:"igst"`
	Amount       decimal.Decimal `json:"amount"`
	Interest     decimal.Decimal `json:"interest"`
	Penalty      decimal.Decimal `json:"penalty"`
	LateFee      decimal.Decimal `json:"late_fee"`
	Other        decimal.Decimal `json:"other"`
	PaidFromCash bool            `json:"paid_from_cash"`
}

// JournalRow is one caller-supplied line of a manual journal. Exactly
// one of Debit and Credit must be positive.
type JournalRow struct {
	AccountId int             `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Narration string          `json:"narration"`
}

// paiseExact reports whether an amount already fits the two fraction
// digits the money columns store. Caller-supplied amounts must pass;
// calculated ones are quantized before they get here.
func paiseExact(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

func debitLeg(businessId string, accountId int, partyId int, amount decimal.Decimal, narration string) models.LedgerPosting {
	return models.LedgerPosting{
		BusinessId:  businessId,
		AccountId:   accountId,
		PartyId:     partyId,
		EntryType:   models.EntryTypeDebit,
		DebitAmount: amount,
		Narration:   narration,
	}
}

func creditLeg(businessId string, accountId int, partyId int, amount decimal.Decimal, narration string) models.LedgerPosting {
	return models.LedgerPosting{
		BusinessId:   businessId,
		AccountId:    accountId,
		PartyId:      partyId,
		EntryType:    models.EntryTypeCredit,
		CreditAmount: amount,
		Narration:    narration,
	}
}

// appendTaxLegs adds one leg per non-zero tax bucket. A zero bucket is
// skipped without resolving its account; a non-zero bucket whose
// account cannot be resolved fails the voucher.
func appendTaxLegs(postings []models.LedgerPosting, resolver *ChartResolver, businessId string, entryType models.EntryType, buckets []taxBucket) ([]models.LedgerPosting, error) {
	for _, b := range buckets {
		if b.amount.IsZero() {
			continue
		}
		accountId, err := resolver.MustResolve(b.code)
		if err != nil {
			return nil, err
		}
		if entryType == models.EntryTypeDebit {
			postings = append(postings, debitLeg(businessId, accountId, 0, b.amount, b.narration))
		} else {
			postings = append(postings, creditLeg(businessId, accountId, 0, b.amount, b.narration))
		}
	}
	return postings, nil
}

type taxBucket struct {
	code      string
	amount    decimal.Decimal
	narration string
}

func inputTaxBuckets(v *models.Voucher) []taxBucket {
	return []taxBucket{
		{models.AccountCodeCGSTInput, v.TotalCGST, "CGST input"},
		{models.AccountCodeSGSTInput, v.TotalSGST, "SGST input"},
		{models.AccountCodeIGSTInput, v.TotalIGST, "IGST input"},
	}
}

func outputTaxBuckets(v *models.Voucher) []taxBucket {
	return []taxBucket{
		{models.AccountCodeCGSTOutput, v.TotalCGST, "CGST output"},
		{models.AccountCodeSGSTOutput, v.TotalSGST, "SGST output"},
		{models.AccountCodeIGSTOutput, v.TotalIGST, "IGST output"},
	}
}

// partyControlAccount picks the voucher's counterparty account: the
// party's own control account when set, else the sundry debtors or
// creditors default.
func partyControlAccount(resolver *ChartResolver, party *models.Party, fallbackCode string) (int, error) {
	if party != nil && party.ControlAccountId > 0 {
		return party.ControlAccountId, nil
	}
	return resolver.MustResolve(fallbackCode)
}

// balanceRoundOff posts the voucher's round-off to the round-off
// account on whichever side the batch is short. A non-zero round-off
// with no resolvable round-off account fails the voucher; it is never
// silently dropped.
func balanceRoundOff(postings []models.LedgerPosting, resolver *ChartResolver, businessId string, roundOff decimal.Decimal) ([]models.LedgerPosting, error) {
	if roundOff.IsZero() {
		return postings, nil
	}
	accountId, err := resolver.MustResolve(models.AccountCodeRoundOff)
	if err != nil {
		return nil, err
	}
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, p := range postings {
		totalDebit = totalDebit.Add(p.DebitAmount)
		totalCredit = totalCredit.Add(p.CreditAmount)
	}
	diff := totalDebit.Sub(totalCredit)
	switch {
	case diff.IsNegative():
		postings = append(postings, debitLeg(businessId, accountId, 0, diff.Neg(), "round off"))
	case diff.IsPositive():
		postings = append(postings, creditLeg(businessId, accountId, 0, diff, "round off"))
	}
	return postings, nil
}

// BuildPurchaseInvoicePostings debits purchases and input tax, credits
// the supplier for the net payable.
func BuildPurchaseInvoicePostings(resolver *ChartResolver, businessId string, v *models.Voucher, party *models.Party) ([]models.LedgerPosting, error) {
	purchaseId, err := resolver.MustResolve(models.AccountCodePurchase)
	if err != nil {
		return nil, err
	}
	supplierId, err := partyControlAccount(resolver, party, models.AccountCodeCreditors)
	if err != nil {
		return nil, err
	}

	postings := []models.LedgerPosting{
		debitLeg(businessId, purchaseId, 0, v.Subtotal, "purchase"),
	}
	postings, err = appendTaxLegs(postings, resolver, businessId, models.EntryTypeDebit, inputTaxBuckets(v))
	if err != nil {
		return nil, err
	}
	postings = append(postings, creditLeg(businessId, supplierId, v.PartyId, v.NetAmount, "payable to supplier"))
	postings, err = balanceRoundOff(postings, resolver, businessId, v.RoundOff)
	if err != nil {
		return nil, err
	}
	if err := models.ValidatePostings(postings); err != nil {
		return nil, err
	}
	return postings, nil
}

// BuildSalesCreditNotePostings reverses a sale: debits sales and
// output tax, credits the customer for the net refundable.
func BuildSalesCreditNotePostings(resolver *ChartResolver, businessId string, v *models.Voucher, party *models.Party) ([]models.LedgerPosting, error) {
	salesId, err := resolver.MustResolve(models.AccountCodeSales)
	if err != nil {
		return nil, err
	}
	customerId, err := partyControlAccount(resolver, party, models.AccountCodeDebtors)
	if err != nil {
		return nil, err
	}

	postings := []models.LedgerPosting{
		debitLeg(businessId, salesId, 0, v.Subtotal, "sales return"),
	}
	postings, err = appendTaxLegs(postings, resolver, businessId, models.EntryTypeDebit, outputTaxBuckets(v))
	if err != nil {
		return nil, err
	}
	postings = append(postings, creditLeg(businessId, customerId, v.PartyId, v.NetAmount, "credit to customer"))
	postings, err = balanceRoundOff(postings, resolver, businessId, v.RoundOff)
	if err != nil {
		return nil, err
	}
	if err := models.ValidatePostings(postings); err != nil {
		return nil, err
	}
	return postings, nil
}

// BuildPurchaseReturnPostings covers purchase credit notes and debit
// notes, which share one shape: credit purchases and input tax, debit
// the supplier for the net recoverable.
func BuildPurchaseReturnPostings(resolver *ChartResolver, businessId string, v *models.Voucher, party *models.Party) ([]models.LedgerPosting, error) {
	purchaseId, err := resolver.MustResolve(models.AccountCodePurchase)
	if err != nil {
		return nil, err
	}
	supplierId, err := partyControlAccount(resolver, party, models.AccountCodeCreditors)
	if err != nil {
		return nil, err
	}

	postings := []models.LedgerPosting{
		debitLeg(businessId, supplierId, v.PartyId, v.NetAmount, "recoverable from supplier"),
		creditLeg(businessId, purchaseId, 0, v.Subtotal, "purchase return"),
	}
	postings, err = appendTaxLegs(postings, resolver, businessId, models.EntryTypeCredit, inputTaxBuckets(v))
	if err != nil {
		return nil, err
	}
	postings, err = balanceRoundOff(postings, resolver, businessId, v.RoundOff)
	if err != nil {
		return nil, err
	}
	if err := models.ValidatePostings(postings); err != nil {
		return nil, err
	}
	return postings, nil
}

// validateJournalAccounts checks every manual-journal row against the
// tenant's own ledger before any posting is built. A row naming
// another tenant's account, or none at all, fails the voucher.
func validateJournalAccounts(resolver *ChartResolver, businessId string, rows []JournalRow) error {
	for _, row := range rows {
		if row.AccountId <= 0 {
			return models.ErrInvalidLine
		}
		ok, err := resolver.lookup.AccountExists(businessId, row.AccountId)
		if err != nil {
			return err
		}
		if !ok {
			return models.ErrRecordNotFound
		}
	}
	return nil
}

// BuildJournalPostings validates caller-supplied rows. Each row must
// carry exactly one positive side, and the batch must balance.
func BuildJournalPostings(businessId string, rows []JournalRow) ([]models.LedgerPosting, error) {
	if len(rows) == 0 {
		return nil, models.ErrEmptyDocument
	}
	postings := make([]models.LedgerPosting, 0, len(rows))
	for _, row := range rows {
		if row.AccountId <= 0 {
			return nil, models.ErrInvalidLine
		}
		debitSet := row.Debit.IsPositive()
		creditSet := row.Credit.IsPositive()
		if debitSet == creditSet || row.Debit.IsNegative() || row.Credit.IsNegative() {
			return nil, models.ErrInvalidLine
		}
		if !paiseExact(row.Debit) || !paiseExact(row.Credit) {
			return nil, models.ErrInvalidLine
		}
		if debitSet {
			postings = append(postings, debitLeg(businessId, row.AccountId, 0, row.Debit, row.Narration))
		} else {
			postings = append(postings, creditLeg(businessId, row.AccountId, 0, row.Credit, row.Narration))
		}
	}
	if err := models.ValidatePostings(postings); err != nil {
		return nil, err
	}
	return postings, nil
}

// BuildGSTPaymentPostings debits each non-zero output-tax bucket and
// charge head, crediting bank or cash for the grand total.
func BuildGSTPaymentPostings(resolver *ChartResolver, businessId string, pay TaxPaymentDetails) ([]models.LedgerPosting, error) {
	buckets := []taxBucket{
		{models.AccountCodeCGSTOutput, pay.CGST, "CGST payment"},
		{models.AccountCodeSGSTOutput, pay.SGST, "SGST payment"},
		{models.AccountCodeIGSTOutput, pay.IGST, "IGST payment"},
		{models.AccountCodeGSTInterest, pay.Interest, "GST interest"},
		{models.AccountCodeGSTPenalty, pay.Penalty, "GST penalty"},
		{models.AccountCodeGSTLateFee, pay.LateFee, "GST late fee"},
		{models.AccountCodeGSTOther, pay.Other, "GST other charges"},
	}
	total := decimal.Zero
	for _, b := range buckets {
		if b.amount.IsNegative() || !paiseExact(b.amount) {
			return nil, models.ErrInvalidLine
		}
		total = total.Add(b.amount)
	}
	if total.IsZero() {
		return nil, models.ErrEmptyDocument
	}

	postings, err := appendTaxLegs(nil, resolver, businessId, models.EntryTypeDebit, buckets)
	if err != nil {
		return nil, err
	}
	settlementId, err := resolver.MustResolve(settlementCode(pay.PaidFromCash))
	if err != nil {
		return nil, err
	}
	postings = append(postings, creditLeg(businessId, settlementId, 0, total, "GST payment"))
	if err := models.ValidatePostings(postings); err != nil {
		return nil, err
	}
	return postings, nil
}

// BuildDeductedTaxPaymentPostings covers TDS and TCS remittance: debit
// the payable head for the amount plus interest, credit bank or cash.
func BuildDeductedTaxPaymentPostings(resolver *ChartResolver, businessId string, voucherType models.VoucherType, pay TaxPaymentDetails) ([]models.LedgerPosting, error) {
	if pay.Amount.IsNegative() || pay.Interest.IsNegative() {
		return nil, models.ErrInvalidLine
	}
	if !paiseExact(pay.Amount) || !paiseExact(pay.Interest) {
		return nil, models.ErrInvalidLine
	}
	total := pay.Amount.Add(pay.Interest)
	if total.IsZero() {
		return nil, models.ErrEmptyDocument
	}

	payableCode := models.AccountCodeTDSPayable
	narration := "TDS remittance"
	if voucherType == models.VoucherTypeTCSPayment {
		payableCode = models.AccountCodeTCSPayable
		narration = "TCS remittance"
	}
	payableId, err := resolver.MustResolve(payableCode)
	if err != nil {
		return nil, err
	}
	settlementId, err := resolver.MustResolve(settlementCode(pay.PaidFromCash))
	if err != nil {
		return nil, err
	}

	postings := []models.LedgerPosting{
		debitLeg(businessId, payableId, 0, total, narration),
		creditLeg(businessId, settlementId, 0, total, narration),
	}
	if err := models.ValidatePostings(postings); err != nil {
		return nil, err
	}
	return postings, nil
}

func settlementCode(paidFromCash bool) string {
	if paidFromCash {
		return models.AccountCodeCash
	}
	return models.AccountCodeBank
}
