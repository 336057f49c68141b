package workflow

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"bitbucket.org/siddhisoft/distbooks_backend/models"
	"bitbucket.org/siddhisoft/distbooks_backend/tax"
)

// fakeLookup serves system accounts and name lookups from maps, no DB.
type fakeLookup struct {
	sys    map[string]int
	byName map[string]int
}

func (f *fakeLookup) SystemAccounts(businessId string) (map[string]int, error) {
	return f.sys, nil
}

func (f *fakeLookup) FindAccount(businessId string, name string, groupFallback string) (int, error) {
	if id, ok := f.byName[name]; ok {
		return id, nil
	}
	return 0, models.ErrRecordNotFound
}

func (f *fakeLookup) AccountExists(businessId string, accountId int) (bool, error) {
	for _, id := range f.sys {
		if id == accountId {
			return true, nil
		}
	}
	for _, id := range f.byName {
		if id == accountId {
			return true, nil
		}
	}
	return false, nil
}

func fullChart() *fakeLookup {
	return &fakeLookup{
		sys: map[string]int{
			models.AccountCodeSales:       1,
			models.AccountCodePurchase:    2,
			models.AccountCodeCGSTOutput:  3,
			models.AccountCodeSGSTOutput:  4,
			models.AccountCodeIGSTOutput:  5,
			models.AccountCodeCGSTInput:   6,
			models.AccountCodeSGSTInput:   7,
			models.AccountCodeIGSTInput:   8,
			models.AccountCodeTDSPayable:  9,
			models.AccountCodeTCSPayable:  10,
			models.AccountCodeRoundOff:    11,
			models.AccountCodeBank:        12,
			models.AccountCodeCash:        13,
			models.AccountCodeDebtors:     14,
			models.AccountCodeCreditors:   15,
			models.AccountCodeGSTInterest: 16,
			models.AccountCodeGSTPenalty:  17,
			models.AccountCodeGSTLateFee:  18,
			models.AccountCodeGSTOther:    19,
		},
	}
}

func newResolver(t *testing.T, lookup AccountLookup) *ChartResolver {
	t.Helper()
	r, err := NewChartResolver(lookup, "biz-1")
	if err != nil {
		t.Fatalf("NewChartResolver: %v", err)
	}
	return r
}

func sumSides(postings []models.LedgerPosting) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, p := range postings {
		debit = debit.Add(p.DebitAmount)
		credit = credit.Add(p.CreditAmount)
	}
	return debit, credit
}

func intraVoucher(t models.VoucherType) *models.Voucher {
	return &models.Voucher{
		BusinessId:  "biz-1",
		VoucherType: t,
		PartyId:     42,
		Subtotal:    d("2000"),
		TotalCGST:   d("180"),
		TotalSGST:   d("180"),
		NetAmount:   d("2360"),
	}
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestPurchaseInvoicePostingsIntraState(t *testing.T) {
	resolver := newResolver(t, fullChart())
	v := intraVoucher(models.VoucherTypePurchaseInvoice)
	party := &models.Party{ID: 42, PartyType: models.PartyTypeSupplier}

	postings, err := BuildPurchaseInvoicePostings(resolver, "biz-1", v, party)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 4 {
		t.Fatalf("got %d postings, want 4", len(postings))
	}
	debit, credit := sumSides(postings)
	if !debit.Equal(d("2360")) || !credit.Equal(d("2360")) {
		t.Fatalf("unbalanced: debit %s, credit %s", debit, credit)
	}
	// IGST leg must not appear on an intra-state document.
	for _, p := range postings {
		if p.AccountId == 8 {
			t.Fatal("IGST input leg posted for intra-state voucher")
		}
	}
	last := postings[len(postings)-1]
	if last.EntryType != models.EntryTypeCredit || !last.CreditAmount.Equal(d("2360")) || last.PartyId != 42 {
		t.Fatalf("supplier leg wrong: %+v", last)
	}
}

func TestPurchaseInvoicePostingsInterState(t *testing.T) {
	resolver := newResolver(t, fullChart())
	v := &models.Voucher{
		BusinessId:  "biz-1",
		VoucherType: models.VoucherTypePurchaseInvoice,
		PartyId:     42,
		Subtotal:    d("2000"),
		TotalIGST:   d("360"),
		NetAmount:   d("2360"),
	}
	postings, err := BuildPurchaseInvoicePostings(resolver, "biz-1", v, &models.Party{ID: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 3 {
		t.Fatalf("got %d postings, want 3 (purchase, IGST, supplier)", len(postings))
	}
	if err := models.ValidatePostings(postings); err != nil {
		t.Fatalf("ValidatePostings: %v", err)
	}
}

func TestPurchaseInvoiceUsesPartyControlAccount(t *testing.T) {
	resolver := newResolver(t, fullChart())
	v := intraVoucher(models.VoucherTypePurchaseInvoice)
	party := &models.Party{ID: 42, ControlAccountId: 99}

	postings, err := BuildPurchaseInvoicePostings(resolver, "biz-1", v, party)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := postings[len(postings)-1]
	if last.AccountId != 99 {
		t.Fatalf("supplier leg account %d, want control account 99", last.AccountId)
	}
}

func TestPurchaseInvoiceRoundOffPostsOnShortSide(t *testing.T) {
	resolver := newResolver(t, fullChart())
	// Gross 2359.82 rounds to 2360: debit side is short by 0.18.
	v := &models.Voucher{
		BusinessId:  "biz-1",
		VoucherType: models.VoucherTypePurchaseInvoice,
		PartyId:     42,
		Subtotal:    d("1999.82"),
		TotalCGST:   d("180"),
		TotalSGST:   d("180"),
		RoundOff:    d("0.18"),
		NetAmount:   d("2360"),
	}
	postings, err := BuildPurchaseInvoicePostings(resolver, "biz-1", v, &models.Party{ID: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var roundLeg *models.LedgerPosting
	for i := range postings {
		if postings[i].AccountId == 11 {
			roundLeg = &postings[i]
		}
	}
	if roundLeg == nil {
		t.Fatal("no round-off leg posted")
	}
	if roundLeg.EntryType != models.EntryTypeDebit || !roundLeg.DebitAmount.Equal(d("0.18")) {
		t.Fatalf("round-off leg wrong: %+v", roundLeg)
	}
	if err := models.ValidatePostings(postings); err != nil {
		t.Fatalf("ValidatePostings: %v", err)
	}
}

func TestPurchaseInvoiceNegativeRoundOffCreditsRoundOff(t *testing.T) {
	resolver := newResolver(t, fullChart())
	v := &models.Voucher{
		BusinessId:  "biz-1",
		VoucherType: models.VoucherTypePurchaseInvoice,
		PartyId:     42,
		Subtotal:    d("2000.40"),
		RoundOff:    d("-0.40"),
		NetAmount:   d("2000"),
	}
	postings, err := BuildPurchaseInvoicePostings(resolver, "biz-1", v, &models.Party{ID: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var roundLeg *models.LedgerPosting
	for i := range postings {
		if postings[i].AccountId == 11 {
			roundLeg = &postings[i]
		}
	}
	if roundLeg == nil || roundLeg.EntryType != models.EntryTypeCredit || !roundLeg.CreditAmount.Equal(d("0.40")) {
		t.Fatalf("round-off leg wrong: %+v", roundLeg)
	}
}

func TestRoundOffWithoutAccountFailsVoucher(t *testing.T) {
	lookup := fullChart()
	delete(lookup.sys, models.AccountCodeRoundOff)
	resolver := newResolver(t, lookup)
	v := intraVoucher(models.VoucherTypePurchaseInvoice)
	v.RoundOff = d("0.18")
	v.NetAmount = d("2360.18")

	_, err := BuildPurchaseInvoicePostings(resolver, "biz-1", v, &models.Party{ID: 42})
	if !errors.Is(err, models.ErrIncompleteChartOfAccounts) {
		t.Fatalf("got %v, want ErrIncompleteChartOfAccounts", err)
	}
}

func TestMissingTaxAccountWithNonZeroAmountFails(t *testing.T) {
	lookup := fullChart()
	delete(lookup.sys, models.AccountCodeCGSTInput)
	resolver := newResolver(t, lookup)
	v := intraVoucher(models.VoucherTypePurchaseInvoice)

	postings, err := BuildPurchaseInvoicePostings(resolver, "biz-1", v, &models.Party{ID: 42})
	if !errors.Is(err, models.ErrIncompleteChartOfAccounts) {
		t.Fatalf("got %v, want ErrIncompleteChartOfAccounts", err)
	}
	if postings != nil {
		t.Fatalf("postings returned on error: %v", postings)
	}
}

func TestMissingTaxAccountWithZeroAmountIsSkipped(t *testing.T) {
	lookup := fullChart()
	delete(lookup.sys, models.AccountCodeIGSTInput)
	resolver := newResolver(t, lookup)
	// Intra-state voucher never touches IGST, so its absence is fine.
	v := intraVoucher(models.VoucherTypePurchaseInvoice)

	if _, err := BuildPurchaseInvoicePostings(resolver, "biz-1", v, &models.Party{ID: 42}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestChartResolverNameFallback(t *testing.T) {
	lookup := &fakeLookup{
		sys:    map[string]int{},
		byName: map[string]int{"Purchases": 77},
	}
	resolver := newResolver(t, lookup)
	id, err := resolver.MustResolve(models.AccountCodePurchase)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 77 {
		t.Fatalf("got account %d, want 77", id)
	}
}

func TestSalesCreditNotePostings(t *testing.T) {
	resolver := newResolver(t, fullChart())
	v := intraVoucher(models.VoucherTypeSalesCreditNote)
	party := &models.Party{ID: 42, PartyType: models.PartyTypeCustomer}

	postings, err := BuildSalesCreditNotePostings(resolver, "biz-1", v, party)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := models.ValidatePostings(postings); err != nil {
		t.Fatalf("ValidatePostings: %v", err)
	}
	// Sales and output tax are debited, the customer is credited net.
	if postings[0].AccountId != 1 || postings[0].EntryType != models.EntryTypeDebit {
		t.Fatalf("first leg not a sales debit: %+v", postings[0])
	}
	last := postings[len(postings)-1]
	if last.EntryType != models.EntryTypeCredit || !last.CreditAmount.Equal(d("2360")) {
		t.Fatalf("customer leg wrong: %+v", last)
	}
}

func TestPurchaseReturnPostingsMirrorPurchase(t *testing.T) {
	resolver := newResolver(t, fullChart())
	for _, vt := range []models.VoucherType{models.VoucherTypePurchaseCreditNote, models.VoucherTypeDebitNote} {
		v := intraVoucher(vt)
		postings, err := BuildPurchaseReturnPostings(resolver, "biz-1", v, &models.Party{ID: 42})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", vt, err)
		}
		if err := models.ValidatePostings(postings); err != nil {
			t.Fatalf("%s: ValidatePostings: %v", vt, err)
		}
		first := postings[0]
		if first.EntryType != models.EntryTypeDebit || !first.DebitAmount.Equal(d("2360")) || first.PartyId != 42 {
			t.Fatalf("%s: supplier debit leg wrong: %+v", vt, first)
		}
	}
}

func TestJournalPostingsUnbalanced(t *testing.T) {
	rows := []JournalRow{
		{AccountId: 1, Debit: d("500")},
		{AccountId: 2, Credit: d("400")},
	}
	_, err := BuildJournalPostings("biz-1", rows)
	if !errors.Is(err, models.ErrUnbalancedJournalEntry) {
		t.Fatalf("got %v, want ErrUnbalancedJournalEntry", err)
	}
}

func TestJournalPostingsOneSideRule(t *testing.T) {
	cases := []JournalRow{
		{AccountId: 1, Debit: d("100"), Credit: d("100")},
		{AccountId: 1},
		{AccountId: 1, Debit: d("-100")},
		{Debit: d("100")},
	}
	for i, bad := range cases {
		rows := []JournalRow{bad, {AccountId: 2, Credit: d("100")}}
		if _, err := BuildJournalPostings("biz-1", rows); !errors.Is(err, models.ErrInvalidLine) {
			t.Fatalf("case %d: got %v, want ErrInvalidLine", i, err)
		}
	}
}

func TestJournalPostingsBalanced(t *testing.T) {
	rows := []JournalRow{
		{AccountId: 1, Debit: d("300"), Narration: "rent"},
		{AccountId: 2, Debit: d("200")},
		{AccountId: 12, Credit: d("500")},
	}
	postings, err := BuildJournalPostings("biz-1", rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 3 {
		t.Fatalf("got %d postings, want 3", len(postings))
	}
}

func TestJournalPostingsEmpty(t *testing.T) {
	if _, err := BuildJournalPostings("biz-1", nil); !errors.Is(err, models.ErrEmptyDocument) {
		t.Fatalf("got %v, want ErrEmptyDocument", err)
	}
}

func TestGSTPaymentPostings(t *testing.T) {
	resolver := newResolver(t, fullChart())
	pay := TaxPaymentDetails{
		CGST:     d("5000"),
		SGST:     d("5000"),
		Interest: d("120"),
	}
	postings, err := BuildGSTPaymentPostings(resolver, "biz-1", pay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 4 {
		t.Fatalf("got %d postings, want 4", len(postings))
	}
	last := postings[len(postings)-1]
	if last.AccountId != 12 || !last.CreditAmount.Equal(d("10120")) {
		t.Fatalf("bank leg wrong: %+v", last)
	}
}

func TestGSTPaymentFromCash(t *testing.T) {
	resolver := newResolver(t, fullChart())
	postings, err := BuildGSTPaymentPostings(resolver, "biz-1", TaxPaymentDetails{IGST: d("900"), PaidFromCash: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := postings[len(postings)-1]
	if last.AccountId != 13 {
		t.Fatalf("settlement account %d, want cash (13)", last.AccountId)
	}
}

func TestGSTPaymentAllZeroRejected(t *testing.T) {
	resolver := newResolver(t, fullChart())
	if _, err := BuildGSTPaymentPostings(resolver, "biz-1", TaxPaymentDetails{}); !errors.Is(err, models.ErrEmptyDocument) {
		t.Fatalf("got %v, want ErrEmptyDocument", err)
	}
}

func TestPurchaseInvoicePostingsFitMoneyColumns(t *testing.T) {
	resolver := newResolver(t, fullChart())
	// A three-digit rate produces five-digit tax splits at full
	// precision. Every stored leg must already be paise-exact, and the
	// batch must balance at that precision, not just before rounding.
	lines := []tax.LineInput{{Qty: d("3"), Rate: d("33.331"), GstPercent: d("18")}}
	_, totals, err := tax.CalculateDocument(lines, false, false)
	if err != nil {
		t.Fatalf("CalculateDocument: %v", err)
	}
	v := &models.Voucher{
		BusinessId:  "biz-1",
		VoucherType: models.VoucherTypePurchaseInvoice,
		PartyId:     42,
	}
	applyDocumentTotals(v, totals)

	postings, err := BuildPurchaseInvoicePostings(resolver, "biz-1", v, &models.Party{ID: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, p := range postings {
		if !p.DebitAmount.Equal(p.DebitAmount.Round(2)) || !p.CreditAmount.Equal(p.CreditAmount.Round(2)) {
			t.Fatalf("leg %d carries sub-paise precision: %+v", i, p)
		}
	}
	debit, credit := sumSides(postings)
	if !debit.Equal(credit) {
		t.Fatalf("unbalanced at paise precision: debit %s, credit %s", debit, credit)
	}
}

func TestQuantizationResidueGoesToRoundOff(t *testing.T) {
	resolver := newResolver(t, fullChart())
	// 0.25% GST on 4.00 splits into 0.005 CGST + 0.005 SGST. Stored at
	// paise each half becomes 0.01 while the net stays 4.01, so the
	// extra paisa must land on the round-off account.
	lines := []tax.LineInput{{Qty: d("1"), Rate: d("4"), GstPercent: d("0.25")}}
	_, totals, err := tax.CalculateDocument(lines, false, false)
	if err != nil {
		t.Fatalf("CalculateDocument: %v", err)
	}
	v := &models.Voucher{
		BusinessId:  "biz-1",
		VoucherType: models.VoucherTypePurchaseInvoice,
		PartyId:     42,
	}
	applyDocumentTotals(v, totals)
	if !v.RoundOff.Equal(d("-0.01")) {
		t.Fatalf("round-off %s, want -0.01", v.RoundOff)
	}

	postings, err := BuildPurchaseInvoicePostings(resolver, "biz-1", v, &models.Party{ID: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var roundLeg *models.LedgerPosting
	for i := range postings {
		if postings[i].AccountId == 11 {
			roundLeg = &postings[i]
		}
	}
	if roundLeg == nil || roundLeg.EntryType != models.EntryTypeCredit || !roundLeg.CreditAmount.Equal(d("0.01")) {
		t.Fatalf("round-off leg wrong: %+v", roundLeg)
	}
	if err := models.ValidatePostings(postings); err != nil {
		t.Fatalf("ValidatePostings: %v", err)
	}
}

func TestJournalPostingsRejectSubPaiseAmounts(t *testing.T) {
	rows := []JournalRow{
		{AccountId: 1, Debit: d("100.005")},
		{AccountId: 2, Credit: d("100.005")},
	}
	if _, err := BuildJournalPostings("biz-1", rows); !errors.Is(err, models.ErrInvalidLine) {
		t.Fatalf("got %v, want ErrInvalidLine", err)
	}
}

func TestTaxPaymentRejectsSubPaiseAmounts(t *testing.T) {
	resolver := newResolver(t, fullChart())
	if _, err := BuildGSTPaymentPostings(resolver, "biz-1", TaxPaymentDetails{CGST: d("10.001")}); !errors.Is(err, models.ErrInvalidLine) {
		t.Fatalf("GST: got %v, want ErrInvalidLine", err)
	}
	if _, err := BuildDeductedTaxPaymentPostings(resolver, "biz-1", models.VoucherTypeTDSPayment, TaxPaymentDetails{Amount: d("10.001")}); !errors.Is(err, models.ErrInvalidLine) {
		t.Fatalf("TDS: got %v, want ErrInvalidLine", err)
	}
}

func TestJournalRowsMustBelongToTenant(t *testing.T) {
	resolver := newResolver(t, fullChart())
	in := SubmitVoucherInput{
		VoucherType: models.VoucherTypeJournal,
		Journal: []JournalRow{
			{AccountId: 1, Debit: d("100")},
			{AccountId: 999, Credit: d("100")},
		},
	}
	_, err := buildPostings(resolver, "biz-1", &models.Voucher{}, nil, in)
	if !errors.Is(err, models.ErrRecordNotFound) {
		t.Fatalf("got %v, want ErrRecordNotFound", err)
	}

	in.Journal[1].AccountId = 2
	postings, err := buildPostings(resolver, "biz-1", &models.Voucher{}, nil, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 2 {
		t.Fatalf("got %d postings, want 2", len(postings))
	}
}

func TestDeductedTaxPaymentPostings(t *testing.T) {
	resolver := newResolver(t, fullChart())

	tds, err := BuildDeductedTaxPaymentPostings(resolver, "biz-1", models.VoucherTypeTDSPayment, TaxPaymentDetails{Amount: d("1500"), Interest: d("30")})
	if err != nil {
		t.Fatalf("TDS: unexpected error: %v", err)
	}
	if tds[0].AccountId != 9 || !tds[0].DebitAmount.Equal(d("1530")) {
		t.Fatalf("TDS payable leg wrong: %+v", tds[0])
	}

	tcs, err := BuildDeductedTaxPaymentPostings(resolver, "biz-1", models.VoucherTypeTCSPayment, TaxPaymentDetails{Amount: d("700")})
	if err != nil {
		t.Fatalf("TCS: unexpected error: %v", err)
	}
	if tcs[0].AccountId != 10 {
		t.Fatalf("TCS payable leg account %d, want 10", tcs[0].AccountId)
	}
}
