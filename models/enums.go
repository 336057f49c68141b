package models

import "errors"

type VoucherType string

const (
	VoucherTypeSalesInvoice       VoucherType = "SalesInvoice"
	VoucherTypePurchaseInvoice    VoucherType = "PurchaseInvoice"
	VoucherTypeSalesCreditNote    VoucherType = "SalesCreditNote"
	VoucherTypePurchaseCreditNote VoucherType = "PurchaseCreditNote"
	VoucherTypeDebitNote          VoucherType = "DebitNote"
	VoucherTypeJournal            VoucherType = "Journal"
	VoucherTypeGSTPayment         VoucherType = "GSTPayment"
	VoucherTypeTDSPayment         VoucherType = "TDSPayment"
	VoucherTypeTCSPayment         VoucherType = "TCSPayment"
)

func (t VoucherType) IsValid() bool {
	switch t {
	case VoucherTypeSalesInvoice, VoucherTypePurchaseInvoice,
		VoucherTypeSalesCreditNote, VoucherTypePurchaseCreditNote,
		VoucherTypeDebitNote, VoucherTypeJournal,
		VoucherTypeGSTPayment, VoucherTypeTDSPayment, VoucherTypeTCSPayment:
		return true
	}
	return false
}

func (t *VoucherType) UnmarshalText(b []byte) error {
	v := VoucherType(b)
	if !v.IsValid() {
		return errors.New("invalid voucher type")
	}
	*t = v
	return nil
}

type VoucherStatus string

const (
	VoucherStatusConfirmed VoucherStatus = "Confirmed"
	VoucherStatusCancelled VoucherStatus = "Cancelled"
)

type EntryType string

const (
	EntryTypeDebit  EntryType = "Debit"
	EntryTypeCredit EntryType = "Credit"
)

func (t EntryType) IsValid() bool {
	return t == EntryTypeDebit || t == EntryTypeCredit
}

type PartyType string

const (
	PartyTypeCustomer PartyType = "Customer"
	PartyTypeSupplier PartyType = "Supplier"
)

type AccountMainType string

const (
	AccountMainTypeAsset     AccountMainType = "Asset"
	AccountMainTypeLiability AccountMainType = "Liability"
	AccountMainTypeEquity    AccountMainType = "Equity"
	AccountMainTypeIncome    AccountMainType = "Income"
	AccountMainTypeExpense   AccountMainType = "Expense"
)

// System default account codes. Seeded per business; resolved through
// GetSystemAccounts into concrete ledger account ids.
const (
	AccountCodeSales       = "SAL"
	AccountCodePurchase    = "PUR"
	AccountCodeCGSTOutput  = "CGO"
	AccountCodeSGSTOutput  = "SGO"
	AccountCodeIGSTOutput  = "IGO"
	AccountCodeCGSTInput   = "CGI"
	AccountCodeSGSTInput   = "SGI"
	AccountCodeIGSTInput   = "IGI"
	AccountCodeTDSPayable  = "TDS"
	AccountCodeTCSPayable  = "TCS"
	AccountCodeRoundOff    = "RND"
	AccountCodeBank        = "BNK"
	AccountCodeCash        = "CSH"
	AccountCodeDebtors     = "SDR"
	AccountCodeCreditors   = "SCR"
	AccountCodeGSTInterest = "GIN"
	AccountCodeGSTPenalty  = "GPN"
	AccountCodeGSTLateFee  = "GLF"
	AccountCodeGSTOther    = "GOT"
)
