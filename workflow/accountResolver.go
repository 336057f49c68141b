package workflow

import (
	"errors"

	"gorm.io/gorm"

	"bitbucket.org/siddhisoft/distbooks_backend/models"
)

// AccountLookup abstracts how an account can be found: the cached
// system-default code map, a name/group search, and an id check scoped
// to the tenant. The DB-backed implementation is dbAccountLookup;
// tests substitute a fake.
type AccountLookup interface {
	SystemAccounts(businessId string) (map[string]int, error)
	FindAccount(businessId string, name string, groupFallback string) (int, error)
	AccountExists(businessId string, accountId int) (bool, error)
}

type dbAccountLookup struct {
	tx *gorm.DB
}

func NewAccountLookup(tx *gorm.DB) AccountLookup {
	return &dbAccountLookup{tx: tx}
}

func (l *dbAccountLookup) SystemAccounts(businessId string) (map[string]int, error) {
	return models.GetSystemAccounts(businessId)
}

func (l *dbAccountLookup) FindAccount(businessId string, name string, groupFallback string) (int, error) {
	return models.LookupAccount(l.tx, businessId, name, groupFallback)
}

func (l *dbAccountLookup) AccountExists(businessId string, accountId int) (bool, error) {
	var count int64
	err := l.tx.Model(&models.LedgerAccount{}).
		Where("business_id = ?", businessId).
		Where("id = ?", accountId).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// accountFallbacks maps a system-default code to the account name and
// group name tried when the business has no tagged default. The names
// match the seeded chart, so a freshly-seeded tenant resolves every
// role even before any code tagging.
var accountFallbacks = map[string]struct{ Name, Group string }{
	models.AccountCodeSales:       {"Sales", "Sales Accounts"},
	models.AccountCodePurchase:    {"Purchases", "Purchase Accounts"},
	models.AccountCodeCGSTOutput:  {"CGST Output", "Duties & Taxes"},
	models.AccountCodeSGSTOutput:  {"SGST Output", "Duties & Taxes"},
	models.AccountCodeIGSTOutput:  {"IGST Output", "Duties & Taxes"},
	models.AccountCodeCGSTInput:   {"CGST Input", "Duties & Taxes"},
	models.AccountCodeSGSTInput:   {"SGST Input", "Duties & Taxes"},
	models.AccountCodeIGSTInput:   {"IGST Input", "Duties & Taxes"},
	models.AccountCodeTDSPayable:  {"TDS Payable", "Duties & Taxes"},
	models.AccountCodeTCSPayable:  {"TCS Payable", "Duties & Taxes"},
	models.AccountCodeRoundOff:    {"Round Off", "Indirect Expenses"},
	models.AccountCodeBank:        {"Bank", "Bank Accounts"},
	models.AccountCodeCash:        {"Cash", "Cash-in-Hand"},
	models.AccountCodeDebtors:     {"Sundry Debtors", "Sundry Debtors"},
	models.AccountCodeCreditors:   {"Sundry Creditors", "Sundry Creditors"},
	models.AccountCodeGSTInterest: {"GST Interest", "Indirect Expenses"},
	models.AccountCodeGSTPenalty:  {"GST Penalty", "Indirect Expenses"},
	models.AccountCodeGSTLateFee:  {"GST Late Fee", "Indirect Expenses"},
	models.AccountCodeGSTOther:    {"GST Other Charges", "Indirect Expenses"},
}

// ChartResolver resolves system-default codes to ledger account ids
// for one business. All resolution happens before any posting is
// built, so a missing mandatory account fails the submission with no
// partial writes.
type ChartResolver struct {
	lookup     AccountLookup
	businessId string
	sys        map[string]int
}

func NewChartResolver(lookup AccountLookup, businessId string) (*ChartResolver, error) {
	sys, err := lookup.SystemAccounts(businessId)
	if err != nil {
		return nil, err
	}
	return &ChartResolver{lookup: lookup, businessId: businessId, sys: sys}, nil
}

// Resolve returns the account id for a role code. The tagged default
// wins; otherwise the fallback name is searched, then its group. A
// miss returns ErrRecordNotFound so the caller can decide whether the
// leg is optional.
func (r *ChartResolver) Resolve(code string) (int, error) {
	if id, ok := r.sys[code]; ok && id > 0 {
		return id, nil
	}
	fb, ok := accountFallbacks[code]
	if !ok {
		return 0, models.ErrRecordNotFound
	}
	id, err := r.lookup.FindAccount(r.businessId, fb.Name, fb.Group)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return 0, models.ErrRecordNotFound
		}
		return 0, err
	}
	return id, nil
}

// MustResolve is Resolve for mandatory legs: a miss becomes
// ErrIncompleteChartOfAccounts and fails the submission.
func (r *ChartResolver) MustResolve(code string) (int, error) {
	id, err := r.Resolve(code)
	if errors.Is(err, models.ErrRecordNotFound) {
		return 0, models.ErrIncompleteChartOfAccounts
	}
	return id, err
}

// ResolveAll resolves every listed mandatory role, failing fast on the
// first miss. Optional roles (round-off, interest heads) resolve
// lazily when their amount is non-zero.
func (r *ChartResolver) ResolveAll(codes ...string) (map[string]int, error) {
	out := make(map[string]int, len(codes))
	for _, code := range codes {
		id, err := r.MustResolve(code)
		if err != nil {
			return nil, err
		}
		out[code] = id
	}
	return out, nil
}
