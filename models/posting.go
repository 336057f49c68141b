package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountJournal groups the ledger postings written for one voucher
// submission. Apart from the voucher status, it is append-only.
type AccountJournal struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	VoucherId   int             `gorm:"index;not null" json:"voucher_id"`
	VoucherType VoucherType     `gorm:"size:30;not null" json:"voucher_type"`
	JournalDate time.Time       `gorm:"not null;index" json:"journal_date"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Narration   string          `gorm:"type:text" json:"narration"`
	Postings    []LedgerPosting `gorm:"foreignKey:JournalId" json:"postings"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// LedgerPosting is a single debit or credit leg. Exactly one of
// DebitAmount and CreditAmount is non-zero.
type LedgerPosting struct {
	ID           int             `gorm:"primary_key" json:"id"`
	JournalId    int             `gorm:"index;not null" json:"journal_id"`
	BusinessId   string          `gorm:"index;not null" json:"business_id"`
	AccountId    int             `gorm:"index;not null" json:"account_id"`
	PartyId      int             `gorm:"index" json:"party_id"`
	EntryType    EntryType       `gorm:"size:10;not null" json:"entry_type"`
	DebitAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit_amount"`
	CreditAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit_amount"`
	Narration    string          `gorm:"size:255" json:"narration"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// Amount returns the non-zero side of the leg.
func (p *LedgerPosting) Amount() decimal.Decimal {
	if p.EntryType == EntryTypeDebit {
		return p.DebitAmount
	}
	return p.CreditAmount
}

// ValidatePostings checks that the batch is non-empty, that every leg
// carries a positive amount on exactly one side, and that debits equal
// credits. Callers must not persist a batch this rejects.
func ValidatePostings(postings []LedgerPosting) error {
	if len(postings) == 0 {
		return ErrUnbalancedJournalEntry
	}
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, p := range postings {
		switch p.EntryType {
		case EntryTypeDebit:
			if !p.DebitAmount.IsPositive() || !p.CreditAmount.IsZero() {
				return ErrInvalidLine
			}
			totalDebit = totalDebit.Add(p.DebitAmount)
		case EntryTypeCredit:
			if !p.CreditAmount.IsPositive() || !p.DebitAmount.IsZero() {
				return ErrInvalidLine
			}
			totalCredit = totalCredit.Add(p.CreditAmount)
		default:
			return ErrInvalidLine
		}
	}
	if !totalDebit.Equal(totalCredit) {
		return ErrUnbalancedJournalEntry
	}
	return nil
}
