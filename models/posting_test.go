package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestValidatePostingsBalanced(t *testing.T) {
	postings := []LedgerPosting{
		{EntryType: EntryTypeDebit, DebitAmount: dec("2000")},
		{EntryType: EntryTypeDebit, DebitAmount: dec("360")},
		{EntryType: EntryTypeCredit, CreditAmount: dec("2360")},
	}
	if err := ValidatePostings(postings); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidatePostingsUnbalanced(t *testing.T) {
	postings := []LedgerPosting{
		{EntryType: EntryTypeDebit, DebitAmount: dec("500")},
		{EntryType: EntryTypeCredit, CreditAmount: dec("400")},
	}
	if err := ValidatePostings(postings); !errors.Is(err, ErrUnbalancedJournalEntry) {
		t.Fatalf("got %v, want ErrUnbalancedJournalEntry", err)
	}
}

func TestValidatePostingsEmpty(t *testing.T) {
	if err := ValidatePostings(nil); !errors.Is(err, ErrUnbalancedJournalEntry) {
		t.Fatalf("got %v, want ErrUnbalancedJournalEntry", err)
	}
}

func TestValidatePostingsOneSideRule(t *testing.T) {
	cases := []LedgerPosting{
		{EntryType: EntryTypeDebit, DebitAmount: dec("100"), CreditAmount: dec("100")},
		{EntryType: EntryTypeDebit},
		{EntryType: EntryTypeDebit, DebitAmount: dec("-100")},
		{EntryType: EntryTypeCredit, CreditAmount: dec("100"), DebitAmount: dec("1")},
		{EntryType: "Transfer", DebitAmount: dec("100")},
	}
	for i, bad := range cases {
		postings := []LedgerPosting{bad, {EntryType: EntryTypeCredit, CreditAmount: dec("100")}}
		if err := ValidatePostings(postings); !errors.Is(err, ErrInvalidLine) {
			t.Fatalf("case %d: got %v, want ErrInvalidLine", i, err)
		}
	}
}

func TestPostingAmount(t *testing.T) {
	debit := LedgerPosting{EntryType: EntryTypeDebit, DebitAmount: dec("75")}
	credit := LedgerPosting{EntryType: EntryTypeCredit, CreditAmount: dec("25")}
	if !debit.Amount().Equal(dec("75")) || !credit.Amount().Equal(dec("25")) {
		t.Fatalf("Amount() returned wrong side: %s / %s", debit.Amount(), credit.Amount())
	}
}
