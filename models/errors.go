package models

import "errors"

// Domain errors. All of them are raised before any write happens, so a caller
// that sees one can retry after fixing the input; no partial state exists.
var (
	ErrEmptyDocument             = errors.New("document has no line items")
	ErrInvalidLine               = errors.New("invalid line item")
	ErrIncompleteChartOfAccounts = errors.New("a required ledger account could not be resolved")
	ErrUnbalancedJournalEntry    = errors.New("journal debit total does not equal credit total")
	ErrDuplicateDocumentNumber   = errors.New("document number already exists for this voucher type")
	ErrAllocatorUnavailable      = errors.New("document number reservation failed")
	ErrRecordNotFound            = errors.New("record not found")
)
