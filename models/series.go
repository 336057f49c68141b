package models

import (
	"fmt"
	"time"
)

// DocumentSeries is the per-tenant numbering counter for one voucher
// type, series prefix and fiscal year. Separate prefixes under the
// same voucher type run independent sequences. NextSequence is only
// ever read and bumped under a row lock inside the submission
// transaction.
type DocumentSeries struct {
	ID           int         `gorm:"primary_key" json:"id"`
	BusinessId   string      `gorm:"index;not null;uniqueIndex:uniq_series" json:"business_id"`
	VoucherType  VoucherType `gorm:"size:30;not null;uniqueIndex:uniq_series" json:"voucher_type"`
	Prefix       string      `gorm:"size:30;not null;uniqueIndex:uniq_series" json:"prefix"`
	FiscalYear   string      `gorm:"size:5;not null;uniqueIndex:uniq_series" json:"fiscal_year"`
	NextSequence int64       `gorm:"not null;default:1" json:"next_sequence"`
	PadWidth     int         `gorm:"not null;default:4" json:"pad_width"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// FiscalYearLabel returns the Indian fiscal year label for a date,
// April through March, as "YY-YY". 2025-06-15 is "25-26" and
// 2026-02-01 is "25-26".
func FiscalYearLabel(date time.Time) string {
	year := date.Year()
	if date.Month() < time.April {
		year--
	}
	return fmt.Sprintf("%02d-%02d", year%100, (year+1)%100)
}

// FormatVoucherNumber renders the printable number for a reserved
// sequence, e.g. prefix "PI", fy "25-26", seq 7, width 4 gives
// "PI/25-26/0007". Sequences wider than the pad width keep all digits.
func FormatVoucherNumber(prefix string, fiscalYear string, sequence int64, padWidth int) string {
	if padWidth <= 0 {
		padWidth = 4
	}
	return fmt.Sprintf("%s/%s/%0*d", prefix, fiscalYear, padWidth, sequence)
}
