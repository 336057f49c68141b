package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Voucher is the persisted header of any commercial document: invoices,
// credit/debit notes, journals and tax payments. Once submitted it is
// immutable; cancellation writes a reversal, it never edits the row.
type Voucher struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null;uniqueIndex:uniq_voucher_number" json:"business_id"`
	VoucherType   VoucherType     `gorm:"size:30;not null;index;uniqueIndex:uniq_voucher_number" json:"voucher_type"`
	SeriesPrefix  string          `gorm:"size:30;not null" json:"series_prefix"`
	FiscalYear    string          `gorm:"size:5;not null" json:"fiscal_year"`
	SequenceNo    int64           `gorm:"not null" json:"sequence_no"`
	VoucherNumber string          `gorm:"size:64;not null;uniqueIndex:uniq_voucher_number" json:"voucher_number"`
	VoucherDate   time.Time       `gorm:"not null;index" json:"voucher_date"`
	PartyId       int             `gorm:"index" json:"party_id"`
	InterState    *bool           `gorm:"not null;default:false" json:"inter_state"`
	ApplyRoundOff *bool           `gorm:"not null;default:false" json:"apply_round_off"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	TotalCGST     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_cgst"`
	TotalSGST     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_sgst"`
	TotalIGST     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_igst"`
	RoundOff      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"round_off"`
	NetAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_amount"`
	Status        VoucherStatus   `gorm:"size:20;not null;default:'Confirmed';index" json:"status"`
	RequestId     string          `gorm:"size:64;index" json:"request_id"`
	Narration     string          `gorm:"type:text" json:"narration"`
	Items         []VoucherItem   `gorm:"foreignKey:VoucherId" json:"items"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type VoucherItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	VoucherId       int             `gorm:"index;not null" json:"voucher_id"`
	ItemId          int             `gorm:"index" json:"item_id"`
	ItemName        string          `gorm:"size:100;not null" json:"item_name"`
	HSNCode         string          `gorm:"size:8" json:"hsn_code"`
	Qty             decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	Unit            string          `gorm:"size:20" json:"unit"`
	Rate            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"discount_percent"`
	GstPercent      decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"gst_percent"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	TaxableAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"taxable_amount"`
	CGST            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cgst"`
	SGST            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sgst"`
	IGST            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"igst"`
	LineTotal       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`
	Remark          string          `gorm:"size:255" json:"remark"`
}

func (v *Voucher) GetId() int {
	return v.ID
}
