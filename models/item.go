package models

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/siddhisoft/distbooks_backend/config"
	"bitbucket.org/siddhisoft/distbooks_backend/utils"
)

type Item struct {
	ID           int             `gorm:"primary_key" json:"id"`
	BusinessId   string          `gorm:"index;not null" json:"business_id"`
	Name         string          `gorm:"index;size:100;not null" json:"name" binding:"required"`
	HSNCode      string          `gorm:"index;size:8" json:"hsn_code"`
	Unit         string          `gorm:"size:20" json:"unit"`
	GstRate      decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"gst_rate"`
	SalesRate    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sales_rate"`
	PurchaseRate decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"purchase_rate"`
	IsActive     *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetItemById(tx *gorm.DB, businessId string, id int) (*Item, error) {
	var item Item
	err := tx.Where("business_id = ?", businessId).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &item, nil
}

type NewItem struct {
	Name         string          `json:"name" binding:"required"`
	HSNCode      string          `json:"hsn_code" binding:"omitempty,min=4,max=8,numeric"`
	Unit         string          `json:"unit"`
	GstRate      decimal.Decimal `json:"gst_rate"`
	SalesRate    decimal.Decimal `json:"sales_rate"`
	PurchaseRate decimal.Decimal `json:"purchase_rate"`
}

func CreateItem(ctx context.Context, input *NewItem) (*Item, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := utils.ValidateUnique[Item](ctx, businessId, "name", input.Name, 0); err != nil {
		return nil, err
	}
	item := Item{
		BusinessId:   businessId,
		Name:         input.Name,
		HSNCode:      input.HSNCode,
		Unit:         input.Unit,
		GstRate:      input.GstRate,
		SalesRate:    input.SalesRate,
		PurchaseRate: input.PurchaseRate,
		IsActive:     utils.NewTrue(),
	}
	if err := config.GetDB().WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// DefaultGstRate is the HSN/SAC tax-rate reference: the GST rate to apply when
// a line does not carry one. A rate present on the line stays authoritative.
func DefaultGstRate(tx *gorm.DB, businessId string, hsnCode string) (decimal.Decimal, bool, error) {
	if hsnCode == "" {
		return decimal.Zero, false, nil
	}
	var item Item
	err := tx.Select("gst_rate").
		Where("business_id = ?", businessId).
		Where("hsn_code = ?", hsnCode).
		Order("id").
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	return item.GstRate, true, nil
}
