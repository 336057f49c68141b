package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/siddhisoft/distbooks_backend/config"
	"bitbucket.org/siddhisoft/distbooks_backend/utils"
	"gorm.io/gorm"
)

// Party is a customer or supplier. ControlAccountId points at the ledger
// account carrying the party's receivable/payable balance; when zero the
// posting engine falls back to the business's Sundry Debtors/Creditors
// system account.
type Party struct {
	ID               int       `gorm:"primary_key" json:"id"`
	BusinessId       string    `gorm:"index;not null" json:"business_id"`
	Name             string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	PartyType        PartyType `gorm:"type:enum('Customer', 'Supplier');index;size:10;not null" json:"party_type" binding:"required"`
	GSTIN            string    `gorm:"size:15" json:"gstin"`
	StateCode        string    `gorm:"size:2" json:"state_code"`
	Address          string    `gorm:"type:text" json:"address"`
	ControlAccountId int       `gorm:"index" json:"control_account_id"`
	IsActive         *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetPartyById(tx *gorm.DB, businessId string, id int) (*Party, error) {
	var party Party
	err := tx.Where("business_id = ?", businessId).Where("id = ?", id).First(&party).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &party, nil
}

type NewParty struct {
	Name             string    `json:"name" binding:"required"`
	PartyType        PartyType `json:"party_type" binding:"required"`
	GSTIN            string    `json:"gstin" binding:"omitempty,gstin"`
	StateCode        string    `json:"state_code" binding:"omitempty,len=2"`
	Address          string    `json:"address"`
	ControlAccountId int       `json:"control_account_id"`
}

func CreateParty(ctx context.Context, input *NewParty) (*Party, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := utils.ValidateUnique[Party](ctx, businessId, "name", input.Name, 0); err != nil {
		return nil, err
	}
	if input.ControlAccountId > 0 {
		if err := utils.ValidateResourceId[LedgerAccount](ctx, businessId, input.ControlAccountId); err != nil {
			return nil, errors.New("control account not found")
		}
	}
	party := Party{
		BusinessId:       businessId,
		Name:             input.Name,
		PartyType:        input.PartyType,
		GSTIN:            input.GSTIN,
		StateCode:        input.StateCode,
		Address:          input.Address,
		ControlAccountId: input.ControlAccountId,
		IsActive:         utils.NewTrue(),
	}
	if err := config.GetDB().WithContext(ctx).Create(&party).Error; err != nil {
		return nil, err
	}
	return &party, nil
}
