package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/siddhisoft/distbooks_backend/config"
	"bitbucket.org/siddhisoft/distbooks_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LedgerAccount struct {
	ID                int             `gorm:"primary_key" json:"id"`
	BusinessId        string          `gorm:"index;not null" json:"business_id"`
	Name              string          `gorm:"index;size:100;not null" json:"name" binding:"required"`
	GroupName         string          `gorm:"index;size:100" json:"group_name"`
	MainType          AccountMainType `gorm:"type:enum('Asset', 'Liability', 'Equity', 'Income', 'Expense');default:'Expense';index;size:10;not null" json:"main_type" binding:"required"`
	Description       string          `gorm:"type:text" json:"description"`
	IsActive          *bool           `gorm:"not null;default:true" json:"is_active"`
	IsSystemDefault   *bool           `gorm:"not null;default:false" json:"is_system_default"`
	SystemDefaultCode string          `gorm:"index;size:3" json:"system_default_code"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewLedgerAccount struct {
	Name              string          `json:"name" binding:"required"`
	GroupName         string          `json:"group_name"`
	MainType          AccountMainType `json:"main_type" binding:"required"`
	Description       string          `json:"description"`
	SystemDefaultCode string          `json:"system_default_code"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewLedgerAccount) validate(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[LedgerAccount](ctx, businessId, id); err != nil {
			return err
		}
	}
	// name
	if err := utils.ValidateUnique[LedgerAccount](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateLedgerAccount(ctx context.Context, input *NewLedgerAccount) (*LedgerAccount, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	account := LedgerAccount{
		BusinessId:        businessId,
		Name:              input.Name,
		GroupName:         input.GroupName,
		MainType:          input.MainType,
		Description:       input.Description,
		IsActive:          utils.NewTrue(),
		IsSystemDefault:   utils.NewFalse(),
		SystemDefaultCode: input.SystemDefaultCode,
	}
	if input.SystemDefaultCode != "" {
		account.IsSystemDefault = utils.NewTrue()
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	if account.SystemDefaultCode != "" {
		// New system account invalidates the cached code->id map.
		if err := config.RemoveRedisKey("SystemAccounts:" + businessId); err != nil {
			return nil, err
		}
	}
	return &account, nil
}

// GetSystemAccounts returns the business's system-default account map
// (system_default_code -> account id), cached in redis.
func GetSystemAccounts(businessId string) (map[string]int, error) {
	var accounts []*LedgerAccount
	var sysAccounts map[string]int

	exists, err := config.GetRedisObject("SystemAccounts:"+businessId, &sysAccounts)
	if err != nil {
		return nil, err
	}
	if !exists {
		db := config.GetDB()
		businessUuid, err := uuid.Parse(businessId)
		if err != nil {
			return nil, err
		}
		if err := db.Select("id", "system_default_code").Where("business_id = ?", businessUuid).Where("is_system_default = ?", true).Find(&accounts).Error; err != nil {
			return nil, err
		}
		sysAccounts = make(map[string]int)
		for _, acc := range accounts {
			sysAccounts[acc.SystemDefaultCode] = acc.ID
		}
		if err := config.SetRedisObject("SystemAccounts:"+businessId, &sysAccounts, 0); err != nil {
			return nil, err
		}
	}
	return sysAccounts, nil
}

// LookupAccount finds an account by exact (case-insensitive) name first, then
// by group name. A miss returns ErrRecordNotFound rather than a DB error so
// callers can decide whether the leg is optional.
func LookupAccount(tx *gorm.DB, businessId string, name string, groupFallback string) (int, error) {
	var account LedgerAccount
	err := tx.Select("id").
		Where("business_id = ?", businessId).
		Where("is_active = ?", true).
		Where("LOWER(name) = LOWER(?)", name).
		First(&account).Error
	if err == nil {
		return account.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	if groupFallback == "" {
		return 0, ErrRecordNotFound
	}
	err = tx.Select("id").
		Where("business_id = ?", businessId).
		Where("is_active = ?", true).
		Where("LOWER(group_name) = LOWER(?)", groupFallback).
		Order("id").
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrRecordNotFound
		}
		return 0, err
	}
	return account.ID, nil
}
