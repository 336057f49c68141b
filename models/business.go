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

type Business struct {
	ID        uuid.UUID `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	GSTIN     string    `gorm:"size:15" json:"gstin"`
	StateCode string    `gorm:"size:2;not null" json:"state_code"`
	Address   string    `gorm:"type:text" json:"address"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetBusinessById(tx *gorm.DB, businessId string) (*Business, error) {
	businessUuid, err := uuid.Parse(businessId)
	if err != nil {
		return nil, err
	}
	var business Business
	err = tx.Where("id = ?", businessUuid).First(&business).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &business, nil
}

func GetBusinessFromContext(ctx context.Context) (*Business, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return GetBusinessById(config.GetDB().WithContext(ctx), businessId)
}
