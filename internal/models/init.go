package models

import (
	"errors"

	"gorm.io/gorm"

	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/logger"
)

// InitDefaultCampaign 确保存在一个默认推广活动
// 部署内任意时刻有且只有一个默认活动，注册时未指定活动的推广人挂在它下面
func InitDefaultCampaign() error {
	var existing Campaign
	err := DB.Where("is_default = ?", true).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	campaign := Campaign{
		Slug:               "default",
		Name:               "Default Campaign",
		CommissionType:     constants.CommissionTypePercentage,
		CommissionValue:    NewRateFromInt(20),
		CommissionDuration: constants.CommissionDurationLifetime,
		PayoutTerm:         constants.PayoutTermNet30,
		CookieDurationDays: 30,
		IsDefault:          true,
	}
	if err := DB.Create(&campaign).Error; err != nil {
		return err
	}
	logger.Infow("default_campaign_created", "slug", campaign.Slug, "commission_value", campaign.CommissionValue.String())
	return nil
}
