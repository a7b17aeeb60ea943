package main

import (
	"time"

	"github.com/refergate/refergate/internal/config"
	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/logger"
	"github.com/refergate/refergate/internal/models"

	"github.com/shopspring/decimal"
)

// 演示数据种子：创建默认与高阶活动、商品费率、阶梯费率和示例推广用户
func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 推广活动
	campaigns := []models.Campaign{
		{
			Slug:                 "standard",
			Name:                 "Standard Program",
			CommissionType:       constants.CommissionTypePercentage,
			CommissionValue:      models.NewRateFromInt(20),
			CommissionDuration:   constants.CommissionDurationLifetime,
			PayoutTerm:           constants.PayoutTermNet30,
			CookieDurationDays:   30,
			MinPayoutCents:       5000,
			RefereeDiscountType:  constants.RefereeDiscountPercentage,
			RefereeDiscountValue: models.NewRateFromInt(10),
			IsDefault:            true,
		},
		{
			Slug:               "enterprise",
			Name:               "Enterprise Program",
			CommissionType:     constants.CommissionTypeFixed,
			CommissionValue:    models.NewRateFromDecimal(decimal.NewFromInt(5000)),
			CommissionDuration: constants.CommissionDurationMaxPayments,
			DurationLimit:      12,
			PayoutTerm:         constants.PayoutTermNet60,
			CookieDurationDays: 90,
			MinPayoutCents:     10000,
		},
	}

	campaignIDs := map[string]uint{}
	for _, campaign := range campaigns {
		var existing models.Campaign
		if err := models.DB.Where("slug = ?", campaign.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&campaign).Error; err != nil {
				stdLog.Printf("Failed to create campaign %s: %v", campaign.Slug, err)
				continue
			}
			stdLog.Printf("Created campaign: %s", campaign.Slug)
			campaignIDs[campaign.Slug] = campaign.ID
			continue
		}
		stdLog.Printf("Campaign already exists: %s", existing.Slug)
		campaignIDs[existing.Slug] = existing.ID
	}

	// 商品级费率
	if standardID := campaignIDs["standard"]; standardID != 0 {
		productRates := []models.CampaignProductRate{
			{CampaignID: standardID, ProductID: "plan-pro", RateType: constants.CommissionTypePercentage, RateValue: models.NewRateFromInt(25)},
			{CampaignID: standardID, ProductID: "plan-starter", RateType: constants.CommissionTypeFixed, RateValue: models.NewRateFromInt(300)},
		}
		for _, rate := range productRates {
			var existing models.CampaignProductRate
			if err := models.DB.Where("campaign_id = ? AND product_id = ?", rate.CampaignID, rate.ProductID).First(&existing).Error; err != nil {
				if err := models.DB.Create(&rate).Error; err != nil {
					stdLog.Printf("Failed to create product rate %s: %v", rate.ProductID, err)
					continue
				}
				stdLog.Printf("Created product rate: %s", rate.ProductID)
			}
		}

		// 阶梯费率
		tiers := []models.CampaignTier{
			{CampaignID: standardID, MinReferrals: 10, RateType: constants.CommissionTypePercentage, RateValue: models.NewRateFromInt(25)},
			{CampaignID: standardID, MinReferrals: 50, RateType: constants.CommissionTypePercentage, RateValue: models.NewRateFromInt(30)},
		}
		for _, tier := range tiers {
			var existing models.CampaignTier
			if err := models.DB.Where("campaign_id = ? AND min_referrals = ?", tier.CampaignID, tier.MinReferrals).First(&existing).Error; err != nil {
				if err := models.DB.Create(&tier).Error; err != nil {
					stdLog.Printf("Failed to create tier %d: %v", tier.MinReferrals, err)
					continue
				}
				stdLog.Printf("Created tier: min_referrals=%d", tier.MinReferrals)
			}
		}

		// 示例推广用户
		affiliates := []models.Affiliate{
			{UserID: "demo-user-1", Code: "DEMO0001", CampaignID: standardID, Status: constants.AffiliateStatusApproved, PayoutEmail: "demo1@example.com"},
			{UserID: "demo-user-2", Code: "DEMO0002", CampaignID: standardID, Status: constants.AffiliateStatusPending, PayoutEmail: "demo2@example.com"},
		}
		for _, affiliate := range affiliates {
			var existing models.Affiliate
			if err := models.DB.Where("user_id = ?", affiliate.UserID).First(&existing).Error; err != nil {
				if err := models.DB.Create(&affiliate).Error; err != nil {
					stdLog.Printf("Failed to create affiliate %s: %v", affiliate.UserID, err)
					continue
				}
				stdLog.Printf("Created affiliate: %s (%s)", affiliate.UserID, affiliate.Code)
			}
		}

		// 示例推荐记录
		var approved models.Affiliate
		if err := models.DB.Where("code = ?", "DEMO0001").First(&approved).Error; err == nil {
			var count int64
			models.DB.Model(&models.Referral{}).Where("affiliate_id = ?", approved.ID).Count(&count)
			if count == 0 {
				referral := models.Referral{
					ReferralID:  "seed-referral-1",
					AffiliateID: approved.ID,
					Status:      constants.ReferralStatusClicked,
					LandingPage: "/pricing",
					ClickedAt:   time.Now(),
					ExpiresAt:   time.Now().Add(30 * 24 * time.Hour),
				}
				if err := models.DB.Create(&referral).Error; err != nil {
					stdLog.Printf("Failed to create referral: %v", err)
				} else {
					stdLog.Printf("Created referral: %s", referral.ReferralID)
				}
			}
		}
	}

	stdLog.Printf("Seed completed")
}
