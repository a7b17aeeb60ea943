package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/refergate/refergate/internal/config"
	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/models"
	"github.com/refergate/refergate/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type serviceTestEnv struct {
	db             *gorm.DB
	referralRepo   repository.ReferralRepository
	affiliateRepo  repository.AffiliateRepository
	campaignRepo   repository.CampaignRepository
	commissionRepo repository.CommissionRepository
	payoutRepo     repository.PayoutRepository
	analyticsRepo  repository.AnalyticsRepository
	hookRepo       repository.HookEventRepository
	hookService    *HookService
}

func setupServiceTest(t *testing.T) *serviceTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Campaign{},
		&models.CampaignProductRate{},
		&models.CampaignTier{},
		&models.Affiliate{},
		&models.Referral{},
		&models.Commission{},
		&models.Payout{},
		&models.AnalyticsEvent{},
		&models.HookEvent{},
	); err != nil {
		t.Fatalf("migrate models failed: %v", err)
	}
	env := &serviceTestEnv{
		db:             db,
		referralRepo:   repository.NewReferralRepository(db),
		affiliateRepo:  repository.NewAffiliateRepository(db),
		campaignRepo:   repository.NewCampaignRepository(db),
		commissionRepo: repository.NewCommissionRepository(db),
		payoutRepo:     repository.NewPayoutRepository(db),
		analyticsRepo:  repository.NewAnalyticsRepository(db),
		hookRepo:       repository.NewHookEventRepository(db),
	}
	env.hookService = NewHookService(env.hookRepo, nil, nil)
	return env
}

func (e *serviceTestEnv) newTracker(cfg *config.SecurityConfig) *TrackerService {
	return NewTrackerService(e.referralRepo, e.affiliateRepo, e.campaignRepo, e.analyticsRepo, cfg)
}

func (e *serviceTestEnv) newAttribution() *AttributionService {
	return NewAttributionService(e.referralRepo, e.affiliateRepo, e.campaignRepo, e.analyticsRepo)
}

func (e *serviceTestEnv) newLedger() *LedgerService {
	return NewLedgerService(e.commissionRepo, e.affiliateRepo, e.analyticsRepo, e.hookService, NewRateResolver(e.campaignRepo))
}

func (e *serviceTestEnv) newPayout() *PayoutService {
	return NewPayoutService(e.payoutRepo, e.commissionRepo, e.affiliateRepo, e.campaignRepo, e.analyticsRepo, e.hookService, e.newLedger())
}

func (e *serviceTestEnv) newWebhook() *WebhookService {
	return NewWebhookService(e.referralRepo, e.affiliateRepo, e.campaignRepo, e.commissionRepo, e.newAttribution(), e.newLedger())
}

func (e *serviceTestEnv) createCampaign(t *testing.T, mutate func(c *models.Campaign)) *models.Campaign {
	t.Helper()
	campaign := &models.Campaign{
		Slug:               "standard",
		Name:               "Standard",
		CommissionType:     constants.CommissionTypePercentage,
		CommissionValue:    models.NewRateFromInt(20),
		CommissionDuration: constants.CommissionDurationLifetime,
		PayoutTerm:         constants.PayoutTermNet30,
		CookieDurationDays: 30,
		IsDefault:          true,
	}
	if mutate != nil {
		mutate(campaign)
	}
	if err := e.db.Create(campaign).Error; err != nil {
		t.Fatalf("create campaign failed: %v", err)
	}
	return campaign
}

func (e *serviceTestEnv) createAffiliate(t *testing.T, campaignID uint, userID, code, status string) *models.Affiliate {
	t.Helper()
	affiliate := &models.Affiliate{
		UserID:     userID,
		Code:       code,
		CampaignID: campaignID,
		Status:     status,
	}
	if err := e.db.Create(affiliate).Error; err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	return affiliate
}

func (e *serviceTestEnv) createReferral(t *testing.T, affiliateID uint, mutate func(ref *models.Referral)) *models.Referral {
	t.Helper()
	now := time.Now()
	referral := &models.Referral{
		ReferralID:  fmt.Sprintf("ref-%d-%d", affiliateID, now.UnixNano()),
		AffiliateID: affiliateID,
		Status:      constants.ReferralStatusClicked,
		ClickedAt:   now,
		ExpiresAt:   now.Add(30 * 24 * time.Hour),
	}
	if mutate != nil {
		mutate(referral)
	}
	if err := e.db.Create(referral).Error; err != nil {
		t.Fatalf("create referral failed: %v", err)
	}
	return referral
}

func (e *serviceTestEnv) reloadAffiliate(t *testing.T, id uint) *models.Affiliate {
	t.Helper()
	var affiliate models.Affiliate
	if err := e.db.First(&affiliate, id).Error; err != nil {
		t.Fatalf("reload affiliate %d failed: %v", id, err)
	}
	return &affiliate
}

func (e *serviceTestEnv) reloadReferral(t *testing.T, id uint) *models.Referral {
	t.Helper()
	var referral models.Referral
	if err := e.db.First(&referral, id).Error; err != nil {
		t.Fatalf("reload referral %d failed: %v", id, err)
	}
	return &referral
}

func (e *serviceTestEnv) reloadCommission(t *testing.T, id uint) *models.Commission {
	t.Helper()
	var commission models.Commission
	if err := e.db.First(&commission, id).Error; err != nil {
		t.Fatalf("reload commission %d failed: %v", id, err)
	}
	return &commission
}

func (e *serviceTestEnv) countAnalytics(t *testing.T, eventType string) int64 {
	t.Helper()
	var count int64
	if err := e.db.Model(&models.AnalyticsEvent{}).Where("event_type = ?", eventType).Count(&count).Error; err != nil {
		t.Fatalf("count analytics events failed: %v", err)
	}
	return count
}

func (e *serviceTestEnv) countHooks(t *testing.T, hook string) int64 {
	t.Helper()
	var count int64
	if err := e.db.Model(&models.HookEvent{}).Where("hook = ?", hook).Count(&count).Error; err != nil {
		t.Fatalf("count hook events failed: %v", err)
	}
	return count
}
