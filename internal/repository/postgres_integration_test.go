//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.AnalyticsEvent{},
		&models.Commission{},
		&models.Payout{},
		&models.Referral{},
		&models.Affiliate{},
		&models.CampaignTier{},
		&models.CampaignProductRate{},
		&models.Campaign{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(
		&models.Campaign{},
		&models.CampaignProductRate{},
		&models.CampaignTier{},
		&models.Affiliate{},
		&models.Referral{},
		&models.Commission{},
		&models.Payout{},
		&models.AnalyticsEvent{},
	); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresAffiliateStatsDeltaClamp(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewAffiliateRepository(db)

	affiliate := &models.Affiliate{
		UserID:       "pg-user-1",
		Code:         "PGCODE01",
		CampaignID:   1,
		Status:       constants.AffiliateStatusApproved,
		PendingCents: 500,
	}
	if err := repo.Create(affiliate); err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}

	// 负向修正超出余额时按 GREATEST 钳制到 0
	if err := repo.ApplyStatsDelta(affiliate.ID, map[string]int64{
		"pending_cents": -900,
		"paid_cents":    900,
	}); err != nil {
		t.Fatalf("apply stats delta failed: %v", err)
	}

	reloaded, err := repo.GetByID(affiliate.ID)
	if err != nil {
		t.Fatalf("reload affiliate failed: %v", err)
	}
	if reloaded.PendingCents != 0 {
		t.Fatalf("pending cents want 0 got %d", reloaded.PendingCents)
	}
	if reloaded.PaidCents != 900 {
		t.Fatalf("paid cents want 900 got %d", reloaded.PaidCents)
	}
}

func TestPostgresReferralExpireSweep(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewReferralRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	stale := &models.Referral{
		ReferralID:  "pg-ref-stale",
		AffiliateID: 1,
		Status:      constants.ReferralStatusClicked,
		ClickedAt:   now.Add(-48 * time.Hour),
		ExpiresAt:   now.Add(-time.Hour),
	}
	fresh := &models.Referral{
		ReferralID:  "pg-ref-fresh",
		AffiliateID: 1,
		Status:      constants.ReferralStatusClicked,
		ClickedAt:   now,
		ExpiresAt:   now.Add(24 * time.Hour),
	}
	for _, referral := range []*models.Referral{stale, fresh} {
		if err := repo.Create(referral); err != nil {
			t.Fatalf("create referral failed: %v", err)
		}
	}

	expired, err := repo.ExpireClicked(now)
	if err != nil {
		t.Fatalf("expire clicked failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired count want 1 got %d", expired)
	}

	reloaded, err := repo.GetByReferralID("pg-ref-stale")
	if err != nil {
		t.Fatalf("reload stale referral failed: %v", err)
	}
	if reloaded.Status != constants.ReferralStatusExpired {
		t.Fatalf("stale referral status want expired got %s", reloaded.Status)
	}
}

func TestPostgresDashboardQueries(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewDashboardRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	affiliate := &models.Affiliate{
		UserID:     "pg-user-1",
		Code:       "PGCODE01",
		CampaignID: 1,
		Status:     constants.AffiliateStatusApproved,
	}
	if err := db.Create(affiliate).Error; err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}

	events := []models.AnalyticsEvent{
		{EventType: constants.AnalyticsEventClick, AffiliateID: affiliate.ID, CreatedAt: now},
		{EventType: constants.AnalyticsEventConversion, AffiliateID: affiliate.ID, AmountCents: 12000, CreatedAt: now},
	}
	for i := range events {
		if err := db.Create(&events[i]).Error; err != nil {
			t.Fatalf("create analytics event failed: %v", err)
		}
	}

	commission := &models.Commission{
		AffiliateID:           affiliate.ID,
		ReferralID:            1,
		CustomerID:            "pg-cus-1",
		EventID:               "pg-evt-1",
		SaleAmountCents:       12000,
		CommissionAmountCents: 2400,
		RateType:              constants.CommissionTypePercentage,
		Status:                constants.CommissionStatusPending,
		DueAt:                 now,
		CreatedAt:             now,
	}
	if err := db.Create(commission).Error; err != nil {
		t.Fatalf("create commission failed: %v", err)
	}

	startAt := now.Add(-time.Hour)
	endAt := now.Add(time.Hour)

	overview, err := repo.GetOverview(startAt, endAt)
	if err != nil {
		t.Fatalf("get overview failed: %v", err)
	}
	if overview.Clicks != 1 || overview.Conversions != 1 {
		t.Fatalf("overview funnel want 1/1 got %d/%d", overview.Clicks, overview.Conversions)
	}
	if overview.RevenueCents != 12000 {
		t.Fatalf("overview revenue want 12000 got %d", overview.RevenueCents)
	}

	trends, err := repo.GetEventTrends(startAt, endAt)
	if err != nil {
		t.Fatalf("get event trends failed: %v", err)
	}
	if len(trends) == 0 {
		t.Fatalf("event trends should not be empty")
	}
	if strings.TrimSpace(trends[0].Day) == "" {
		t.Fatalf("event trend day should not be empty")
	}

	rankings, err := repo.GetTopAffiliates(startAt, endAt, 5)
	if err != nil {
		t.Fatalf("get top affiliates failed: %v", err)
	}
	if len(rankings) != 1 || rankings[0].Code != "PGCODE01" {
		t.Fatalf("rankings want single PGCODE01 got %+v", rankings)
	}
}
