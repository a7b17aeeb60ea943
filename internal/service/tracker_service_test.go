package service

import (
	"testing"
	"time"

	"github.com/refergate/refergate/internal/config"
	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/models"
)

func TestTrackClickCreatesReferral(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, func(c *models.Campaign) {
		c.CookieDurationDays = 10
	})
	affiliate := env.createAffiliate(t, campaign.ID, "user-1", "TRACK001", constants.AffiliateStatusApproved)

	tracker := env.newTracker(nil)
	referralID, err := tracker.TrackClick(TrackClickInput{
		Code:        "track001",
		LandingPage: "/pricing",
		ClientIP:    "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("track click failed: %v", err)
	}
	if referralID == "" {
		t.Fatal("expected referral id")
	}

	var referral models.Referral
	if err := env.db.Where("referral_id = ?", referralID).First(&referral).Error; err != nil {
		t.Fatalf("load referral failed: %v", err)
	}
	if referral.Status != constants.ReferralStatusClicked {
		t.Fatalf("unexpected status %s", referral.Status)
	}
	if referral.AffiliateID != affiliate.ID {
		t.Fatalf("unexpected affiliate %d", referral.AffiliateID)
	}
	if referral.LandingPage != "/pricing" || referral.ClientIP != "10.0.0.1" {
		t.Fatalf("unexpected referral fields: %+v", referral)
	}
	window := referral.ExpiresAt.Sub(referral.ClickedAt)
	if window != 10*24*time.Hour {
		t.Fatalf("expected 10 day window, got %v", window)
	}

	if got := env.reloadAffiliate(t, affiliate.ID).Clicks; got != 1 {
		t.Fatalf("expected 1 click, got %d", got)
	}
	if got := env.countAnalytics(t, constants.AnalyticsEventClick); got != 1 {
		t.Fatalf("expected 1 click event, got %d", got)
	}
}

func TestTrackClickDropsUnknownCode(t *testing.T) {
	env := setupServiceTest(t)
	tracker := env.newTracker(nil)
	referralID, err := tracker.TrackClick(TrackClickInput{Code: "NOPE1234", ClientIP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("track click failed: %v", err)
	}
	if referralID != "" {
		t.Fatalf("expected empty referral id, got %s", referralID)
	}
}

func TestTrackClickDropsUnapprovedAffiliate(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, nil)
	env.createAffiliate(t, campaign.ID, "user-1", "PEND0001", constants.AffiliateStatusPending)

	tracker := env.newTracker(nil)
	referralID, err := tracker.TrackClick(TrackClickInput{Code: "PEND0001", ClientIP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("track click failed: %v", err)
	}
	if referralID != "" {
		t.Fatalf("expected empty referral id, got %s", referralID)
	}
	if got := env.countAnalytics(t, constants.AnalyticsEventClick); got != 0 {
		t.Fatalf("expected no click events, got %d", got)
	}
}

func TestTrackClickRateLimitedByIP(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, nil)
	env.createAffiliate(t, campaign.ID, "user-1", "LIMIT001", constants.AffiliateStatusApproved)

	tracker := env.newTracker(&config.SecurityConfig{
		ClickRateLimit: config.ClickRateLimitConfig{WindowSeconds: 60, MaxClicks: 1},
	})
	first, err := tracker.TrackClick(TrackClickInput{Code: "LIMIT001", ClientIP: "10.0.0.9"})
	if err != nil {
		t.Fatalf("first click failed: %v", err)
	}
	if first == "" {
		t.Fatal("expected first click tracked")
	}
	second, err := tracker.TrackClick(TrackClickInput{Code: "LIMIT001", ClientIP: "10.0.0.9"})
	if err != nil {
		t.Fatalf("second click failed: %v", err)
	}
	if second != "" {
		t.Fatal("expected second click dropped")
	}

	other, err := tracker.TrackClick(TrackClickInput{Code: "LIMIT001", ClientIP: "10.0.0.10"})
	if err != nil {
		t.Fatalf("other ip click failed: %v", err)
	}
	if other == "" {
		t.Fatal("expected click from other ip tracked")
	}
}

func TestExpireReferralsSweepsStaleClicks(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, nil)
	affiliate := env.createAffiliate(t, campaign.ID, "user-1", "EXPR0001", constants.AffiliateStatusApproved)

	stale := env.createReferral(t, affiliate.ID, func(ref *models.Referral) {
		ref.ExpiresAt = time.Now().Add(-time.Hour)
	})
	fresh := env.createReferral(t, affiliate.ID, nil)

	tracker := env.newTracker(nil)
	expired, err := tracker.ExpireReferrals(time.Now())
	if err != nil {
		t.Fatalf("expire sweep failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired, got %d", expired)
	}
	if got := env.reloadReferral(t, stale.ID).Status; got != constants.ReferralStatusExpired {
		t.Fatalf("expected stale referral expired, got %s", got)
	}
	if got := env.reloadReferral(t, fresh.ID).Status; got != constants.ReferralStatusClicked {
		t.Fatalf("expected fresh referral untouched, got %s", got)
	}
}

func TestValidateCode(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, nil)
	env.createAffiliate(t, campaign.ID, "user-1", "VALID001", constants.AffiliateStatusApproved)
	env.createAffiliate(t, campaign.ID, "user-2", "SUSP0001", constants.AffiliateStatusSuspended)

	tracker := env.newTracker(nil)
	cases := []struct {
		code string
		want bool
	}{
		{"VALID001", true},
		{"valid001", true},
		{" VALID001 ", true},
		{"SUSP0001", false},
		{"MISSING1", false},
		{"", false},
	}
	for _, tc := range cases {
		ok, err := tracker.ValidateCode(tc.code)
		if err != nil {
			t.Fatalf("validate %q failed: %v", tc.code, err)
		}
		if ok != tc.want {
			t.Fatalf("validate %q: expected %v, got %v", tc.code, tc.want, ok)
		}
	}
}

func TestGetRefereeDiscountByReferralID(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, func(c *models.Campaign) {
		c.RefereeDiscountType = constants.RefereeDiscountPercentage
		c.RefereeDiscountValue = models.NewRateFromInt(10)
	})
	affiliate := env.createAffiliate(t, campaign.ID, "user-1", "DISC0001", constants.AffiliateStatusApproved)

	valid := env.createReferral(t, affiliate.ID, nil)
	expired := env.createReferral(t, affiliate.ID, func(ref *models.Referral) {
		ref.ExpiresAt = time.Now().Add(-time.Hour)
	})

	tracker := env.newTracker(nil)
	discount, err := tracker.GetRefereeDiscountByReferralID(valid.ReferralID)
	if err != nil {
		t.Fatalf("get discount failed: %v", err)
	}
	if discount == nil {
		t.Fatal("expected discount for valid referral")
	}
	if discount.Type != constants.RefereeDiscountPercentage || discount.Value.String() != "10.00" {
		t.Fatalf("unexpected discount %+v", discount)
	}

	discount, err = tracker.GetRefereeDiscountByReferralID(expired.ReferralID)
	if err != nil {
		t.Fatalf("get discount failed: %v", err)
	}
	if discount != nil {
		t.Fatal("expected no discount outside attribution window")
	}

	discount, err = tracker.GetRefereeDiscountByReferralID("missing")
	if err != nil {
		t.Fatalf("get discount failed: %v", err)
	}
	if discount != nil {
		t.Fatal("expected no discount for unknown referral")
	}
}

func TestGetRefereeDiscountByCode(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, func(c *models.Campaign) {
		c.RefereeDiscountType = constants.RefereeDiscountFixed
		c.RefereeDiscountValue = models.NewRateFromInt(500)
	})
	env.createAffiliate(t, campaign.ID, "user-1", "CODE0001", constants.AffiliateStatusApproved)
	env.createAffiliate(t, campaign.ID, "user-2", "CODE0002", constants.AffiliateStatusPending)

	tracker := env.newTracker(nil)
	discount, err := tracker.GetRefereeDiscountByCode("CODE0001")
	if err != nil {
		t.Fatalf("get discount failed: %v", err)
	}
	if discount == nil || discount.Type != constants.RefereeDiscountFixed {
		t.Fatalf("unexpected discount %+v", discount)
	}

	discount, err = tracker.GetRefereeDiscountByCode("CODE0002")
	if err != nil {
		t.Fatalf("get discount failed: %v", err)
	}
	if discount != nil {
		t.Fatal("expected no discount for pending affiliate")
	}
}
