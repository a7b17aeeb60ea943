package service

import (
	"testing"

	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/models"
)

func TestCampaignCreate(t *testing.T) {
	env := setupServiceTest(t)
	campaigns := NewCampaignService(env.campaignRepo)

	created, err := campaigns.Create(CampaignInput{
		Slug:            "  Launch  ",
		Name:            "Launch",
		CommissionType:  constants.CommissionTypePercentage,
		CommissionValue: models.NewRateFromInt(20),
	})
	if err != nil {
		t.Fatalf("create campaign failed: %v", err)
	}
	if created.Slug != "launch" {
		t.Fatalf("expected normalized slug, got %s", created.Slug)
	}
	if created.CommissionDuration != constants.CommissionDurationLifetime {
		t.Fatalf("expected lifetime default, got %s", created.CommissionDuration)
	}
	if created.PayoutTerm != constants.PayoutTermNet30 {
		t.Fatalf("expected net_30 default, got %s", created.PayoutTerm)
	}
	if created.CookieDurationDays != 30 {
		t.Fatalf("expected 30 day default window, got %d", created.CookieDurationDays)
	}

	if _, err := campaigns.Create(CampaignInput{
		Slug: "launch", Name: "Again",
		CommissionType: constants.CommissionTypePercentage,
	}); err != ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCampaignCreateValidation(t *testing.T) {
	env := setupServiceTest(t)
	campaigns := NewCampaignService(env.campaignRepo)

	cases := []struct {
		name  string
		input CampaignInput
	}{
		{"missing_slug", CampaignInput{Name: "X", CommissionType: constants.CommissionTypePercentage}},
		{"missing_name", CampaignInput{Slug: "x", CommissionType: constants.CommissionTypePercentage}},
		{"bad_commission_type", CampaignInput{Slug: "x", Name: "X", CommissionType: "tiered"}},
		{"bad_duration", CampaignInput{Slug: "x", Name: "X", CommissionType: constants.CommissionTypeFixed, CommissionDuration: "forever"}},
		{"duration_without_limit", CampaignInput{Slug: "x", Name: "X", CommissionType: constants.CommissionTypeFixed, CommissionDuration: constants.CommissionDurationMaxPayments}},
		{"bad_payout_term", CampaignInput{Slug: "x", Name: "X", CommissionType: constants.CommissionTypeFixed, PayoutTerm: "net_45"}},
		{"bad_discount_type", CampaignInput{Slug: "x", Name: "X", CommissionType: constants.CommissionTypeFixed, RefereeDiscountType: "coupon"}},
		{"negative_min_payout", CampaignInput{Slug: "x", Name: "X", CommissionType: constants.CommissionTypeFixed, MinPayoutCents: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := campaigns.Create(tc.input); err != ErrInvalidInput {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCampaignUpdateSlugImmutable(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, nil)
	campaigns := NewCampaignService(env.campaignRepo)

	updated, err := campaigns.Update(campaign.ID, CampaignInput{
		Slug:            "standard",
		Name:            "Renamed",
		CommissionType:  constants.CommissionTypeFixed,
		CommissionValue: models.NewRateFromInt(500),
	})
	if err != nil {
		t.Fatalf("update campaign failed: %v", err)
	}
	if updated.Name != "Renamed" || updated.CommissionType != constants.CommissionTypeFixed {
		t.Fatalf("unexpected campaign %+v", updated)
	}

	if _, err := campaigns.Update(campaign.ID, CampaignInput{
		Slug:           "renamed-slug",
		Name:           "Renamed",
		CommissionType: constants.CommissionTypeFixed,
	}); err != ErrSlugImmutable {
		t.Fatalf("expected ErrSlugImmutable, got %v", err)
	}
	if _, err := campaigns.Update(9999, CampaignInput{Name: "X", CommissionType: constants.CommissionTypeFixed}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCampaignSetDefault(t *testing.T) {
	env := setupServiceTest(t)
	first := env.createCampaign(t, nil)
	second := env.createCampaign(t, func(c *models.Campaign) {
		c.Slug = "secondary"
		c.Name = "Secondary"
		c.IsDefault = false
	})

	campaigns := NewCampaignService(env.campaignRepo)
	if _, err := campaigns.SetDefault(second.ID); err != nil {
		t.Fatalf("set default failed: %v", err)
	}

	def, err := env.campaignRepo.GetDefault()
	if err != nil {
		t.Fatalf("get default failed: %v", err)
	}
	if def == nil || def.ID != second.ID {
		t.Fatalf("expected second campaign default, got %+v", def)
	}

	var reloaded models.Campaign
	if err := env.db.First(&reloaded, first.ID).Error; err != nil {
		t.Fatalf("reload first campaign failed: %v", err)
	}
	if reloaded.IsDefault {
		t.Fatal("expected previous default cleared")
	}
}

func TestCampaignProductRates(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, nil)
	campaigns := NewCampaignService(env.campaignRepo)

	rate, err := campaigns.SetProductRate(campaign.ID, "plan-pro", constants.CommissionTypePercentage, models.NewRateFromInt(25))
	if err != nil {
		t.Fatalf("set product rate failed: %v", err)
	}

	if _, err := campaigns.SetProductRate(campaign.ID, "plan-pro", constants.CommissionTypeFixed, models.NewRateFromInt(100)); err != ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := campaigns.SetProductRate(campaign.ID, " ", constants.CommissionTypeFixed, models.NewRateFromInt(100)); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := campaigns.SetProductRate(9999, "plan-pro", constants.CommissionTypeFixed, models.NewRateFromInt(100)); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rates, err := campaigns.ListProductRates(campaign.ID)
	if err != nil {
		t.Fatalf("list product rates failed: %v", err)
	}
	if len(rates) != 1 {
		t.Fatalf("expected 1 rate, got %d", len(rates))
	}

	if err := campaigns.DeleteProductRate(rate.ID); err != nil {
		t.Fatalf("delete product rate failed: %v", err)
	}
	rates, err = campaigns.ListProductRates(campaign.ID)
	if err != nil {
		t.Fatalf("list product rates failed: %v", err)
	}
	if len(rates) != 0 {
		t.Fatalf("expected no rates after delete, got %d", len(rates))
	}
}

func TestCampaignTiers(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, nil)
	campaigns := NewCampaignService(env.campaignRepo)

	if _, err := campaigns.AddTier(campaign.ID, 10, constants.CommissionTypePercentage, models.NewRateFromInt(25)); err != nil {
		t.Fatalf("add tier failed: %v", err)
	}
	if _, err := campaigns.AddTier(campaign.ID, 50, constants.CommissionTypePercentage, models.NewRateFromInt(30)); err != nil {
		t.Fatalf("add tier failed: %v", err)
	}
	if _, err := campaigns.AddTier(campaign.ID, -1, constants.CommissionTypePercentage, models.NewRateFromInt(10)); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := campaigns.AddTier(campaign.ID, 10, constants.CommissionTypeFixed, models.NewRateFromInt(100)); err != ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists for duplicate threshold, got %v", err)
	}

	tiers, err := campaigns.ListTiers(campaign.ID)
	if err != nil {
		t.Fatalf("list tiers failed: %v", err)
	}
	if len(tiers) != 2 {
		t.Fatalf("expected 2 tiers, got %d", len(tiers))
	}
	// 门槛降序
	if tiers[0].MinReferrals != 50 || tiers[1].MinReferrals != 10 {
		t.Fatalf("expected descending thresholds, got %d then %d", tiers[0].MinReferrals, tiers[1].MinReferrals)
	}
}
