package service

import (
	"testing"
	"time"

	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/models"
)

func TestResolvePriorityOrder(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, nil)
	if err := env.db.Create(&models.CampaignProductRate{
		CampaignID: campaign.ID,
		ProductID:  "plan-pro",
		RateType:   constants.CommissionTypePercentage,
		RateValue:  models.NewRateFromInt(25),
	}).Error; err != nil {
		t.Fatalf("create product rate failed: %v", err)
	}
	if err := env.db.Create(&models.CampaignTier{
		CampaignID:   campaign.ID,
		MinReferrals: 10,
		RateType:     constants.CommissionTypePercentage,
		RateValue:    models.NewRateFromInt(30),
	}).Error; err != nil {
		t.Fatalf("create tier failed: %v", err)
	}

	resolver := NewRateResolver(env.campaignRepo)
	affiliate := &models.Affiliate{
		ID:             1,
		CustomRateType: constants.CommissionTypeFixed,
		CustomRate:     models.NewRateFromInt(500),
		Conversions:    20,
	}

	rate, err := resolver.Resolve(affiliate, campaign, "plan-pro")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if rate.Source != RateSourceCustomOverride {
		t.Fatalf("expected custom override, got %s", rate.Source)
	}
	if rate.Type != constants.CommissionTypeFixed {
		t.Fatalf("unexpected rate type %s", rate.Type)
	}

	affiliate.CustomRateType = ""
	rate, err = resolver.Resolve(affiliate, campaign, "plan-pro")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if rate.Source != RateSourceProductRate {
		t.Fatalf("expected product rate, got %s", rate.Source)
	}
	if got := rate.Value.String(); got != "25.00" {
		t.Fatalf("unexpected product rate value %s", got)
	}

	rate, err = resolver.Resolve(affiliate, campaign, "plan-other")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if rate.Source != RateSourceTier {
		t.Fatalf("expected tier rate, got %s", rate.Source)
	}

	affiliate.Conversions = 3
	rate, err = resolver.Resolve(affiliate, campaign, "plan-other")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if rate.Source != RateSourceCampaignDefault {
		t.Fatalf("expected campaign default, got %s", rate.Source)
	}
	if got := rate.Value.String(); got != "20.00" {
		t.Fatalf("unexpected default rate value %s", got)
	}
}

func TestResolvePicksHighestMatchedTier(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, nil)
	tiers := []models.CampaignTier{
		{CampaignID: campaign.ID, MinReferrals: 10, RateType: constants.CommissionTypePercentage, RateValue: models.NewRateFromInt(25)},
		{CampaignID: campaign.ID, MinReferrals: 50, RateType: constants.CommissionTypePercentage, RateValue: models.NewRateFromInt(30)},
	}
	for i := range tiers {
		if err := env.db.Create(&tiers[i]).Error; err != nil {
			t.Fatalf("create tier failed: %v", err)
		}
	}

	resolver := NewRateResolver(env.campaignRepo)
	affiliate := &models.Affiliate{ID: 1, Conversions: 60}
	rate, err := resolver.Resolve(affiliate, campaign, "")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if rate.Source != RateSourceTier {
		t.Fatalf("expected tier rate, got %s", rate.Source)
	}
	if got := rate.Value.String(); got != "30.00" {
		t.Fatalf("expected highest tier rate, got %s", got)
	}

	affiliate.Conversions = 12
	rate, err = resolver.Resolve(affiliate, campaign, "")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got := rate.Value.String(); got != "25.00" {
		t.Fatalf("expected first tier rate, got %s", got)
	}
}

func TestResolveRejectsNilInput(t *testing.T) {
	resolver := NewRateResolver(nil)
	if _, err := resolver.Resolve(nil, &models.Campaign{}, ""); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := resolver.Resolve(&models.Affiliate{}, nil, ""); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCommissionAmountCents(t *testing.T) {
	cases := []struct {
		name      string
		rateType  string
		rateValue int64
		saleCents int64
		want      int64
	}{
		{"percentage", constants.CommissionTypePercentage, 20, 10000, 2000},
		{"percentage_rounds", constants.CommissionTypePercentage, 33, 100, 33},
		{"fixed_ignores_sale", constants.CommissionTypeFixed, 500, 99, 500},
		{"negative_clamped", constants.CommissionTypeFixed, -100, 10000, 0},
		{"zero_sale", constants.CommissionTypePercentage, 20, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rate := ResolvedRate{Type: tc.rateType, Value: models.NewRateFromInt(tc.rateValue)}
			if got := rate.CommissionAmountCents(tc.saleCents); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestPayoutTermDelay(t *testing.T) {
	cases := []struct {
		term string
		want time.Duration
	}{
		{constants.PayoutTermNet0, 0},
		{constants.PayoutTermNet15, 15 * 24 * time.Hour},
		{constants.PayoutTermNet30, 30 * 24 * time.Hour},
		{constants.PayoutTermNet60, 60 * 24 * time.Hour},
		{constants.PayoutTermNet90, 90 * 24 * time.Hour},
		{"", 30 * 24 * time.Hour},
		{"unknown", 30 * 24 * time.Hour},
	}
	for _, tc := range cases {
		if got := payoutTermDelay(tc.term); got != tc.want {
			t.Fatalf("term %q: expected %v, got %v", tc.term, tc.want, got)
		}
	}
}
