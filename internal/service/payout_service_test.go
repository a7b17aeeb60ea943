package service

import (
	"fmt"
	"testing"

	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/models"
)

// seedApprovedCommissions 走完整账本路径生成到期可结算的佣金
func seedApprovedCommissions(t *testing.T, env *serviceTestEnv, affiliate *models.Affiliate, campaign *models.Campaign, saleCents []int64) []uint {
	t.Helper()
	ledger := env.newLedger()
	referral := env.createReferral(t, affiliate.ID, nil)
	ids := make([]uint, 0, len(saleCents))
	for i, cents := range saleCents {
		commission, err := ledger.CreateCommission(CreateCommissionInput{
			Affiliate: affiliate, Campaign: campaign, Referral: referral,
			EventID:         fmt.Sprintf("evt_%d_%d", affiliate.ID, i),
			SaleAmountCents: cents,
		})
		if err != nil {
			t.Fatalf("create commission failed: %v", err)
		}
		if commission == nil {
			t.Fatal("expected commission")
		}
		if _, err := ledger.Approve(commission.ID); err != nil {
			t.Fatalf("approve commission failed: %v", err)
		}
		ids = append(ids, commission.ID)
	}
	return ids
}

func TestGetDueCommissions(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, func(c *models.Campaign) {
		c.PayoutTerm = constants.PayoutTermNet0
	})
	affiliate := env.createAffiliate(t, campaign.ID, "user-1", "DUEC0001", constants.AffiliateStatusApproved)
	ids := seedApprovedCommissions(t, env, affiliate, campaign, []int64{10000, 5000})

	// pending 状态的佣金不计入到期
	ledger := env.newLedger()
	referral := env.createReferral(t, affiliate.ID, nil)
	if _, err := ledger.CreateCommission(CreateCommissionInput{
		Affiliate: affiliate, Campaign: campaign, Referral: referral,
		EventID: "evt_pending", SaleAmountCents: 1000,
	}); err != nil {
		t.Fatalf("create pending commission failed: %v", err)
	}

	payouts := env.newPayout()
	due, err := payouts.GetDueCommissions(affiliate.ID)
	if err != nil {
		t.Fatalf("get due commissions failed: %v", err)
	}
	if len(due) != len(ids) {
		t.Fatalf("expected %d due commissions, got %d", len(ids), len(due))
	}
}

func TestCreatePayout(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, func(c *models.Campaign) {
		c.PayoutTerm = constants.PayoutTermNet0
		c.MinPayoutCents = 1000
	})
	affiliate := env.createAffiliate(t, campaign.ID, "user-1", "PAYT0001", constants.AffiliateStatusApproved)
	ids := seedApprovedCommissions(t, env, affiliate, campaign, []int64{10000, 5000})

	payouts := env.newPayout()
	payout, err := payouts.CreatePayout(affiliate.ID, nil)
	if err != nil {
		t.Fatalf("create payout failed: %v", err)
	}
	if payout.AmountCents != 3000 {
		t.Fatalf("expected 3000 cents, got %d", payout.AmountCents)
	}
	if payout.CommissionsCount != 2 {
		t.Fatalf("expected 2 commissions, got %d", payout.CommissionsCount)
	}
	if payout.Status != constants.PayoutStatusPending {
		t.Fatalf("unexpected status %s", payout.Status)
	}

	for _, id := range ids {
		commission := env.reloadCommission(t, id)
		if commission.Status != constants.CommissionStatusProcessing {
			t.Fatalf("expected commission %d processing, got %s", id, commission.Status)
		}
		if commission.PayoutID == nil || *commission.PayoutID != payout.ID {
			t.Fatalf("expected commission %d bound to payout", id)
		}
	}

	// 已组单的佣金不能再组
	if _, err := payouts.CreatePayout(affiliate.ID, ids); err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestCreatePayoutMinNotMet(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, func(c *models.Campaign) {
		c.PayoutTerm = constants.PayoutTermNet0
		c.MinPayoutCents = 5000
	})
	affiliate := env.createAffiliate(t, campaign.ID, "user-1", "PAYT0002", constants.AffiliateStatusApproved)
	seedApprovedCommissions(t, env, affiliate, campaign, []int64{10000})

	payouts := env.newPayout()
	if _, err := payouts.CreatePayout(affiliate.ID, nil); err != ErrMinPayoutNotMet {
		t.Fatalf("expected ErrMinPayoutNotMet, got %v", err)
	}
}

func TestCreatePayoutChecksOwnership(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, func(c *models.Campaign) {
		c.PayoutTerm = constants.PayoutTermNet0
	})
	owner := env.createAffiliate(t, campaign.ID, "user-1", "OWNR0001", constants.AffiliateStatusApproved)
	other := env.createAffiliate(t, campaign.ID, "user-2", "OWNR0002", constants.AffiliateStatusApproved)
	ids := seedApprovedCommissions(t, env, owner, campaign, []int64{10000})

	payouts := env.newPayout()
	if _, err := payouts.CreatePayout(other.ID, ids); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := payouts.CreatePayout(9999, nil); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing affiliate, got %v", err)
	}
	if _, err := payouts.CreatePayout(other.ID, nil); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for empty due set, got %v", err)
	}
}

func TestCompletePayout(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, func(c *models.Campaign) {
		c.PayoutTerm = constants.PayoutTermNet0
	})
	affiliate := env.createAffiliate(t, campaign.ID, "user-1", "COMP0001", constants.AffiliateStatusApproved)
	ids := seedApprovedCommissions(t, env, affiliate, campaign, []int64{10000, 5000})

	payouts := env.newPayout()
	payout, err := payouts.CreatePayout(affiliate.ID, nil)
	if err != nil {
		t.Fatalf("create payout failed: %v", err)
	}

	completed, err := payouts.CompletePayout(payout.ID)
	if err != nil {
		t.Fatalf("complete payout failed: %v", err)
	}
	if completed.Status != constants.PayoutStatusCompleted {
		t.Fatalf("unexpected status %s", completed.Status)
	}
	if completed.CompletedAt == nil {
		t.Fatal("expected completed_at set")
	}

	for _, id := range ids {
		if got := env.reloadCommission(t, id).Status; got != constants.CommissionStatusPaid {
			t.Fatalf("expected commission %d paid, got %s", id, got)
		}
	}
	stats := env.reloadAffiliate(t, affiliate.ID)
	if stats.PendingCents != 0 || stats.PaidCents != 3000 {
		t.Fatalf("unexpected stats: pending=%d paid=%d", stats.PendingCents, stats.PaidCents)
	}
	if got := env.countAnalytics(t, constants.AnalyticsEventPayout); got != 1 {
		t.Fatalf("expected 1 payout event, got %d", got)
	}
	if got := env.countHooks(t, constants.HookPayoutCompleted); got != 1 {
		t.Fatalf("expected 1 payout hook, got %d", got)
	}

	if _, err := payouts.CompletePayout(payout.ID); err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus on re-complete, got %v", err)
	}
}

func TestCancelPayoutRestoresCommissions(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, func(c *models.Campaign) {
		c.PayoutTerm = constants.PayoutTermNet0
	})
	affiliate := env.createAffiliate(t, campaign.ID, "user-1", "CANC0001", constants.AffiliateStatusApproved)
	ids := seedApprovedCommissions(t, env, affiliate, campaign, []int64{10000})

	payouts := env.newPayout()
	payout, err := payouts.CreatePayout(affiliate.ID, nil)
	if err != nil {
		t.Fatalf("create payout failed: %v", err)
	}

	cancelled, err := payouts.CancelPayout(payout.ID)
	if err != nil {
		t.Fatalf("cancel payout failed: %v", err)
	}
	if cancelled.Status != constants.PayoutStatusCancelled {
		t.Fatalf("unexpected status %s", cancelled.Status)
	}
	for _, id := range ids {
		commission := env.reloadCommission(t, id)
		if commission.Status != constants.CommissionStatusApproved {
			t.Fatalf("expected commission %d back to approved, got %s", id, commission.Status)
		}
		if commission.PayoutID != nil {
			t.Fatalf("expected commission %d unbound from payout", id)
		}
	}

	// 取消后佣金可重新组单
	if _, err := payouts.CreatePayout(affiliate.ID, nil); err != nil {
		t.Fatalf("re-create payout failed: %v", err)
	}
}

func TestSweepDuePayouts(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, func(c *models.Campaign) {
		c.PayoutTerm = constants.PayoutTermNet0
		c.MinPayoutCents = 1500
	})
	big := env.createAffiliate(t, campaign.ID, "user-1", "SWEP0001", constants.AffiliateStatusApproved)
	small := env.createAffiliate(t, campaign.ID, "user-2", "SWEP0002", constants.AffiliateStatusApproved)
	seedApprovedCommissions(t, env, big, campaign, []int64{10000})
	seedApprovedCommissions(t, env, small, campaign, []int64{1000})

	payouts := env.newPayout()
	created, err := payouts.SweepDuePayouts()
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if created != 1 {
		t.Fatalf("expected 1 payout created, got %d", created)
	}

	var count int64
	if err := env.db.Model(&models.Payout{}).Where("affiliate_id = ?", big.ID).Count(&count).Error; err != nil {
		t.Fatalf("count payouts failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected payout for qualifying affiliate, got %d", count)
	}
}
