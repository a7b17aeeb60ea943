package service

import (
	"testing"

	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/models"
	"github.com/refergate/refergate/internal/payment/provider"
)

func TestHandleEventRejectsNil(t *testing.T) {
	env := setupServiceTest(t)
	webhooks := env.newWebhook()
	if err := webhooks.HandleEvent(nil); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestHandleEventIgnoresUnknownType(t *testing.T) {
	env := setupServiceTest(t)
	webhooks := env.newWebhook()
	if err := webhooks.HandleEvent(&provider.Event{ID: "evt_x", Type: "invoice.created"}); err != nil {
		t.Fatalf("expected unknown type ignored, got %v", err)
	}
}

func TestHandleCheckoutCompletedBindsCustomer(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, nil)
	affiliate := env.createAffiliate(t, campaign.ID, "user-owner", "WHCK0001", constants.AffiliateStatusApproved)
	referral := env.createReferral(t, affiliate.ID, func(ref *models.Referral) {
		ref.Status = constants.ReferralStatusSignedUp
		ref.UserID = "user-buyer"
	})

	webhooks := env.newWebhook()
	err := webhooks.HandleEvent(&provider.Event{
		ID:         "evt_checkout",
		Type:       constants.PaymentEventCheckoutCompleted,
		CustomerID: "cus_wh1",
		UserID:     "user-buyer",
	})
	if err != nil {
		t.Fatalf("handle checkout failed: %v", err)
	}

	updated := env.reloadReferral(t, referral.ID)
	if updated.CustomerID == nil || *updated.CustomerID != "cus_wh1" {
		t.Fatalf("expected customer bound, got %+v", updated.CustomerID)
	}
}

func TestHandleCheckoutCompletedGuestNotBound(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, nil)
	affiliate := env.createAffiliate(t, campaign.ID, "user-owner", "WHCK0002", constants.AffiliateStatusApproved)
	referral := env.createReferral(t, affiliate.ID, func(ref *models.Referral) {
		ref.Status = constants.ReferralStatusSignedUp
		ref.UserID = "user-buyer"
	})

	webhooks := env.newWebhook()
	err := webhooks.HandleEvent(&provider.Event{
		ID:         "evt_guest",
		Type:       constants.PaymentEventCheckoutCompleted,
		CustomerID: "cus_guest",
		UserID:     "user-buyer",
		Guest:      true,
	})
	if err != nil {
		t.Fatalf("handle checkout failed: %v", err)
	}
	if got := env.reloadReferral(t, referral.ID).CustomerID; got != nil {
		t.Fatalf("expected guest checkout not bound, got %v", *got)
	}
}

func TestHandlePaymentSucceededCreatesCommission(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, nil)
	affiliate := env.createAffiliate(t, campaign.ID, "user-owner", "WHPY0001", constants.AffiliateStatusApproved)
	customerID := "cus_pay1"
	referral := env.createReferral(t, affiliate.ID, func(ref *models.Referral) {
		ref.Status = constants.ReferralStatusSignedUp
		ref.UserID = "user-buyer"
		ref.CustomerID = &customerID
	})

	webhooks := env.newWebhook()
	event := &provider.Event{
		ID:          "evt_pay1",
		Type:        constants.PaymentEventPaymentSucceeded,
		CustomerID:  customerID,
		ChargeID:    "ch_pay1",
		ProductID:   "plan-pro",
		AmountCents: 10000,
	}
	if err := webhooks.HandleEvent(event); err != nil {
		t.Fatalf("handle payment failed: %v", err)
	}

	var commission models.Commission
	if err := env.db.Where("event_id = ?", "evt_pay1").First(&commission).Error; err != nil {
		t.Fatalf("load commission failed: %v", err)
	}
	if commission.CommissionAmountCents != 2000 {
		t.Fatalf("expected 2000 cents, got %d", commission.CommissionAmountCents)
	}
	if commission.ChargeID == nil || *commission.ChargeID != "ch_pay1" {
		t.Fatalf("expected charge bound, got %+v", commission.ChargeID)
	}

	updated := env.reloadReferral(t, referral.ID)
	if updated.Status != constants.ReferralStatusConverted {
		t.Fatalf("expected referral converted, got %s", updated.Status)
	}
	if updated.ConvertedAt == nil {
		t.Fatal("expected converted_at set")
	}
	if got := env.reloadAffiliate(t, affiliate.ID).Conversions; got != 1 {
		t.Fatalf("expected 1 conversion, got %d", got)
	}

	// 重复投递同一事件不产生第二条佣金
	if err := webhooks.HandleEvent(event); err != nil {
		t.Fatalf("duplicate delivery failed: %v", err)
	}
	var count int64
	if err := env.db.Model(&models.Commission{}).Count(&count).Error; err != nil {
		t.Fatalf("count commissions failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 commission, got %d", count)
	}
}

func TestHandlePaymentSucceededRepeatPurchaseKeepsConversionCount(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, nil)
	affiliate := env.createAffiliate(t, campaign.ID, "user-owner", "WHPY0002", constants.AffiliateStatusApproved)
	customerID := "cus_pay2"
	env.createReferral(t, affiliate.ID, func(ref *models.Referral) {
		ref.Status = constants.ReferralStatusSignedUp
		ref.UserID = "user-buyer"
		ref.CustomerID = &customerID
	})

	webhooks := env.newWebhook()
	for _, eventID := range []string{"evt_r1", "evt_r2"} {
		if err := webhooks.HandleEvent(&provider.Event{
			ID:          eventID,
			Type:        constants.PaymentEventPaymentSucceeded,
			CustomerID:  customerID,
			AmountCents: 5000,
		}); err != nil {
			t.Fatalf("handle payment %s failed: %v", eventID, err)
		}
	}

	var count int64
	if err := env.db.Model(&models.Commission{}).Count(&count).Error; err != nil {
		t.Fatalf("count commissions failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 commissions, got %d", count)
	}
	// 转化计数只在首次转化推进
	if got := env.reloadAffiliate(t, affiliate.ID).Conversions; got != 1 {
		t.Fatalf("expected 1 conversion, got %d", got)
	}
}

func TestHandlePaymentSucceededSkipsSelfReferral(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, nil)
	affiliate := env.createAffiliate(t, campaign.ID, "user-owner", "WHPY0003", constants.AffiliateStatusApproved)
	customerID := "cus_self"
	env.createReferral(t, affiliate.ID, func(ref *models.Referral) {
		ref.Status = constants.ReferralStatusSignedUp
		ref.UserID = "user-owner"
		ref.CustomerID = &customerID
	})

	webhooks := env.newWebhook()
	if err := webhooks.HandleEvent(&provider.Event{
		ID:          "evt_self",
		Type:        constants.PaymentEventPaymentSucceeded,
		CustomerID:  customerID,
		AmountCents: 10000,
	}); err != nil {
		t.Fatalf("handle payment failed: %v", err)
	}

	var count int64
	if err := env.db.Model(&models.Commission{}).Count(&count).Error; err != nil {
		t.Fatalf("count commissions failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no commission for self referral, got %d", count)
	}
}

func TestHandlePaymentSucceededUnattributedCustomer(t *testing.T) {
	env := setupServiceTest(t)
	webhooks := env.newWebhook()
	if err := webhooks.HandleEvent(&provider.Event{
		ID:          "evt_unattributed",
		Type:        constants.PaymentEventPaymentSucceeded,
		CustomerID:  "cus_unknown",
		AmountCents: 10000,
	}); err != nil {
		t.Fatalf("expected unattributed payment swallowed, got %v", err)
	}
}

func TestHandlePaymentSucceededSuspendedAffiliate(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, nil)
	affiliate := env.createAffiliate(t, campaign.ID, "user-owner", "WHPY0004", constants.AffiliateStatusSuspended)
	customerID := "cus_susp"
	env.createReferral(t, affiliate.ID, func(ref *models.Referral) {
		ref.Status = constants.ReferralStatusSignedUp
		ref.UserID = "user-buyer"
		ref.CustomerID = &customerID
	})

	webhooks := env.newWebhook()
	if err := webhooks.HandleEvent(&provider.Event{
		ID:          "evt_susp",
		Type:        constants.PaymentEventPaymentSucceeded,
		CustomerID:  customerID,
		AmountCents: 10000,
	}); err != nil {
		t.Fatalf("handle payment failed: %v", err)
	}
	var count int64
	if err := env.db.Model(&models.Commission{}).Count(&count).Error; err != nil {
		t.Fatalf("count commissions failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no commission for suspended affiliate, got %d", count)
	}
}

func TestHandlePaymentRefundedReversesCommission(t *testing.T) {
	env := setupServiceTest(t)
	campaign := env.createCampaign(t, nil)
	affiliate := env.createAffiliate(t, campaign.ID, "user-owner", "WHRF0001", constants.AffiliateStatusApproved)
	customerID := "cus_refund"
	env.createReferral(t, affiliate.ID, func(ref *models.Referral) {
		ref.Status = constants.ReferralStatusSignedUp
		ref.UserID = "user-buyer"
		ref.CustomerID = &customerID
	})

	webhooks := env.newWebhook()
	if err := webhooks.HandleEvent(&provider.Event{
		ID:          "evt_sale",
		Type:        constants.PaymentEventPaymentSucceeded,
		CustomerID:  customerID,
		ChargeID:    "ch_refund",
		AmountCents: 10000,
	}); err != nil {
		t.Fatalf("handle payment failed: %v", err)
	}

	refund := &provider.Event{
		ID:       "evt_refund",
		Type:     constants.PaymentEventPaymentRefunded,
		ChargeID: "ch_refund",
	}
	if err := webhooks.HandleEvent(refund); err != nil {
		t.Fatalf("handle refund failed: %v", err)
	}

	var commission models.Commission
	if err := env.db.Where("charge_id = ?", "ch_refund").First(&commission).Error; err != nil {
		t.Fatalf("load commission failed: %v", err)
	}
	if commission.Status != constants.CommissionStatusReversed {
		t.Fatalf("expected commission reversed, got %s", commission.Status)
	}

	// 重复退款事件是空操作
	if err := webhooks.HandleEvent(refund); err != nil {
		t.Fatalf("duplicate refund failed: %v", err)
	}
}

func TestHandlePaymentRefundedUnknownCharge(t *testing.T) {
	env := setupServiceTest(t)
	webhooks := env.newWebhook()
	if err := webhooks.HandleEvent(&provider.Event{
		ID:       "evt_norefund",
		Type:     constants.PaymentEventPaymentRefunded,
		ChargeID: "ch_missing",
	}); err != nil {
		t.Fatalf("expected unknown charge swallowed, got %v", err)
	}
	if err := webhooks.HandleEvent(&provider.Event{
		ID:   "evt_nocharge",
		Type: constants.PaymentEventPaymentRefunded,
	}); err != nil {
		t.Fatalf("expected missing charge swallowed, got %v", err)
	}
}
