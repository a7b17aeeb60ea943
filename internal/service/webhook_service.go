package service

import (
	"fmt"
	"time"

	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/logger"
	"github.com/refergate/refergate/internal/payment/provider"
	"github.com/refergate/refergate/internal/repository"
	"gorm.io/gorm"
)

// WebhookService 支付回调事件处理服务
// 未知事件类型、刷单拦截、重复投递都按成功吞掉，只有内部失败才让网关重试
type WebhookService struct {
	referralRepo       repository.ReferralRepository
	affiliateRepo      repository.AffiliateRepository
	campaignRepo       repository.CampaignRepository
	commissionRepo     repository.CommissionRepository
	attributionService *AttributionService
	ledgerService      *LedgerService
}

// NewWebhookService 创建回调处理服务
func NewWebhookService(
	referralRepo repository.ReferralRepository,
	affiliateRepo repository.AffiliateRepository,
	campaignRepo repository.CampaignRepository,
	commissionRepo repository.CommissionRepository,
	attributionService *AttributionService,
	ledgerService *LedgerService,
) *WebhookService {
	return &WebhookService{
		referralRepo:       referralRepo,
		affiliateRepo:      affiliateRepo,
		campaignRepo:       campaignRepo,
		commissionRepo:     commissionRepo,
		attributionService: attributionService,
		ledgerService:      ledgerService,
	}
}

// HandleEvent 分发已验签的支付事件
func (s *WebhookService) HandleEvent(event *provider.Event) error {
	if event == nil {
		return ErrInvalidInput
	}
	webhookLogger := logger.SW("event_id", event.ID, "event_type", event.Type)

	switch event.Type {
	case constants.PaymentEventCheckoutCompleted:
		return s.handleCheckoutCompleted(event)
	case constants.PaymentEventPaymentSucceeded:
		return s.handlePaymentSucceeded(event)
	case constants.PaymentEventPaymentRefunded:
		return s.handlePaymentRefunded(event)
	default:
		webhookLogger.Infow("webhook_event_ignored")
		return nil
	}
}

// handleCheckoutCompleted 结账完成，把支付侧客户绑定到推荐记录
func (s *WebhookService) handleCheckoutCompleted(event *provider.Event) error {
	userID := event.UserID
	if event.Guest {
		// 游客结账不携带可信的用户身份
		userID = ""
	}
	outcome, err := s.attributionService.LinkCustomer(event.CustomerID, userID, event.Code)
	if err != nil {
		return fmt.Errorf("link customer: %w", err)
	}
	logger.Infow("webhook_checkout_completed",
		"event_id", event.ID,
		"customer_id", event.CustomerID,
		"ok", outcome.OK,
		"reason", string(outcome.Blocked),
	)
	return nil
}

// handlePaymentSucceeded 支付成功，走完整计佣路径
func (s *WebhookService) handlePaymentSucceeded(event *provider.Event) error {
	// 事件ID是幂等键，重复投递直接返回
	existing, err := s.commissionRepo.GetByEventID(event.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.Infow("webhook_payment_duplicate", "event_id", event.ID, "commission_id", existing.ID)
		return nil
	}

	err = s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		referralTx := s.referralRepo.WithTx(tx)
		referral, err := referralTx.GetByCustomerID(event.CustomerID)
		if err != nil {
			return err
		}
		if referral == nil {
			logger.Infow("webhook_payment_unattributed", "event_id", event.ID, "customer_id", event.CustomerID)
			return nil
		}
		referral, err = referralTx.GetByReferralIDForUpdate(referral.ReferralID)
		if err != nil {
			return err
		}
		if referral == nil {
			return nil
		}

		affiliate, err := s.affiliateRepo.WithTx(tx).GetByIDForUpdate(referral.AffiliateID)
		if err != nil {
			return err
		}
		if affiliate == nil || affiliate.Status != constants.AffiliateStatusApproved {
			logger.Infow("webhook_payment_affiliate_not_approved", "event_id", event.ID, "referral_id", referral.ReferralID)
			return nil
		}
		if referral.UserID != "" && referral.UserID == affiliate.UserID {
			logger.Warnw("webhook_payment_self_referral", "event_id", event.ID, "affiliate_id", affiliate.ID)
			return nil
		}

		campaign, err := s.campaignRepo.GetByID(affiliate.CampaignID)
		if err != nil {
			return err
		}
		if campaign == nil {
			return ErrNotFound
		}

		// 首次转化才推进状态与转化计数
		if referral.Status != constants.ReferralStatusConverted {
			now := time.Now()
			referral.Status = constants.ReferralStatusConverted
			referral.ConvertedAt = &now
			if err := referralTx.Update(referral); err != nil {
				return err
			}
			if err := s.affiliateRepo.WithTx(tx).IncrementStats(affiliate.ID, "conversions", 1); err != nil {
				return err
			}
			affiliate.Conversions++
		}

		var chargeID *string
		if event.ChargeID != "" {
			chargeID = &event.ChargeID
		}
		_, err = s.ledgerService.CreateCommissionTx(tx, CreateCommissionInput{
			Affiliate:       affiliate,
			Campaign:        campaign,
			Referral:        referral,
			EventID:         event.ID,
			ChargeID:        chargeID,
			SubscriptionID:  event.SubscriptionID,
			ProductID:       event.ProductID,
			SaleAmountCents: event.AmountCents,
		})
		return err
	})
	if err != nil {
		// 并发重复投递撞事件唯一索引，按已处理吞掉
		if isUniqueViolation(err) {
			logger.Infow("webhook_payment_duplicate", "event_id", event.ID)
			return nil
		}
		return err
	}
	return nil
}

// handlePaymentRefunded 退款，冲销对应佣金
func (s *WebhookService) handlePaymentRefunded(event *provider.Event) error {
	if event.ChargeID == "" {
		logger.Infow("webhook_refund_no_charge", "event_id", event.ID)
		return nil
	}
	commission, err := s.commissionRepo.GetByChargeID(event.ChargeID)
	if err != nil {
		return err
	}
	if commission == nil || commission.Status == constants.CommissionStatusReversed {
		logger.Infow("webhook_refund_noop", "event_id", event.ID, "charge_id", event.ChargeID)
		return nil
	}
	if _, err := s.ledgerService.Reverse(commission.ID, "payment refunded"); err != nil {
		return err
	}
	logger.Infow("webhook_refund_reversed",
		"event_id", event.ID,
		"charge_id", event.ChargeID,
		"commission_id", commission.ID,
	)
	return nil
}
