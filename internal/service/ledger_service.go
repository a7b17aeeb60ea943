package service

import (
	"strings"
	"time"

	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/logger"
	"github.com/refergate/refergate/internal/models"
	"github.com/refergate/refergate/internal/repository"
	"gorm.io/gorm"
)

// LedgerService 佣金账本服务，负责佣金全生命周期与统计口径
type LedgerService struct {
	commissionRepo repository.CommissionRepository
	affiliateRepo  repository.AffiliateRepository
	analyticsRepo  repository.AnalyticsRepository
	hookService    *HookService
	rateResolver   *RateResolver
}

// NewLedgerService 创建账本服务
func NewLedgerService(
	commissionRepo repository.CommissionRepository,
	affiliateRepo repository.AffiliateRepository,
	analyticsRepo repository.AnalyticsRepository,
	hookService *HookService,
	rateResolver *RateResolver,
) *LedgerService {
	return &LedgerService{
		commissionRepo: commissionRepo,
		affiliateRepo:  affiliateRepo,
		analyticsRepo:  analyticsRepo,
		hookService:    hookService,
		rateResolver:   rateResolver,
	}
}

// CreateCommissionInput 佣金创建输入
type CreateCommissionInput struct {
	Affiliate       *models.Affiliate
	Campaign        *models.Campaign
	Referral        *models.Referral
	EventID         string
	ChargeID        *string
	SubscriptionID  string
	ProductID       string
	SaleAmountCents int64
}

// CreateCommission 按费率规则创建佣金
// 商品黑白名单与订阅周期策略不产生佣金时返回 (nil, nil)，不是错误
func (s *LedgerService) CreateCommission(input CreateCommissionInput) (*models.Commission, error) {
	var commission *models.Commission
	err := s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		created, err := s.CreateCommissionTx(tx, input)
		if err != nil {
			return err
		}
		commission = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.hookService.NotifyDispatcher()
	return commission, nil
}

// CreateCommissionTx 在既有事务内创建佣金，供回调处理复用
func (s *LedgerService) CreateCommissionTx(tx *gorm.DB, input CreateCommissionInput) (*models.Commission, error) {
	if input.Affiliate == nil || input.Campaign == nil || input.Referral == nil {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(input.EventID) == "" || input.SaleAmountCents < 0 {
		return nil, ErrInvalidInput
	}

	if !s.productEligible(input.Campaign, input.ProductID) {
		logger.Infow("commission_skipped_product_policy",
			"affiliate_id", input.Affiliate.ID,
			"product_id", input.ProductID,
		)
		return nil, nil
	}
	eligible, err := s.subscriptionEligible(tx, input.Campaign, input.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		logger.Infow("commission_skipped_duration_policy",
			"affiliate_id", input.Affiliate.ID,
			"subscription_id", input.SubscriptionID,
			"policy", input.Campaign.CommissionDuration,
		)
		return nil, nil
	}

	rate, err := s.rateResolver.Resolve(input.Affiliate, input.Campaign, input.ProductID)
	if err != nil {
		return nil, err
	}
	amount := rate.CommissionAmountCents(input.SaleAmountCents)

	now := time.Now()
	customerID := ""
	if input.Referral.CustomerID != nil {
		customerID = *input.Referral.CustomerID
	}
	commission := &models.Commission{
		AffiliateID:           input.Affiliate.ID,
		ReferralID:            input.Referral.ID,
		CustomerID:            customerID,
		EventID:               strings.TrimSpace(input.EventID),
		ChargeID:              input.ChargeID,
		SubscriptionID:        strings.TrimSpace(input.SubscriptionID),
		ProductID:             strings.TrimSpace(input.ProductID),
		SaleAmountCents:       input.SaleAmountCents,
		CommissionAmountCents: amount,
		RateType:              rate.Type,
		RateValue:             rate.Value,
		Status:                constants.CommissionStatusPending,
		DueAt:                 now.Add(payoutTermDelay(input.Campaign.PayoutTerm)),
	}
	if err := s.commissionRepo.WithTx(tx).Create(commission); err != nil {
		return nil, err
	}

	if err := s.affiliateRepo.WithTx(tx).ApplyStatsDelta(input.Affiliate.ID, map[string]int64{
		"revenue_cents":     input.SaleAmountCents,
		"commissions_cents": amount,
		"pending_cents":     amount,
	}); err != nil {
		return nil, err
	}
	if err := s.analyticsRepo.WithTx(tx).Append(&models.AnalyticsEvent{
		EventType:   constants.AnalyticsEventConversion,
		AffiliateID: input.Affiliate.ID,
		ReferralID:  &commission.ReferralID,
		AmountCents: input.SaleAmountCents,
	}); err != nil {
		return nil, err
	}
	if err := s.hookService.EmitTx(tx, constants.HookCommissionCreated, map[string]interface{}{
		"commission_id": commission.ID,
		"affiliate_id":  commission.AffiliateID,
		"amount_cents":  commission.CommissionAmountCents,
		"rate_source":   rate.Source,
	}); err != nil {
		return nil, err
	}

	logger.Infow("commission_created",
		"commission_id", commission.ID,
		"affiliate_id", commission.AffiliateID,
		"event_id", commission.EventID,
		"sale_cents", commission.SaleAmountCents,
		"amount_cents", commission.CommissionAmountCents,
		"rate_source", rate.Source,
	)
	return commission, nil
}

// Approve 审核通过佣金，仅允许 pending 起步
func (s *LedgerService) Approve(id uint) (*models.Commission, error) {
	var commission *models.Commission
	err := s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.commissionRepo.WithTx(tx)
		found, err := repoTx.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrNotFound
		}
		if found.Status != constants.CommissionStatusPending {
			return ErrInvalidStatus
		}
		found.Status = constants.CommissionStatusApproved
		if err := repoTx.Update(found); err != nil {
			return err
		}
		commission = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("commission_approved", "commission_id", id)
	return commission, nil
}

// MarkPaid 标记佣金已支付，金额从待结算桶迁到已结算桶
func (s *LedgerService) MarkPaid(id uint, payoutID *uint) (*models.Commission, error) {
	var commission *models.Commission
	err := s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		found, err := s.MarkPaidTx(tx, id, payoutID)
		if err != nil {
			return err
		}
		commission = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return commission, nil
}

// MarkPaidTx 在既有事务内标记佣金已支付
func (s *LedgerService) MarkPaidTx(tx *gorm.DB, id uint, payoutID *uint) (*models.Commission, error) {
	repoTx := s.commissionRepo.WithTx(tx)
	commission, err := repoTx.GetByIDForUpdate(id)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, ErrNotFound
	}
	switch commission.Status {
	case constants.CommissionStatusPaid, constants.CommissionStatusReversed:
		return nil, ErrInvalidStatus
	}

	commission.Status = constants.CommissionStatusPaid
	if payoutID != nil {
		commission.PayoutID = payoutID
	}
	if err := repoTx.Update(commission); err != nil {
		return nil, err
	}
	if err := s.affiliateRepo.WithTx(tx).ApplyStatsDelta(commission.AffiliateID, map[string]int64{
		"pending_cents": -commission.CommissionAmountCents,
		"paid_cents":    commission.CommissionAmountCents,
	}); err != nil {
		return nil, err
	}

	logger.Infow("commission_paid",
		"commission_id", commission.ID,
		"affiliate_id", commission.AffiliateID,
		"amount_cents", commission.CommissionAmountCents,
	)
	return commission, nil
}

// Reverse 冲销佣金，重复冲销按幂等处理
func (s *LedgerService) Reverse(id uint, reason string) (*models.Commission, error) {
	var commission *models.Commission
	err := s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		reversed, err := s.ReverseTx(tx, id, reason)
		if err != nil {
			return err
		}
		commission = reversed
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.hookService.NotifyDispatcher()
	return commission, nil
}

// ReverseTx 在既有事务内冲销佣金
func (s *LedgerService) ReverseTx(tx *gorm.DB, id uint, reason string) (*models.Commission, error) {
	repoTx := s.commissionRepo.WithTx(tx)
	commission, err := repoTx.GetByIDForUpdate(id)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, ErrNotFound
	}
	if commission.Status == constants.CommissionStatusReversed {
		return commission, nil
	}

	// 金额从哪个桶扣取决于冲销前状态
	deltas := map[string]int64{
		"commissions_cents": -commission.CommissionAmountCents,
	}
	if commission.Status == constants.CommissionStatusPaid {
		deltas["paid_cents"] = -commission.CommissionAmountCents
	} else {
		deltas["pending_cents"] = -commission.CommissionAmountCents
	}

	commission.Status = constants.CommissionStatusReversed
	commission.ReversalReason = strings.TrimSpace(reason)
	if err := repoTx.Update(commission); err != nil {
		return nil, err
	}
	if err := s.affiliateRepo.WithTx(tx).ApplyStatsDelta(commission.AffiliateID, deltas); err != nil {
		return nil, err
	}
	if err := s.analyticsRepo.WithTx(tx).Append(&models.AnalyticsEvent{
		EventType:   constants.AnalyticsEventRefund,
		AffiliateID: commission.AffiliateID,
		ReferralID:  &commission.ReferralID,
		AmountCents: commission.SaleAmountCents,
	}); err != nil {
		return nil, err
	}
	if err := s.hookService.EmitTx(tx, constants.HookCommissionReversed, map[string]interface{}{
		"commission_id": commission.ID,
		"affiliate_id":  commission.AffiliateID,
		"amount_cents":  commission.CommissionAmountCents,
		"reason":        commission.ReversalReason,
	}); err != nil {
		return nil, err
	}

	logger.Infow("commission_reversed",
		"commission_id", commission.ID,
		"affiliate_id", commission.AffiliateID,
		"reason", commission.ReversalReason,
	)
	return commission, nil
}

// GetByID 获取佣金
func (s *LedgerService) GetByID(id uint) (*models.Commission, error) {
	commission, err := s.commissionRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, ErrNotFound
	}
	return commission, nil
}

// List 查询佣金列表
func (s *LedgerService) List(filter repository.CommissionListFilter) ([]models.Commission, uint, error) {
	return s.commissionRepo.List(filter)
}

// productEligible 商品黑白名单校验，黑名单优先
func (s *LedgerService) productEligible(campaign *models.Campaign, productID string) bool {
	productID = strings.TrimSpace(productID)
	if campaign.DeniedProducts.Contains(productID) {
		return false
	}
	if len(campaign.AllowedProducts) > 0 {
		return campaign.AllowedProducts.Contains(productID)
	}
	return true
}

// subscriptionEligible 订阅周期策略校验
func (s *LedgerService) subscriptionEligible(tx *gorm.DB, campaign *models.Campaign, subscriptionID string) (bool, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" || campaign.CommissionDuration == constants.CommissionDurationLifetime {
		return true, nil
	}
	repoTx := s.commissionRepo.WithTx(tx)
	switch campaign.CommissionDuration {
	case constants.CommissionDurationMaxPayments:
		count, err := repoTx.CountBySubscription(subscriptionID)
		if err != nil {
			return false, err
		}
		return count < int64(campaign.DurationLimit), nil
	case constants.CommissionDurationMaxMonths:
		first, err := repoTx.FirstBySubscription(subscriptionID)
		if err != nil {
			return false, err
		}
		if first == nil {
			return true, nil
		}
		cutoff := first.CreatedAt.AddDate(0, campaign.DurationLimit, 0)
		return !time.Now().After(cutoff), nil
	default:
		return true, nil
	}
}
