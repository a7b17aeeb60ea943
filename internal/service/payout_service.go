package service

import (
	"time"

	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/logger"
	"github.com/refergate/refergate/internal/models"
	"github.com/refergate/refergate/internal/repository"
	"gorm.io/gorm"
)

// PayoutService 结算单服务
type PayoutService struct {
	payoutRepo     repository.PayoutRepository
	commissionRepo repository.CommissionRepository
	affiliateRepo  repository.AffiliateRepository
	campaignRepo   repository.CampaignRepository
	analyticsRepo  repository.AnalyticsRepository
	hookService    *HookService
	ledgerService  *LedgerService
}

// NewPayoutService 创建结算服务
func NewPayoutService(
	payoutRepo repository.PayoutRepository,
	commissionRepo repository.CommissionRepository,
	affiliateRepo repository.AffiliateRepository,
	campaignRepo repository.CampaignRepository,
	analyticsRepo repository.AnalyticsRepository,
	hookService *HookService,
	ledgerService *LedgerService,
) *PayoutService {
	return &PayoutService{
		payoutRepo:     payoutRepo,
		commissionRepo: commissionRepo,
		affiliateRepo:  affiliateRepo,
		campaignRepo:   campaignRepo,
		analyticsRepo:  analyticsRepo,
		hookService:    hookService,
		ledgerService:  ledgerService,
	}
}

// GetDueCommissions 查询推广人到期可结算的佣金
func (s *PayoutService) GetDueCommissions(affiliateID uint) ([]models.Commission, error) {
	return s.commissionRepo.ListDue(affiliateID, time.Now())
}

// CreatePayout 为推广人创建结算单
// commissionIDs 为空时取全部到期佣金；未达活动最低结算额返回 ErrMinPayoutNotMet
func (s *PayoutService) CreatePayout(affiliateID uint, commissionIDs []uint) (*models.Payout, error) {
	affiliate, err := s.affiliateRepo.GetByID(affiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	campaign, err := s.campaignRepo.GetByID(affiliate.CampaignID)
	if err != nil {
		return nil, err
	}

	var payout *models.Payout
	err = s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		commissionTx := s.commissionRepo.WithTx(tx)

		var commissions []models.Commission
		if len(commissionIDs) > 0 {
			commissions, err = commissionTx.ListByIDsForUpdate(commissionIDs)
		} else {
			commissions, err = commissionTx.ListDue(affiliateID, time.Now())
		}
		if err != nil {
			return err
		}

		now := time.Now()
		total := int64(0)
		ids := make([]uint, 0, len(commissions))
		periodStart := now
		for _, commission := range commissions {
			if commission.AffiliateID != affiliateID {
				return ErrInvalidInput
			}
			if commission.Status != constants.CommissionStatusApproved ||
				commission.PayoutID != nil || commission.DueAt.After(now) {
				return ErrInvalidStatus
			}
			total += commission.CommissionAmountCents
			ids = append(ids, commission.ID)
			if commission.CreatedAt.Before(periodStart) {
				periodStart = commission.CreatedAt
			}
		}
		if len(ids) == 0 {
			return ErrNotFound
		}
		if campaign != nil && total < campaign.MinPayoutCents {
			return ErrMinPayoutNotMet
		}

		payout = &models.Payout{
			AffiliateID:      affiliateID,
			AmountCents:      total,
			CommissionsCount: len(ids),
			PeriodStart:      periodStart,
			PeriodEnd:        now,
			Status:           constants.PayoutStatusPending,
		}
		if err := s.payoutRepo.WithTx(tx).Create(payout); err != nil {
			return err
		}
		return commissionTx.BatchUpdate(ids, map[string]interface{}{
			"status":    constants.CommissionStatusProcessing,
			"payout_id": payout.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("payout_created",
		"payout_id", payout.ID,
		"affiliate_id", affiliateID,
		"amount_cents", payout.AmountCents,
		"commissions", payout.CommissionsCount,
	)
	return payout, nil
}

// CompletePayout 完成结算单，逐条落到已支付
func (s *PayoutService) CompletePayout(id uint) (*models.Payout, error) {
	var payout *models.Payout
	err := s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		payoutTx := s.payoutRepo.WithTx(tx)
		found, err := payoutTx.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrNotFound
		}
		if found.Status != constants.PayoutStatusPending {
			return ErrInvalidStatus
		}

		commissions, err := s.commissionRepo.WithTx(tx).ListByPayoutIDForUpdate(id)
		if err != nil {
			return err
		}
		for _, commission := range commissions {
			if _, err := s.ledgerService.MarkPaidTx(tx, commission.ID, &id); err != nil {
				return err
			}
		}

		now := time.Now()
		found.Status = constants.PayoutStatusCompleted
		found.CompletedAt = &now
		if err := payoutTx.Update(found); err != nil {
			return err
		}
		if err := s.analyticsRepo.WithTx(tx).Append(&models.AnalyticsEvent{
			EventType:   constants.AnalyticsEventPayout,
			AffiliateID: found.AffiliateID,
			AmountCents: found.AmountCents,
		}); err != nil {
			return err
		}
		if err := s.hookService.EmitTx(tx, constants.HookPayoutCompleted, map[string]interface{}{
			"payout_id":    found.ID,
			"affiliate_id": found.AffiliateID,
			"amount_cents": found.AmountCents,
		}); err != nil {
			return err
		}
		payout = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hookService.NotifyDispatcher()
	logger.Infow("payout_completed",
		"payout_id", payout.ID,
		"affiliate_id", payout.AffiliateID,
		"amount_cents", payout.AmountCents,
	)
	return payout, nil
}

// CancelPayout 取消结算单，佣金退回 approved 待重新组单
func (s *PayoutService) CancelPayout(id uint) (*models.Payout, error) {
	var payout *models.Payout
	err := s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		payoutTx := s.payoutRepo.WithTx(tx)
		found, err := payoutTx.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrNotFound
		}
		if found.Status != constants.PayoutStatusPending {
			return ErrInvalidStatus
		}

		commissionTx := s.commissionRepo.WithTx(tx)
		commissions, err := commissionTx.ListByPayoutIDForUpdate(id)
		if err != nil {
			return err
		}
		ids := make([]uint, 0, len(commissions))
		for _, commission := range commissions {
			ids = append(ids, commission.ID)
		}
		if len(ids) > 0 {
			if err := commissionTx.BatchUpdate(ids, map[string]interface{}{
				"status":    constants.CommissionStatusApproved,
				"payout_id": nil,
			}); err != nil {
				return err
			}
		}

		found.Status = constants.PayoutStatusCancelled
		if err := payoutTx.Update(found); err != nil {
			return err
		}
		payout = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("payout_cancelled", "payout_id", payout.ID, "affiliate_id", payout.AffiliateID)
	return payout, nil
}

// GetByID 获取结算单
func (s *PayoutService) GetByID(id uint) (*models.Payout, error) {
	payout, err := s.payoutRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, ErrNotFound
	}
	return payout, nil
}

// List 查询结算单列表
func (s *PayoutService) List(filter repository.PayoutListFilter) ([]models.Payout, uint, error) {
	return s.payoutRepo.List(filter)
}

// SweepDuePayouts 扫描到期佣金并自动组单，worker 定时调用
// 未达最低结算额的推广人跳过，等下一轮
func (s *PayoutService) SweepDuePayouts() (int, error) {
	affiliateIDs, err := s.affiliateRepo.ListWithDueCommissions(time.Now())
	if err != nil {
		return 0, err
	}
	created := 0
	for _, affiliateID := range affiliateIDs {
		if _, err := s.CreatePayout(affiliateID, nil); err != nil {
			if err == ErrMinPayoutNotMet || err == ErrNotFound {
				continue
			}
			logger.Errorw("payout_sweep_failed", "affiliate_id", affiliateID, "error", err)
			continue
		}
		created++
	}
	if created > 0 {
		logger.Infow("payout_sweep_done", "created", created)
	}
	return created, nil
}
