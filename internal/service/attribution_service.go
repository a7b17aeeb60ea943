package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/logger"
	"github.com/refergate/refergate/internal/models"
	"github.com/refergate/refergate/internal/repository"
	"gorm.io/gorm"
)

// BlockReason 归因被拒绝的内部原因，对外只暴露成功与否
type BlockReason string

const (
	BlockNone                      BlockReason = ""
	BlockSelfReferral              BlockReason = "self_referral"
	BlockCustomerAlreadyAttributed BlockReason = "customer_already_attributed"
	BlockGuestCheckout             BlockReason = "guest_checkout"
	BlockReferralExpired           BlockReason = "referral_expired"
	BlockInvalidState              BlockReason = "invalid_state"
	BlockUnknownCode               BlockReason = "unknown_code"
)

// AttributionOutcome 归因结果
type AttributionOutcome struct {
	OK      bool
	Blocked BlockReason
}

func attributionOK() AttributionOutcome {
	return AttributionOutcome{OK: true}
}

func attributionBlocked(reason BlockReason) AttributionOutcome {
	return AttributionOutcome{Blocked: reason}
}

// AttributionService 注册与客户绑定归因服务
type AttributionService struct {
	referralRepo  repository.ReferralRepository
	affiliateRepo repository.AffiliateRepository
	campaignRepo  repository.CampaignRepository
	analyticsRepo repository.AnalyticsRepository
}

// NewAttributionService 创建归因服务
func NewAttributionService(
	referralRepo repository.ReferralRepository,
	affiliateRepo repository.AffiliateRepository,
	campaignRepo repository.CampaignRepository,
	analyticsRepo repository.AnalyticsRepository,
) *AttributionService {
	return &AttributionService{
		referralRepo:  referralRepo,
		affiliateRepo: affiliateRepo,
		campaignRepo:  campaignRepo,
		analyticsRepo: analyticsRepo,
	}
}

// AttributeSignup 把一次点击归因为注册
// 任何违规都静默拒绝，只在日志里记录内部原因
func (s *AttributionService) AttributeSignup(referralID, userID string) (AttributionOutcome, error) {
	userID = strings.TrimSpace(userID)
	if strings.TrimSpace(referralID) == "" || userID == "" {
		return attributionBlocked(BlockInvalidState), nil
	}

	outcome := attributionBlocked(BlockInvalidState)
	err := s.referralRepo.Transaction(func(tx *gorm.DB) error {
		referralTx := s.referralRepo.WithTx(tx)
		referral, err := referralTx.GetByReferralIDForUpdate(referralID)
		if err != nil {
			return err
		}
		if referral == nil {
			outcome = attributionBlocked(BlockUnknownCode)
			return nil
		}
		if referral.Status != constants.ReferralStatusClicked {
			outcome = attributionBlocked(BlockInvalidState)
			return nil
		}
		if !referral.ExpiresAt.After(time.Now()) {
			outcome = attributionBlocked(BlockReferralExpired)
			return nil
		}

		affiliate, err := s.affiliateRepo.WithTx(tx).GetByID(referral.AffiliateID)
		if err != nil {
			return err
		}
		if affiliate == nil {
			outcome = attributionBlocked(BlockInvalidState)
			return nil
		}
		if affiliate.UserID == userID {
			outcome = attributionBlocked(BlockSelfReferral)
			return nil
		}

		referral.Status = constants.ReferralStatusSignedUp
		referral.UserID = userID
		if err := referralTx.Update(referral); err != nil {
			return err
		}
		if err := s.affiliateRepo.WithTx(tx).IncrementStats(affiliate.ID, "signups", 1); err != nil {
			return err
		}
		if err := s.analyticsRepo.WithTx(tx).Append(&models.AnalyticsEvent{
			EventType:   constants.AnalyticsEventSignup,
			AffiliateID: affiliate.ID,
			ReferralID:  &referral.ID,
		}); err != nil {
			return err
		}
		outcome = attributionOK()
		return nil
	})
	if err != nil {
		return attributionBlocked(BlockInvalidState), err
	}

	s.logOutcome("signup_attribution", outcome, "referral_id", referralID, "user_id", userID)
	return outcome, nil
}

// AttributeSignupByCode 没有点击记录时按推荐码直接归因注册
// 直接生成 signed_up 状态的推荐记录
func (s *AttributionService) AttributeSignupByCode(code, userID string) (AttributionOutcome, error) {
	userID = strings.TrimSpace(userID)
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" || userID == "" {
		return attributionBlocked(BlockInvalidState), nil
	}

	affiliate, err := s.affiliateRepo.GetByCode(normalized)
	if err != nil {
		return attributionBlocked(BlockInvalidState), err
	}
	if affiliate == nil || affiliate.Status != constants.AffiliateStatusApproved {
		return attributionBlocked(BlockUnknownCode), nil
	}
	if affiliate.UserID == userID {
		s.logOutcome("signup_attribution", attributionBlocked(BlockSelfReferral), "code", normalized, "user_id", userID)
		return attributionBlocked(BlockSelfReferral), nil
	}

	campaign, err := s.campaignRepo.GetByID(affiliate.CampaignID)
	if err != nil {
		return attributionBlocked(BlockInvalidState), err
	}
	cookieDays := 30
	if campaign != nil && campaign.CookieDurationDays > 0 {
		cookieDays = campaign.CookieDurationDays
	}

	now := time.Now()
	referral := &models.Referral{
		ReferralID:  uuid.NewString(),
		AffiliateID: affiliate.ID,
		Status:      constants.ReferralStatusSignedUp,
		UserID:      userID,
		ClickedAt:   now,
		ExpiresAt:   now.Add(time.Duration(cookieDays) * 24 * time.Hour),
	}
	err = s.referralRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.referralRepo.WithTx(tx).Create(referral); err != nil {
			return err
		}
		if err := s.affiliateRepo.WithTx(tx).IncrementStats(affiliate.ID, "signups", 1); err != nil {
			return err
		}
		return s.analyticsRepo.WithTx(tx).Append(&models.AnalyticsEvent{
			EventType:   constants.AnalyticsEventSignup,
			AffiliateID: affiliate.ID,
			ReferralID:  &referral.ID,
		})
	})
	if err != nil {
		return attributionBlocked(BlockInvalidState), err
	}

	s.logOutcome("signup_attribution", attributionOK(), "code", normalized, "user_id", userID)
	return attributionOK(), nil
}

// LinkCustomer 把支付侧客户ID绑定到推荐记录
// 无用户标识的绑定一律拒绝，游客下单是刷单高发面
func (s *AttributionService) LinkCustomer(customerID, userID, code string) (AttributionOutcome, error) {
	customerID = strings.TrimSpace(customerID)
	userID = strings.TrimSpace(userID)
	if customerID == "" {
		return attributionBlocked(BlockInvalidState), nil
	}

	existing, err := s.referralRepo.GetByCustomerID(customerID)
	if err != nil {
		return attributionBlocked(BlockInvalidState), err
	}
	if existing != nil {
		return attributionBlocked(BlockCustomerAlreadyAttributed), nil
	}

	if userID == "" {
		s.logOutcome("customer_link", attributionBlocked(BlockGuestCheckout), "customer_id", customerID, "code", code)
		return attributionBlocked(BlockGuestCheckout), nil
	}

	outcome := attributionBlocked(BlockInvalidState)
	err = s.referralRepo.Transaction(func(tx *gorm.DB) error {
		referralTx := s.referralRepo.WithTx(tx)
		referral, err := referralTx.GetByUserIDForUpdate(userID)
		if err != nil {
			return err
		}
		if referral == nil {
			outcome = attributionBlocked(BlockUnknownCode)
			return nil
		}
		if referral.CustomerID != nil {
			outcome = attributionBlocked(BlockCustomerAlreadyAttributed)
			return nil
		}

		affiliate, err := s.affiliateRepo.WithTx(tx).GetByID(referral.AffiliateID)
		if err != nil {
			return err
		}
		if affiliate == nil {
			outcome = attributionBlocked(BlockInvalidState)
			return nil
		}
		if affiliate.UserID == userID {
			outcome = attributionBlocked(BlockSelfReferral)
			return nil
		}

		referral.CustomerID = &customerID
		if err := referralTx.Update(referral); err != nil {
			return err
		}
		outcome = attributionOK()
		return nil
	})
	if err != nil {
		// 并发下撞客户唯一索引按先写者胜处理
		if isUniqueViolation(err) {
			return attributionBlocked(BlockCustomerAlreadyAttributed), nil
		}
		return attributionBlocked(BlockInvalidState), err
	}

	s.logOutcome("customer_link", outcome, "customer_id", customerID, "user_id", userID)
	return outcome, nil
}

func (s *AttributionService) logOutcome(action string, outcome AttributionOutcome, kv ...interface{}) {
	fields := append([]interface{}{"ok", outcome.OK}, kv...)
	if outcome.OK {
		logger.Infow(action+"_ok", fields...)
		return
	}
	fields = append(fields, "reason", string(outcome.Blocked))
	logger.Infow(action+"_blocked", fields...)
}
