package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/refergate/refergate/internal/cache"
	"github.com/refergate/refergate/internal/config"
	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/logger"
	"github.com/refergate/refergate/internal/models"
	"github.com/refergate/refergate/internal/repository"
	"gorm.io/gorm"
)

// TrackerService 点击追踪与推荐生命周期服务
type TrackerService struct {
	referralRepo  repository.ReferralRepository
	affiliateRepo repository.AffiliateRepository
	campaignRepo  repository.CampaignRepository
	analyticsRepo repository.AnalyticsRepository
	rateLimit     config.ClickRateLimitConfig
}

// NewTrackerService 创建追踪服务
func NewTrackerService(
	referralRepo repository.ReferralRepository,
	affiliateRepo repository.AffiliateRepository,
	campaignRepo repository.CampaignRepository,
	analyticsRepo repository.AnalyticsRepository,
	cfg *config.SecurityConfig,
) *TrackerService {
	rateLimit := config.ClickRateLimitConfig{}
	if cfg != nil {
		rateLimit = cfg.ClickRateLimit
	}
	return &TrackerService{
		referralRepo:  referralRepo,
		affiliateRepo: affiliateRepo,
		campaignRepo:  campaignRepo,
		analyticsRepo: analyticsRepo,
		rateLimit:     rateLimit,
	}
}

// TrackClickInput 点击记录输入
type TrackClickInput struct {
	Code        string
	LandingPage string
	ClientIP    string
}

// RefereeDiscount 被推荐人优惠
type RefereeDiscount struct {
	Type  string      `json:"type"`
	Value models.Rate `json:"value"`
}

// TrackClick 记录推广点击
// 未知或未通过审核的推荐码、触发限流的点击都静默丢弃，返回空推荐标识
func (s *TrackerService) TrackClick(input TrackClickInput) (string, error) {
	state, err := s.resolveAffiliateState(input.Code)
	if err != nil {
		return "", err
	}
	if state == nil || state.Status != constants.AffiliateStatusApproved {
		logger.Debugw("click_dropped_unknown_code", "code", input.Code)
		return "", nil
	}

	limited, err := s.clickRateExceeded(input.ClientIP)
	if err != nil {
		return "", err
	}
	if limited {
		logger.Warnw("click_dropped_rate_limited", "client_ip", input.ClientIP, "code", state.Code)
		return "", nil
	}

	now := time.Now()
	cookieDays := state.CookieDurationDays
	if cookieDays <= 0 {
		cookieDays = 30
	}
	referral := &models.Referral{
		ReferralID:  uuid.NewString(),
		AffiliateID: state.AffiliateID,
		Status:      constants.ReferralStatusClicked,
		LandingPage: strings.TrimSpace(input.LandingPage),
		ClientIP:    strings.TrimSpace(input.ClientIP),
		ClickedAt:   now,
		ExpiresAt:   now.Add(time.Duration(cookieDays) * 24 * time.Hour),
	}

	err = s.referralRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.referralRepo.WithTx(tx).Create(referral); err != nil {
			return err
		}
		if err := s.affiliateRepo.WithTx(tx).IncrementStats(state.AffiliateID, "clicks", 1); err != nil {
			return err
		}
		return s.analyticsRepo.WithTx(tx).Append(&models.AnalyticsEvent{
			EventType:   constants.AnalyticsEventClick,
			AffiliateID: state.AffiliateID,
			ReferralID:  &referral.ID,
		})
	})
	if err != nil {
		return "", err
	}

	logger.Infow("referral_click_tracked",
		"referral_id", referral.ReferralID,
		"affiliate_id", state.AffiliateID,
		"code", state.Code,
	)
	return referral.ReferralID, nil
}

// ExpireReferrals 批量过期超出归因窗口的点击记录，worker 定时调用
func (s *TrackerService) ExpireReferrals(now time.Time) (int64, error) {
	expired, err := s.referralRepo.ExpireClicked(now)
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		logger.Infow("referrals_expired", "count", expired)
	}
	return expired, nil
}

// ListReferrals 管理端查询推荐记录列表
func (s *TrackerService) ListReferrals(filter repository.ReferralListFilter) ([]models.Referral, uint, error) {
	return s.referralRepo.List(filter)
}

// ValidateCode 校验推荐码是否可用
func (s *TrackerService) ValidateCode(code string) (bool, error) {
	state, err := s.resolveAffiliateState(code)
	if err != nil {
		return false, err
	}
	return state != nil && state.Status == constants.AffiliateStatusApproved, nil
}

// GetRefereeDiscountByReferralID 按推荐标识查询被推荐人优惠
// 推荐标识受归因窗口约束，过期后不再返回优惠
func (s *TrackerService) GetRefereeDiscountByReferralID(referralID string) (*RefereeDiscount, error) {
	referral, err := s.referralRepo.GetByReferralID(referralID)
	if err != nil {
		return nil, err
	}
	if referral == nil || referral.Status == constants.ReferralStatusExpired {
		return nil, nil
	}
	if referral.Status == constants.ReferralStatusClicked && !referral.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	affiliate, err := s.affiliateRepo.GetByID(referral.AffiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, nil
	}
	return s.campaignDiscount(affiliate.CampaignID)
}

// GetRefereeDiscountByCode 按推荐码查询被推荐人优惠，不受时间窗口约束
func (s *TrackerService) GetRefereeDiscountByCode(code string) (*RefereeDiscount, error) {
	affiliate, err := s.affiliateRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if affiliate == nil || affiliate.Status != constants.AffiliateStatusApproved {
		return nil, nil
	}
	return s.campaignDiscount(affiliate.CampaignID)
}

func (s *TrackerService) campaignDiscount(campaignID uint) (*RefereeDiscount, error) {
	campaign, err := s.campaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil || campaign.RefereeDiscountType == "" {
		return nil, nil
	}
	return &RefereeDiscount{
		Type:  campaign.RefereeDiscountType,
		Value: campaign.RefereeDiscountValue,
	}, nil
}

// resolveAffiliateState 解析推荐码对应的推广人快照，优先走缓存
func (s *TrackerService) resolveAffiliateState(code string) (*cache.AffiliateState, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}

	ctx := context.Background()
	state, hit, err := cache.GetAffiliateState(ctx, normalized)
	if err != nil {
		logger.Warnw("affiliate_cache_read_failed", "code", normalized, "error", err)
	}
	if hit && state != nil {
		return state, nil
	}

	affiliate, err := s.affiliateRepo.GetByCode(normalized)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, nil
	}
	campaign, err := s.campaignRepo.GetByID(affiliate.CampaignID)
	if err != nil {
		return nil, err
	}

	state = cache.BuildAffiliateState(affiliate, campaign)
	if cacheErr := cache.SetAffiliateState(ctx, state); cacheErr != nil {
		logger.Warnw("affiliate_cache_write_failed", "code", normalized, "error", cacheErr)
	}
	return state, nil
}

// clickRateExceeded 用库内点击计数兜底限流，Redis 层限流在路由中间件
func (s *TrackerService) clickRateExceeded(clientIP string) (bool, error) {
	if s.rateLimit.WindowSeconds <= 0 || s.rateLimit.MaxClicks <= 0 {
		return false, nil
	}
	ip := strings.TrimSpace(clientIP)
	if ip == "" {
		return false, nil
	}
	since := time.Now().Add(-time.Duration(s.rateLimit.WindowSeconds) * time.Second)
	count, err := s.referralRepo.CountRecentClicksByIP(ip, since)
	if err != nil {
		return false, err
	}
	return count >= int64(s.rateLimit.MaxClicks), nil
}
