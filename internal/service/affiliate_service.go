package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/refergate/refergate/internal/cache"
	"github.com/refergate/refergate/internal/config"
	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/logger"
	"github.com/refergate/refergate/internal/models"
	"github.com/refergate/refergate/internal/repository"
	"gorm.io/gorm"
)

const (
	affiliateCodeLength     = 8
	affiliateCodeMaxRetries = 5
)

// AffiliateService 推广人业务服务
type AffiliateService struct {
	repo          repository.AffiliateRepository
	campaignRepo  repository.CampaignRepository
	hookService   *HookService
	portalBaseURL string
	linkParam     string
}

// NewAffiliateService 创建推广人服务
func NewAffiliateService(
	repo repository.AffiliateRepository,
	campaignRepo repository.CampaignRepository,
	hookService *HookService,
	cfg *config.ReferralConfig,
) *AffiliateService {
	baseURL := ""
	linkParam := "ref"
	if cfg != nil {
		baseURL = strings.TrimRight(strings.TrimSpace(cfg.PortalBaseURL), "/")
		if strings.TrimSpace(cfg.LinkParam) != "" {
			linkParam = strings.TrimSpace(cfg.LinkParam)
		}
	}
	return &AffiliateService{
		repo:          repo,
		campaignRepo:  campaignRepo,
		hookService:   hookService,
		portalBaseURL: baseURL,
		linkParam:     linkParam,
	}
}

// AffiliateRegisterInput 推广人注册输入
type AffiliateRegisterInput struct {
	UserID       string
	CampaignSlug string
	PayoutEmail  string
}

// AffiliatePortal 推广人门户数据
type AffiliatePortal struct {
	Code             string `json:"code"`
	Status           string `json:"status"`
	Link             string `json:"link"`
	Clicks           int64  `json:"clicks"`
	Signups          int64  `json:"signups"`
	Conversions      int64  `json:"conversions"`
	RevenueCents     int64  `json:"revenue_cents"`
	CommissionsCents int64  `json:"commissions_cents"`
	PendingCents     int64  `json:"pending_cents"`
	PaidCents        int64  `json:"paid_cents"`
}

// Register 注册推广人：一个用户只能有一个档案，推荐码冲突时重试生成
func (s *AffiliateService) Register(input AffiliateRegisterInput) (*models.Affiliate, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, ErrInvalidInput
	}

	existing, err := s.repo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	campaign, err := s.resolveCampaign(input.CampaignSlug)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrNotFound
	}

	var affiliate *models.Affiliate
	for attempt := 0; attempt < affiliateCodeMaxRetries; attempt++ {
		code, genErr := generateReferralCode()
		if genErr != nil {
			return nil, genErr
		}
		candidate := &models.Affiliate{
			UserID:      userID,
			Code:        code,
			CampaignID:  campaign.ID,
			Status:      constants.AffiliateStatusPending,
			PayoutEmail: strings.TrimSpace(input.PayoutEmail),
		}
		createErr := s.repo.Transaction(func(tx *gorm.DB) error {
			repoTx := s.repo.WithTx(tx)
			if err := repoTx.Create(candidate); err != nil {
				return err
			}
			return s.hookService.EmitTx(tx, constants.HookAffiliateRegistered, map[string]interface{}{
				"affiliate_id": candidate.ID,
				"user_id":      candidate.UserID,
				"code":         candidate.Code,
				"campaign_id":  candidate.CampaignID,
			})
		})
		if createErr == nil {
			affiliate = candidate
			break
		}
		if isUniqueViolation(createErr) {
			// 同一用户并发注册也会撞唯一索引，按已存在处理
			if again, checkErr := s.repo.GetByUserID(userID); checkErr == nil && again != nil {
				return nil, ErrAlreadyExists
			}
			continue
		}
		return nil, createErr
	}
	if affiliate == nil {
		return nil, ErrInternal
	}

	s.hookService.NotifyDispatcher()
	logger.Infow("affiliate_registered",
		"affiliate_id", affiliate.ID,
		"user_id", affiliate.UserID,
		"code", affiliate.Code,
	)
	return affiliate, nil
}

// UpdateStatus 管理端更新推广人状态
func (s *AffiliateService) UpdateStatus(id uint, rawStatus string) (*models.Affiliate, error) {
	status := strings.ToLower(strings.TrimSpace(rawStatus))
	hook := ""
	switch status {
	case constants.AffiliateStatusApproved:
		hook = constants.HookAffiliateApproved
	case constants.AffiliateStatusRejected:
		hook = constants.HookAffiliateRejected
	case constants.AffiliateStatusSuspended:
		hook = constants.HookAffiliateSuspended
	default:
		return nil, ErrInvalidInput
	}

	affiliate, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	if affiliate.Status == status {
		return affiliate, nil
	}

	now := time.Now()
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		if err := repoTx.UpdateStatus(id, status, now); err != nil {
			return err
		}
		return s.hookService.EmitTx(tx, hook, map[string]interface{}{
			"affiliate_id": affiliate.ID,
			"user_id":      affiliate.UserID,
			"status":       status,
		})
	})
	if err != nil {
		return nil, err
	}
	affiliate.Status = status
	affiliate.UpdatedAt = now

	// 状态变化后作废热路径缓存
	if cacheErr := cache.DelAffiliateState(context.Background(), affiliate.Code); cacheErr != nil {
		logger.Warnw("affiliate_cache_invalidate_failed", "code", affiliate.Code, "error", cacheErr)
	}

	s.hookService.NotifyDispatcher()
	logger.Infow("affiliate_status_updated",
		"affiliate_id", affiliate.ID,
		"status", status,
	)
	return affiliate, nil
}

// SetCustomRate 管理端设置推广人专属费率，rateType 为空表示清除
func (s *AffiliateService) SetCustomRate(id uint, rateType string, rate models.Rate) (*models.Affiliate, error) {
	normalized := strings.ToLower(strings.TrimSpace(rateType))
	if normalized != "" &&
		normalized != constants.CommissionTypePercentage &&
		normalized != constants.CommissionTypeFixed {
		return nil, ErrInvalidInput
	}
	affiliate, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	affiliate.CustomRateType = normalized
	affiliate.CustomRate = rate
	if err := s.repo.Update(affiliate); err != nil {
		return nil, err
	}
	if cacheErr := cache.DelAffiliateState(context.Background(), affiliate.Code); cacheErr != nil {
		logger.Warnw("affiliate_cache_invalidate_failed", "code", affiliate.Code, "error", cacheErr)
	}
	return affiliate, nil
}

// GetByID 按ID获取推广人
func (s *AffiliateService) GetByID(id uint) (*models.Affiliate, error) {
	affiliate, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	return affiliate, nil
}

// GetByUserID 按外部用户ID获取推广人
func (s *AffiliateService) GetByUserID(userID string) (*models.Affiliate, error) {
	affiliate, err := s.repo.GetByUserID(strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	return affiliate, nil
}

// List 管理端查询推广人列表
func (s *AffiliateService) List(filter repository.AffiliateListFilter) ([]models.Affiliate, uint, error) {
	return s.repo.List(filter)
}

// Portal 推广人门户：统计与推广链接
func (s *AffiliateService) Portal(userID string) (*AffiliatePortal, error) {
	affiliate, err := s.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	return &AffiliatePortal{
		Code:             affiliate.Code,
		Status:           affiliate.Status,
		Link:             s.BuildLink(affiliate.Code),
		Clicks:           affiliate.Clicks,
		Signups:          affiliate.Signups,
		Conversions:      affiliate.Conversions,
		RevenueCents:     affiliate.RevenueCents,
		CommissionsCents: affiliate.CommissionsCents,
		PendingCents:     affiliate.PendingCents,
		PaidCents:        affiliate.PaidCents,
	}, nil
}

// BuildLink 生成推广链接
func (s *AffiliateService) BuildLink(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" || s.portalBaseURL == "" {
		return ""
	}
	return s.portalBaseURL + "/?" + url.Values{s.linkParam: {trimmed}}.Encode()
}

func (s *AffiliateService) resolveCampaign(slug string) (*models.Campaign, error) {
	if strings.TrimSpace(slug) == "" {
		return s.campaignRepo.GetDefault()
	}
	return s.campaignRepo.GetBySlug(slug)
}

func generateReferralCode() (string, error) {
	alphabet := constants.ReferralCodeAlphabet
	var builder strings.Builder
	builder.Grow(affiliateCodeLength)
	limit := big.NewInt(int64(len(alphabet)))
	for i := 0; i < affiliateCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
