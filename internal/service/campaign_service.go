package service

import (
	"strings"

	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/logger"
	"github.com/refergate/refergate/internal/models"
	"github.com/refergate/refergate/internal/repository"
)

// CampaignService 推广活动管理服务
type CampaignService struct {
	repo repository.CampaignRepository
}

// NewCampaignService 创建活动服务
func NewCampaignService(repo repository.CampaignRepository) *CampaignService {
	return &CampaignService{repo: repo}
}

// CampaignInput 活动创建/更新输入
type CampaignInput struct {
	Slug                 string            `json:"slug"`
	Name                 string            `json:"name"`
	CommissionType       string            `json:"commission_type"`
	CommissionValue      models.Rate       `json:"commission_value"`
	CommissionDuration   string            `json:"commission_duration"`
	DurationLimit        int               `json:"duration_limit"`
	PayoutTerm           string            `json:"payout_term"`
	CookieDurationDays   int               `json:"cookie_duration_days"`
	MinPayoutCents       int64             `json:"min_payout_cents"`
	AllowedProducts      models.StringList `json:"allowed_products"`
	DeniedProducts       models.StringList `json:"denied_products"`
	RefereeDiscountType  string            `json:"referee_discount_type"`
	RefereeDiscountValue models.Rate       `json:"referee_discount_value"`
}

// Create 创建活动
func (s *CampaignService) Create(input CampaignInput) (*models.Campaign, error) {
	slug := normalizeSlug(input.Slug)
	if slug == "" || strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidInput
	}
	if err := validateCampaignInput(&input); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	campaign := &models.Campaign{
		Slug:                 slug,
		Name:                 strings.TrimSpace(input.Name),
		CommissionType:       input.CommissionType,
		CommissionValue:      input.CommissionValue,
		CommissionDuration:   input.CommissionDuration,
		DurationLimit:        input.DurationLimit,
		PayoutTerm:           input.PayoutTerm,
		CookieDurationDays:   input.CookieDurationDays,
		MinPayoutCents:       input.MinPayoutCents,
		AllowedProducts:      input.AllowedProducts,
		DeniedProducts:       input.DeniedProducts,
		RefereeDiscountType:  input.RefereeDiscountType,
		RefereeDiscountValue: input.RefereeDiscountValue,
	}
	if campaign.CookieDurationDays <= 0 {
		campaign.CookieDurationDays = 30
	}
	if err := s.repo.Create(campaign); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	logger.Infow("campaign_created", "campaign_id", campaign.ID, "slug", campaign.Slug)
	return campaign, nil
}

// Update 更新活动，slug 不可变更
func (s *CampaignService) Update(id uint, input CampaignInput) (*models.Campaign, error) {
	campaign, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrNotFound
	}
	if slug := normalizeSlug(input.Slug); slug != "" && slug != campaign.Slug {
		return nil, ErrSlugImmutable
	}
	if err := validateCampaignInput(&input); err != nil {
		return nil, err
	}

	campaign.Name = strings.TrimSpace(input.Name)
	campaign.CommissionType = input.CommissionType
	campaign.CommissionValue = input.CommissionValue
	campaign.CommissionDuration = input.CommissionDuration
	campaign.DurationLimit = input.DurationLimit
	campaign.PayoutTerm = input.PayoutTerm
	campaign.CookieDurationDays = input.CookieDurationDays
	campaign.MinPayoutCents = input.MinPayoutCents
	campaign.AllowedProducts = input.AllowedProducts
	campaign.DeniedProducts = input.DeniedProducts
	campaign.RefereeDiscountType = input.RefereeDiscountType
	campaign.RefereeDiscountValue = input.RefereeDiscountValue
	if campaign.CookieDurationDays <= 0 {
		campaign.CookieDurationDays = 30
	}

	if err := s.repo.Update(campaign); err != nil {
		return nil, err
	}
	logger.Infow("campaign_updated", "campaign_id", campaign.ID, "slug", campaign.Slug)
	return campaign, nil
}

// GetByID 按ID获取活动
func (s *CampaignService) GetByID(id uint) (*models.Campaign, error) {
	campaign, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrNotFound
	}
	return campaign, nil
}

// GetBySlug 按标识获取活动
func (s *CampaignService) GetBySlug(slug string) (*models.Campaign, error) {
	campaign, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrNotFound
	}
	return campaign, nil
}

// List 管理端查询活动列表
func (s *CampaignService) List(filter repository.CampaignListFilter) ([]models.Campaign, uint, error) {
	return s.repo.List(filter)
}

// SetDefault 切换默认活动
func (s *CampaignService) SetDefault(id uint) (*models.Campaign, error) {
	campaign, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrNotFound
	}
	if err := s.repo.SetDefault(id); err != nil {
		return nil, err
	}
	campaign.IsDefault = true
	logger.Infow("campaign_default_changed", "campaign_id", id)
	return campaign, nil
}

// SetProductRate 设置活动商品级费率（同商品重复设置视为冲突）
func (s *CampaignService) SetProductRate(campaignID uint, productID, rateType string, rate models.Rate) (*models.CampaignProductRate, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" || !isValidRateType(rateType) {
		return nil, ErrInvalidInput
	}
	campaign, err := s.repo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrNotFound
	}

	productRate := &models.CampaignProductRate{
		CampaignID: campaignID,
		ProductID:  productID,
		RateType:   rateType,
		RateValue:  rate,
	}
	if err := s.repo.CreateProductRate(productRate); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return productRate, nil
}

// ListProductRates 查询活动商品级费率
func (s *CampaignService) ListProductRates(campaignID uint) ([]models.CampaignProductRate, error) {
	return s.repo.ListProductRates(campaignID)
}

// DeleteProductRate 删除活动商品级费率
func (s *CampaignService) DeleteProductRate(id uint) error {
	return s.repo.DeleteProductRate(id)
}

// AddTier 添加活动阶梯费率
func (s *CampaignService) AddTier(campaignID uint, minReferrals int64, rateType string, rate models.Rate) (*models.CampaignTier, error) {
	if minReferrals < 0 || !isValidRateType(rateType) {
		return nil, ErrInvalidInput
	}
	campaign, err := s.repo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrNotFound
	}

	tier := &models.CampaignTier{
		CampaignID:   campaignID,
		MinReferrals: minReferrals,
		RateType:     rateType,
		RateValue:    rate,
	}
	if err := s.repo.CreateTier(tier); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return tier, nil
}

// ListTiers 查询活动阶梯费率，按门槛降序
func (s *CampaignService) ListTiers(campaignID uint) ([]models.CampaignTier, error) {
	return s.repo.ListTiers(campaignID)
}

// DeleteTier 删除活动阶梯费率
func (s *CampaignService) DeleteTier(id uint) error {
	return s.repo.DeleteTier(id)
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

func isValidRateType(rateType string) bool {
	return rateType == constants.CommissionTypePercentage || rateType == constants.CommissionTypeFixed
}

func validateCampaignInput(input *CampaignInput) error {
	if !isValidRateType(input.CommissionType) {
		return ErrInvalidInput
	}
	switch input.CommissionDuration {
	case "", constants.CommissionDurationLifetime:
		input.CommissionDuration = constants.CommissionDurationLifetime
	case constants.CommissionDurationMaxPayments, constants.CommissionDurationMaxMonths:
		if input.DurationLimit <= 0 {
			return ErrInvalidInput
		}
	default:
		return ErrInvalidInput
	}
	switch input.PayoutTerm {
	case "":
		input.PayoutTerm = constants.PayoutTermNet30
	case constants.PayoutTermNet0, constants.PayoutTermNet15, constants.PayoutTermNet30,
		constants.PayoutTermNet60, constants.PayoutTermNet90:
	default:
		return ErrInvalidInput
	}
	if input.RefereeDiscountType != "" &&
		input.RefereeDiscountType != constants.RefereeDiscountPercentage &&
		input.RefereeDiscountType != constants.RefereeDiscountFixed {
		return ErrInvalidInput
	}
	if input.MinPayoutCents < 0 {
		return ErrInvalidInput
	}
	return nil
}
