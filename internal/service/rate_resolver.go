package service

import (
	"time"

	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/models"
	"github.com/refergate/refergate/internal/repository"
)

// 费率来源标识，写入日志便于排查结算争议
const (
	RateSourceCustomOverride  = "custom_override"
	RateSourceProductRate     = "product_rate"
	RateSourceTier            = "tier"
	RateSourceCampaignDefault = "campaign_default"
)

// ResolvedRate 费率解析结果
type ResolvedRate struct {
	Type   string      `json:"type"`
	Value  models.Rate `json:"value"`
	Source string      `json:"source"`
}

// RateResolver 佣金费率解析器
// 优先级：推广人专属费率 > 商品级费率 > 阶梯费率 > 活动默认费率
type RateResolver struct {
	campaignRepo repository.CampaignRepository
}

// NewRateResolver 创建费率解析器
func NewRateResolver(campaignRepo repository.CampaignRepository) *RateResolver {
	return &RateResolver{campaignRepo: campaignRepo}
}

// Resolve 解析某次销售适用的费率
func (r *RateResolver) Resolve(affiliate *models.Affiliate, campaign *models.Campaign, productID string) (ResolvedRate, error) {
	if affiliate == nil || campaign == nil {
		return ResolvedRate{}, ErrInvalidInput
	}

	if affiliate.HasCustomRate() {
		return ResolvedRate{
			Type:   affiliate.CustomRateType,
			Value:  affiliate.CustomRate,
			Source: RateSourceCustomOverride,
		}, nil
	}

	if productID != "" && r.campaignRepo != nil {
		productRate, err := r.campaignRepo.GetProductRate(campaign.ID, productID)
		if err != nil {
			return ResolvedRate{}, err
		}
		if productRate != nil {
			return ResolvedRate{
				Type:   productRate.RateType,
				Value:  productRate.RateValue,
				Source: RateSourceProductRate,
			}, nil
		}
	}

	if r.campaignRepo != nil {
		tiers, err := r.campaignRepo.ListTiers(campaign.ID)
		if err != nil {
			return ResolvedRate{}, err
		}
		// 门槛降序排列，第一个满足的即最高档
		for _, tier := range tiers {
			if affiliate.Conversions >= tier.MinReferrals {
				return ResolvedRate{
					Type:   tier.RateType,
					Value:  tier.RateValue,
					Source: RateSourceTier,
				}, nil
			}
		}
	}

	return ResolvedRate{
		Type:   campaign.CommissionType,
		Value:  campaign.CommissionValue,
		Source: RateSourceCampaignDefault,
	}, nil
}

// CommissionAmountCents 按解析费率计算佣金金额（分）
func (rr ResolvedRate) CommissionAmountCents(saleCents int64) int64 {
	amount := rr.Value.ApplyTo(rr.Type, saleCents)
	if amount < 0 {
		return 0
	}
	return amount
}

// payoutTermDelay 账期到可结算时间的延迟
func payoutTermDelay(term string) time.Duration {
	switch term {
	case constants.PayoutTermNet0:
		return 0
	case constants.PayoutTermNet15:
		return 15 * 24 * time.Hour
	case constants.PayoutTermNet60:
		return 60 * 24 * time.Hour
	case constants.PayoutTermNet90:
		return 90 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}
