package models

import (
	"time"

	"gorm.io/gorm"
)

// Campaign 推广活动
type Campaign struct {
	ID                  uint           `gorm:"primarykey" json:"id"`                                            // 主键
	Slug                string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"slug"`               // 活动标识（创建后不可变）
	Name                string         `gorm:"type:varchar(128);not null" json:"name"`                          // 活动名称
	CommissionType      string         `gorm:"type:varchar(20);not null" json:"commission_type"`                // 佣金类型 percentage/fixed
	CommissionValue     Rate           `gorm:"type:decimal(10,2);not null;default:0" json:"commission_value"`   // 默认佣金费率
	CommissionDuration  string         `gorm:"type:varchar(20);not null;default:'lifetime'" json:"commission_duration"` // 佣金周期策略
	DurationLimit       int            `gorm:"not null;default:0" json:"duration_limit"`                        // 周期上限（次数或月数）
	PayoutTerm          string         `gorm:"type:varchar(10);not null;default:'net_30'" json:"payout_term"`   // 结算账期
	CookieDurationDays  int            `gorm:"not null;default:30" json:"cookie_duration_days"`                 // 推荐有效期（天）
	MinPayoutCents      int64          `gorm:"not null;default:0" json:"min_payout_cents"`                      // 最低结算金额（分）
	AllowedProducts     StringList     `gorm:"type:text" json:"allowed_products"`                               // 允许计佣的商品（空为全部）
	DeniedProducts      StringList     `gorm:"type:text" json:"denied_products"`                                // 禁止计佣的商品
	RefereeDiscountType string         `gorm:"type:varchar(20)" json:"referee_discount_type"`                   // 被推荐人优惠类型
	RefereeDiscountValue Rate          `gorm:"type:decimal(10,2);not null;default:0" json:"referee_discount_value"` // 被推荐人优惠值
	IsDefault           bool           `gorm:"not null;default:false;index" json:"is_default"`                  // 是否默认活动
	CreatedAt           time.Time      `gorm:"index" json:"created_at"`                                         // 创建时间
	UpdatedAt           time.Time      `gorm:"index" json:"updated_at"`                                         // 更新时间
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`                                                  // 软删除时间
}

// TableName 指定表名
func (Campaign) TableName() string {
	return "campaigns"
}

// CampaignProductRate 活动商品级佣金费率
type CampaignProductRate struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                                                // 主键
	CampaignID uint      `gorm:"not null;index;index:idx_campaign_product_rate_unique,unique" json:"campaign_id"`     // 活动ID
	ProductID  string    `gorm:"type:varchar(64);not null;index:idx_campaign_product_rate_unique,unique" json:"product_id"` // 商品ID
	RateType   string    `gorm:"type:varchar(20);not null" json:"rate_type"`                                          // 费率类型
	RateValue  Rate      `gorm:"type:decimal(10,2);not null;default:0" json:"rate_value"`                             // 费率值
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                                                             // 创建时间
	UpdatedAt  time.Time `json:"updated_at"`                                                                          // 更新时间

	Campaign Campaign `gorm:"foreignKey:CampaignID" json:"campaign,omitempty"` // 所属活动
}

// TableName 指定表名
func (CampaignProductRate) TableName() string {
	return "campaign_product_rates"
}

// CampaignTier 活动阶梯费率（按累计转化数）
type CampaignTier struct {
	ID           uint      `gorm:"primarykey" json:"id"`                                                         // 主键
	CampaignID   uint      `gorm:"not null;index;index:idx_campaign_tier_unique,unique" json:"campaign_id"`      // 活动ID
	MinReferrals int64     `gorm:"not null;default:0;index:idx_campaign_tier_unique,unique" json:"min_referrals"` // 阶梯门槛（转化数）
	RateType     string    `gorm:"type:varchar(20);not null" json:"rate_type"`                                   // 费率类型
	RateValue    Rate      `gorm:"type:decimal(10,2);not null;default:0" json:"rate_value"`                      // 费率值
	CreatedAt    time.Time `gorm:"index" json:"created_at"`                                                      // 创建时间
	UpdatedAt    time.Time `json:"updated_at"`                                                                   // 更新时间

	Campaign Campaign `gorm:"foreignKey:CampaignID" json:"campaign,omitempty"` // 所属活动
}

// TableName 指定表名
func (CampaignTier) TableName() string {
	return "campaign_tiers"
}
