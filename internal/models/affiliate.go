package models

import (
	"time"

	"gorm.io/gorm"
)

// Affiliate 推广人档案
// 统计列只允许 Tracker 与 Ledger 在事务内更新，永不为负
type Affiliate struct {
	ID             uint           `gorm:"primarykey" json:"id"`                              // 主键
	UserID         string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"user_id"` // 外部用户ID
	Code           string         `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"` // 推荐码
	CampaignID     uint           `gorm:"not null;index" json:"campaign_id"`                 // 所属活动
	Status         string         `gorm:"type:varchar(20);not null;index" json:"status"`     // 状态
	PayoutEmail    string         `gorm:"type:varchar(255)" json:"payout_email"`             // 收款邮箱
	CustomRateType string         `gorm:"type:varchar(20)" json:"custom_rate_type"`          // 专属费率类型（空为未设置）
	CustomRate     Rate           `gorm:"type:decimal(10,2);not null;default:0" json:"custom_rate"` // 专属费率值
	Clicks         int64          `gorm:"not null;default:0" json:"clicks"`                  // 累计点击数
	Signups        int64          `gorm:"not null;default:0" json:"signups"`                 // 累计注册数
	Conversions    int64          `gorm:"not null;default:0" json:"conversions"`             // 累计转化数
	RevenueCents   int64          `gorm:"not null;default:0" json:"revenue_cents"`           // 累计带来销售额（分）
	CommissionsCents int64        `gorm:"not null;default:0" json:"commissions_cents"`       // 累计佣金总额（分）
	PendingCents   int64          `gorm:"not null;default:0" json:"pending_cents"`           // 未结算佣金（分）
	PaidCents      int64          `gorm:"not null;default:0" json:"paid_cents"`              // 已结算佣金（分）
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                           // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                    // 软删除时间

	Campaign Campaign `gorm:"foreignKey:CampaignID" json:"campaign,omitempty"` // 所属活动
}

// TableName 指定表名
func (Affiliate) TableName() string {
	return "affiliates"
}

// HasCustomRate 是否配置了专属费率
func (a *Affiliate) HasCustomRate() bool {
	return a.CustomRateType != ""
}
