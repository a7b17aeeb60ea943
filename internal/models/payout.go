package models

import (
	"time"

	"gorm.io/gorm"
)

// Payout 结算单
type Payout struct {
	ID               uint           `gorm:"primarykey" json:"id"`                          // 主键
	AffiliateID      uint           `gorm:"not null;index" json:"affiliate_id"`            // 推广人ID
	AmountCents      int64          `gorm:"not null;default:0" json:"amount_cents"`        // 结算金额（分）
	CommissionsCount int            `gorm:"not null;default:0" json:"commissions_count"`   // 包含佣金条数
	PeriodStart      time.Time      `gorm:"index" json:"period_start"`                     // 结算周期开始
	PeriodEnd        time.Time      `gorm:"index" json:"period_end"`                       // 结算周期结束
	Status           string         `gorm:"type:varchar(20);not null;index" json:"status"` // 状态
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`                        // 完成时间
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt        time.Time      `json:"updated_at"`                                    // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间

	Affiliate Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 推广人
}

// TableName 指定表名
func (Payout) TableName() string {
	return "payouts"
}
