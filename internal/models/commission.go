package models

import (
	"time"

	"gorm.io/gorm"
)

// Commission 佣金记录
type Commission struct {
	ID                    uint           `gorm:"primarykey" json:"id"`                                      // 主键
	AffiliateID           uint           `gorm:"not null;index" json:"affiliate_id"`                        // 推广人ID
	ReferralID            uint           `gorm:"not null;index" json:"referral_id"`                         // 推荐记录ID
	CustomerID            string         `gorm:"type:varchar(64);not null;index" json:"customer_id"`        // 支付侧客户ID
	EventID               string         `gorm:"type:varchar(128);not null;uniqueIndex" json:"event_id"`    // 支付事件ID（幂等键）
	ChargeID              *string        `gorm:"type:varchar(128);uniqueIndex" json:"charge_id,omitempty"`  // 交易ID（退款回查）
	SubscriptionID        string         `gorm:"type:varchar(128);index" json:"subscription_id"`            // 订阅ID
	ProductID             string         `gorm:"type:varchar(64);index" json:"product_id"`                  // 商品ID
	SaleAmountCents       int64          `gorm:"not null;default:0" json:"sale_amount_cents"`               // 销售额（分）
	CommissionAmountCents int64          `gorm:"not null;default:0" json:"commission_amount_cents"`         // 佣金金额（分）
	RateType              string         `gorm:"type:varchar(20);not null" json:"rate_type"`                // 结算时费率类型
	RateValue             Rate           `gorm:"type:decimal(10,2);not null;default:0" json:"rate_value"`   // 结算时费率值
	Status                string         `gorm:"type:varchar(20);not null;index" json:"status"`             // 佣金状态
	DueAt                 time.Time      `gorm:"index;not null" json:"due_at"`                              // 可结算时间（按账期）
	PayoutID              *uint          `gorm:"index" json:"payout_id,omitempty"`                          // 关联结算单
	ReversalReason        string         `gorm:"type:varchar(255)" json:"reversal_reason"`                  // 冲销原因
	CreatedAt             time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt             time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	Affiliate Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 推广人
	Referral  Referral  `gorm:"foreignKey:ReferralID" json:"referral,omitempty"`   // 推荐记录
	Payout    *Payout   `gorm:"foreignKey:PayoutID" json:"payout,omitempty"`       // 结算单
}

// TableName 指定表名
func (Commission) TableName() string {
	return "commissions"
}
