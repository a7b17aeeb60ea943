package models

import "time"

// AnalyticsEvent 分析事件（只追加，不修改不删除）
type AnalyticsEvent struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                       // 主键
	EventType   string    `gorm:"type:varchar(20);not null;index" json:"event_type"`          // 事件类型
	AffiliateID uint      `gorm:"not null;index" json:"affiliate_id"`                         // 推广人ID
	ReferralID  *uint     `gorm:"index" json:"referral_id,omitempty"`                         // 推荐记录ID
	AmountCents int64     `gorm:"not null;default:0" json:"amount_cents"`                     // 相关金额（分）
	CreatedAt   time.Time `gorm:"index;not null;default:CURRENT_TIMESTAMP" json:"created_at"` // 发生时间
}

// TableName 指定表名
func (AnalyticsEvent) TableName() string {
	return "analytics_events"
}
