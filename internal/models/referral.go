package models

import "time"

// Referral 推荐记录（点击 → 注册 → 转化 的状态机载体）
type Referral struct {
	ID          uint       `gorm:"primarykey" json:"id"`                                       // 主键
	ReferralID  string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"referral_id"`   // 对外推荐标识
	AffiliateID uint       `gorm:"not null;index" json:"affiliate_id"`                         // 推广人ID
	Status      string     `gorm:"type:varchar(20);not null;index" json:"status"`              // 状态
	UserID      string     `gorm:"type:varchar(64);index" json:"user_id"`                      // 注册后绑定的用户ID
	CustomerID  *string    `gorm:"type:varchar(64);uniqueIndex" json:"customer_id,omitempty"`  // 支付侧客户ID（全局唯一）
	LandingPage string     `gorm:"type:varchar(512)" json:"landing_page"`                      // 落地页面
	ClientIP    string     `gorm:"type:varchar(64)" json:"client_ip"`                          // 点击来源IP
	ClickedAt   time.Time  `gorm:"index;not null" json:"clicked_at"`                           // 点击时间
	ExpiresAt   time.Time  `gorm:"index;not null" json:"expires_at"`                           // 归因窗口截止时间
	ConvertedAt *time.Time `json:"converted_at,omitempty"`                                     // 首次转化时间
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt   time.Time  `json:"updated_at"`                                                 // 更新时间

	Affiliate Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 推广人
}

// TableName 指定表名
func (Referral) TableName() string {
	return "referrals"
}
