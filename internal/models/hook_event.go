package models

import "time"

// HookEvent 生命周期钩子事件（发件箱）
// 与业务变更同事务写入，由 worker 异步派发；派发失败不回滚业务
type HookEvent struct {
	ID           uint       `gorm:"primarykey" json:"id"`                              // 主键
	Hook         string     `gorm:"type:varchar(64);not null;index" json:"hook"`       // 钩子名称
	Payload      string     `gorm:"type:text;not null" json:"payload"`                 // JSON 负载
	Dispatched   bool       `gorm:"not null;default:false;index" json:"dispatched"`    // 是否已派发
	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`                           // 派发时间
	Attempts     int        `gorm:"not null;default:0" json:"attempts"`                // 派发尝试次数
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt    time.Time  `json:"updated_at"`                                        // 更新时间
}

// TableName 指定表名
func (HookEvent) TableName() string {
	return "hook_events"
}
