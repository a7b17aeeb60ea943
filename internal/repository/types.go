package repository

import "time"

// CampaignListFilter 查询推广活动列表的过滤条件
type CampaignListFilter struct {
	Cursor  uint
	Limit   int
	Search  string
	Default *bool
}

// AffiliateListFilter 查询推广人列表的过滤条件
type AffiliateListFilter struct {
	Cursor     uint
	Limit      int
	CampaignID uint
	Status     string
	Search     string
}

// ReferralListFilter 查询推荐记录列表的过滤条件
type ReferralListFilter struct {
	Cursor      uint
	Limit       int
	AffiliateID uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CommissionListFilter 查询佣金列表的过滤条件
type CommissionListFilter struct {
	Cursor      uint
	Limit       int
	AffiliateID uint
	Status      string
	ProductID   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PayoutListFilter 查询结算单列表的过滤条件
type PayoutListFilter struct {
	Cursor      uint
	Limit       int
	AffiliateID uint
	Status      string
}

// AnalyticsEventListFilter 查询分析事件列表的过滤条件
type AnalyticsEventListFilter struct {
	Cursor      uint
	Limit       int
	AffiliateID uint
	EventType   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
