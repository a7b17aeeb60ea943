package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/refergate/refergate/internal/models"
)

const affiliateStateCacheTTL = 10 * time.Minute

// AffiliateState 推广人快照
// 点击与校验是热路径，用快照避免每次点击都查库
type AffiliateState struct {
	AffiliateID        uint   `json:"affiliate_id"`
	Code               string `json:"code"`
	Status             string `json:"status"`
	CampaignID         uint   `json:"campaign_id"`
	CookieDurationDays int    `json:"cookie_duration_days"`
	UpdatedAt          int64  `json:"updated_at"`
}

func affiliateStateKey(code string) string {
	return fmt.Sprintf("affiliate:code:%s", code)
}

// BuildAffiliateState 从模型构建推广人快照
func BuildAffiliateState(affiliate *models.Affiliate, campaign *models.Campaign) *AffiliateState {
	if affiliate == nil {
		return nil
	}
	state := &AffiliateState{
		AffiliateID: affiliate.ID,
		Code:        affiliate.Code,
		Status:      affiliate.Status,
		CampaignID:  affiliate.CampaignID,
		UpdatedAt:   time.Now().Unix(),
	}
	if campaign != nil {
		state.CookieDurationDays = campaign.CookieDurationDays
	}
	return state
}

// GetAffiliateState 获取推广人快照
func GetAffiliateState(ctx context.Context, code string) (*AffiliateState, bool, error) {
	if code == "" {
		return nil, false, nil
	}
	var state AffiliateState
	hit, err := GetJSON(ctx, affiliateStateKey(code), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetAffiliateState 写入推广人快照
func SetAffiliateState(ctx context.Context, state *AffiliateState) error {
	if state == nil || state.Code == "" {
		return nil
	}
	return SetJSON(ctx, affiliateStateKey(state.Code), state, affiliateStateCacheTTL)
}

// DelAffiliateState 删除推广人快照（状态变化后调用）
func DelAffiliateState(ctx context.Context, code string) error {
	if code == "" {
		return nil
	}
	return Del(ctx, affiliateStateKey(code))
}
