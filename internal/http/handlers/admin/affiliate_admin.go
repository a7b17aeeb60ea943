package admin

import (
	"strconv"

	handlershared "github.com/refergate/refergate/internal/http/handlers/shared"
	"github.com/refergate/refergate/internal/http/response"
	"github.com/refergate/refergate/internal/models"
	"github.com/refergate/refergate/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListAffiliates 查询推广人列表
func (h *Handler) ListAffiliates(c *gin.Context) {
	cursor, limit := handlershared.ParseCursorQuery(c)
	filter := repository.AffiliateListFilter{
		Cursor: cursor,
		Limit:  limit,
		Status: c.Query("status"),
		Search: c.Query("search"),
	}
	if raw := c.Query("campaign_id"); raw != "" {
		if campaignID, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.CampaignID = uint(campaignID)
		}
	}

	affiliates, nextCursor, err := h.AffiliateService.List(filter)
	if err != nil {
		requestLog(c).Errorw("affiliate_list_failed", "error", err)
		respondError(c, response.CodeInternal, "internal error", err)
		return
	}
	response.SuccessWithCursor(c, affiliates, nextCursor)
}

// GetAffiliate 获取推广人详情
func (h *Handler) GetAffiliate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	affiliate, err := h.AffiliateService.GetByID(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, affiliate)
}

// AffiliateStatusRequest 推广人状态变更请求
type AffiliateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateAffiliateStatus 审核/驳回/封禁推广人
func (h *Handler) UpdateAffiliateStatus(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req AffiliateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}

	affiliate, err := h.AffiliateService.UpdateStatus(id, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_affiliate_status_updated",
		"admin_id", adminID,
		"affiliate_id", id,
		"status", req.Status,
	)
	response.Success(c, affiliate)
}

// AffiliateCustomRateRequest 推广人专属费率请求
type AffiliateCustomRateRequest struct {
	RateType  string      `json:"rate_type"`
	RateValue models.Rate `json:"rate_value"`
}

// SetAffiliateCustomRate 设置推广人专属费率
func (h *Handler) SetAffiliateCustomRate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req AffiliateCustomRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}
	affiliate, err := h.AffiliateService.SetCustomRate(id, req.RateType, req.RateValue)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, affiliate)
}
