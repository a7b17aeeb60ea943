package admin

import (
	"strconv"

	handlershared "github.com/refergate/refergate/internal/http/handlers/shared"
	"github.com/refergate/refergate/internal/http/response"
	"github.com/refergate/refergate/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListPayouts 查询结算单列表
func (h *Handler) ListPayouts(c *gin.Context) {
	cursor, limit := handlershared.ParseCursorQuery(c)
	filter := repository.PayoutListFilter{
		Cursor: cursor,
		Limit:  limit,
		Status: c.Query("status"),
	}
	if raw := c.Query("affiliate_id"); raw != "" {
		if affiliateID, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.AffiliateID = uint(affiliateID)
		}
	}

	payouts, nextCursor, err := h.PayoutService.List(filter)
	if err != nil {
		requestLog(c).Errorw("payout_list_failed", "error", err)
		respondError(c, response.CodeInternal, "internal error", err)
		return
	}
	response.SuccessWithCursor(c, payouts, nextCursor)
}

// GetDueCommissions 查询推广人到期可结算佣金
func (h *Handler) GetDueCommissions(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	commissions, err := h.PayoutService.GetDueCommissions(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, commissions)
}

// PayoutCreateRequest 创建结算单请求
type PayoutCreateRequest struct {
	AffiliateID   uint   `json:"affiliate_id" binding:"required"`
	CommissionIDs []uint `json:"commission_ids"`
}

// CreatePayout 创建结算单
func (h *Handler) CreatePayout(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req PayoutCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}
	payout, err := h.PayoutService.CreatePayout(req.AffiliateID, req.CommissionIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_payout_created",
		"admin_id", adminID,
		"payout_id", payout.ID,
		"affiliate_id", req.AffiliateID,
	)
	response.Success(c, payout)
}

// CompletePayout 完成结算单
func (h *Handler) CompletePayout(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	payout, err := h.PayoutService.CompletePayout(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_payout_completed", "admin_id", adminID, "payout_id", id)
	response.Success(c, payout)
}

// CancelPayout 取消结算单
func (h *Handler) CancelPayout(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	payout, err := h.PayoutService.CancelPayout(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_payout_cancelled", "admin_id", adminID, "payout_id", id)
	response.Success(c, payout)
}
