package admin

import (
	"strconv"
	"time"

	handlershared "github.com/refergate/refergate/internal/http/handlers/shared"
	"github.com/refergate/refergate/internal/http/response"
	"github.com/refergate/refergate/internal/repository"

	"github.com/gin-gonic/gin"
)

func parseTimeQuery(c *gin.Context, key string) *time.Time {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &parsed
}

// ListCommissions 查询佣金列表
func (h *Handler) ListCommissions(c *gin.Context) {
	cursor, limit := handlershared.ParseCursorQuery(c)
	filter := repository.CommissionListFilter{
		Cursor:      cursor,
		Limit:       limit,
		Status:      c.Query("status"),
		ProductID:   c.Query("product_id"),
		CreatedFrom: parseTimeQuery(c, "created_from"),
		CreatedTo:   parseTimeQuery(c, "created_to"),
	}
	if raw := c.Query("affiliate_id"); raw != "" {
		if affiliateID, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.AffiliateID = uint(affiliateID)
		}
	}

	commissions, nextCursor, err := h.LedgerService.List(filter)
	if err != nil {
		requestLog(c).Errorw("commission_list_failed", "error", err)
		respondError(c, response.CodeInternal, "internal error", err)
		return
	}
	response.SuccessWithCursor(c, commissions, nextCursor)
}

// ApproveCommission 审核通过佣金
func (h *Handler) ApproveCommission(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	commission, err := h.LedgerService.Approve(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_commission_approved", "admin_id", adminID, "commission_id", id)
	response.Success(c, commission)
}

// CommissionReverseRequest 佣金冲销请求
type CommissionReverseRequest struct {
	Reason string `json:"reason"`
}

// ReverseCommission 冲销佣金
func (h *Handler) ReverseCommission(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req CommissionReverseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}
	commission, err := h.LedgerService.Reverse(id, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_commission_reversed",
		"admin_id", adminID,
		"commission_id", id,
		"reason", req.Reason,
	)
	response.Success(c, commission)
}
