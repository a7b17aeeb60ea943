package admin

import (
	"strconv"

	handlershared "github.com/refergate/refergate/internal/http/handlers/shared"
	"github.com/refergate/refergate/internal/http/response"
	"github.com/refergate/refergate/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListReferrals 查询推荐记录列表
func (h *Handler) ListReferrals(c *gin.Context) {
	cursor, limit := handlershared.ParseCursorQuery(c)
	filter := repository.ReferralListFilter{
		Cursor:      cursor,
		Limit:       limit,
		Status:      c.Query("status"),
		CreatedFrom: parseTimeQuery(c, "created_from"),
		CreatedTo:   parseTimeQuery(c, "created_to"),
	}
	if raw := c.Query("affiliate_id"); raw != "" {
		if affiliateID, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.AffiliateID = uint(affiliateID)
		}
	}

	referrals, nextCursor, err := h.TrackerService.ListReferrals(filter)
	if err != nil {
		requestLog(c).Errorw("referral_list_failed", "error", err)
		respondError(c, response.CodeInternal, "internal error", err)
		return
	}
	response.SuccessWithCursor(c, referrals, nextCursor)
}
