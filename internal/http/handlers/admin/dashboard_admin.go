package admin

import (
	"github.com/refergate/refergate/internal/http/response"
	"github.com/refergate/refergate/internal/service"

	"github.com/gin-gonic/gin"
)

func dashboardQueryFromContext(c *gin.Context) service.DashboardQueryInput {
	input := service.DashboardQueryInput{
		Range:        c.Query("range"),
		Timezone:     c.Query("timezone"),
		ForceRefresh: c.Query("refresh") == "1",
	}
	input.From = parseTimeQuery(c, "from")
	input.To = parseTimeQuery(c, "to")
	return input
}

// DashboardOverview 推广经营总览
func (h *Handler) DashboardOverview(c *gin.Context) {
	overview, err := h.DashboardService.GetOverview(c.Request.Context(), dashboardQueryFromContext(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, overview)
}

// DashboardTrends 点击/注册/转化日趋势
func (h *Handler) DashboardTrends(c *gin.Context) {
	trends, err := h.DashboardService.GetTrends(c.Request.Context(), dashboardQueryFromContext(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, trends)
}

// DashboardRankings 推广人排行榜
func (h *Handler) DashboardRankings(c *gin.Context) {
	rankings, err := h.DashboardService.GetRankings(c.Request.Context(), dashboardQueryFromContext(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, rankings)
}
