package shared

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParseCursorQuery 解析游标分页参数。
// cursor 为上一页最后一条记录的 id，0 表示从头开始。
func ParseCursorQuery(c *gin.Context) (uint, int) {
	cursor := uint(0)
	if raw := c.Query("cursor"); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			cursor = uint(parsed)
		}
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 100 {
		limit = 100
	}
	return cursor, limit
}
