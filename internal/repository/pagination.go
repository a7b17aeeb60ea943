package repository

import "gorm.io/gorm"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// applyCursor 应用游标分页：按主键倒序，取游标之前的记录。
// cursor 为上一页最后一条记录的主键，0 表示从最新开始。
func applyCursor(query *gorm.DB, cursor uint, limit int) *gorm.DB {
	if query == nil {
		return query
	}
	if cursor > 0 {
		query = query.Where("id < ?", cursor)
	}
	return query.Order("id DESC").Limit(normalizeLimit(limit))
}

// normalizeLimit 统一处理非法与超限的每页条数。
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

// nextCursor 计算下一页游标；结果不足一页时返回 0 表示没有更多数据。
func nextCursor[T any](items []T, limit int, lastID func(T) uint) uint {
	if len(items) < normalizeLimit(limit) || len(items) == 0 {
		return 0
	}
	return lastID(items[len(items)-1])
}
