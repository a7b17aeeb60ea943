package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// clampedAddExpr 构建"列加增量、负向结果截断为 0"的 SQL 表达式。
// sqlite 的双参 MAX 与 postgres 的 GREATEST 语义相同但函数名不同。
func clampedAddExpr(db *gorm.DB, column string) string {
	return clampedAddExprByDialect(dbDialectName(db), column)
}

func clampedAddExprByDialect(dialect, column string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return fmt.Sprintf("GREATEST(%s + ?, 0)", column)
	default:
		return fmt.Sprintf("MAX(%s + ?, 0)", column)
	}
}

func likeOperatorByDialect(dialect string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return "ILIKE"
	default:
		return "LIKE"
	}
}
