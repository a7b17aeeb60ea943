package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Rate 统一费率类型（保留 2 位小数）
// percentage 类型表示百分比，fixed 类型表示固定金额（分）
type Rate struct {
	decimal.Decimal
}

// NewRateFromDecimal 从 decimal 创建费率
func NewRateFromDecimal(v decimal.Decimal) Rate {
	return Rate{Decimal: v.Round(2)}
}

// NewRateFromInt 从整数创建费率
func NewRateFromInt(v int64) Rate {
	return Rate{Decimal: decimal.NewFromInt(v)}
}

// MarshalJSON 统一输出 2 位小数的字符串
func (r Rate) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Decimal.Round(2).StringFixed(2))
}

// UnmarshalJSON 解析费率（字符串或数字）
func (r *Rate) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		r.Decimal = d.Round(2)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	r.Decimal = decimal.NewFromFloat(f).Round(2)
	return nil
}

// Value 用于数据库写入
func (r Rate) Value() (driver.Value, error) {
	return r.Decimal.Round(2).Value()
}

// Scan 用于数据库读取
func (r *Rate) Scan(value interface{}) error {
	if err := r.Decimal.Scan(value); err != nil {
		return err
	}
	r.Decimal = r.Decimal.Round(2)
	return nil
}

// String 返回 2 位小数格式
func (r Rate) String() string {
	return r.Decimal.Round(2).StringFixed(2)
}

// ApplyTo 按费率类型计算佣金金额（分），四舍五入到整数
func (r Rate) ApplyTo(rateType string, saleCents int64) int64 {
	if rateType == "fixed" {
		return r.Decimal.Round(0).IntPart()
	}
	return decimal.NewFromInt(saleCents).
		Mul(r.Decimal).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
