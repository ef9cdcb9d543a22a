package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// StringList 以逗号分隔字符串形式存储的字符串列表（角色、类型标签等）
type StringList []string

// GormDataType 按字符串列建表
func (StringList) GormDataType() string {
	return "string"
}

// Value 实现 driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	return strings.Join(l, ","), nil
}

// Scan 实现 sql.Scanner
func (l *StringList) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	if s == "" {
		*l = nil
		return nil
	}
	parts := strings.Split(s, ",")
	out := make(StringList, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*l = out
	return nil
}

// Contains 是否包含
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}
