package repository

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrDuplicate 违反唯一约束
var ErrDuplicate = errors.New("record already exists")

// isUniqueViolation 同时识别 gorm 翻译后的错误与 lib/pq 原始错误
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}
	return false
}

func translate(err error) error {
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}
