package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/d60-Lab/storefront/internal/repository"
)

var (
	// ErrNotFound 订单、明细或商品不存在
	ErrNotFound = repository.ErrNotFound
	// ErrInvalidTransition 状态迁移不在迁移表内
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrInsufficientStock 扣减库存时库存已被并发消耗
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrOrderLocked 非 pending 订单不允许修改明细
	ErrOrderLocked = errors.New("order is no longer pending")
	// ErrProductInUse 商品仍被订单明细引用
	ErrProductInUse = errors.New("product is referenced by order items")
	// ErrInvalidCredentials 管理员账号或密码错误
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError 字段级错误，key 为请求字段名（如 commune、items[0]）
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldErrors 收集字段错误，没有错误时 err() 返回 nil
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// AsValidation 取出 ValidationError
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
