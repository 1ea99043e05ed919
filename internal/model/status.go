package model

import (
	"fmt"
	"strings"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusAccepted OrderStatus = "accepted"
	OrderStatusRejected OrderStatus = "rejected"
)

// 允许的状态流转，未列出的边一律拒绝
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusAccepted, OrderStatusRejected},
}

// ParseOrderStatus 忽略大小写解析状态
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

func (s OrderStatus) String() string { return string(s) }

// CanTransitionTo 是否允许 s -> to
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal accepted / rejected 之后不可再修改
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// DeliveryType 配送方式
type DeliveryType string

const (
	DeliveryHome   DeliveryType = "home"
	DeliveryPickup DeliveryType = "pickup"
)

// ParseDeliveryType 兼容旧值 "A Domicile" / "Bureau"
func ParseDeliveryType(s string) (DeliveryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "home", "a domicile":
		return DeliveryHome, nil
	case "pickup", "bureau":
		return DeliveryPickup, nil
	default:
		return "", fmt.Errorf("unknown delivery type %q", s)
	}
}
