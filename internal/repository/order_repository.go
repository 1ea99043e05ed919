package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/d60-Lab/storefront/internal/model"
)

// OrderFilter 后台订单列表查询条件
type OrderFilter struct {
	Status *model.OrderStatus
	Search string // 客户姓名或电话模糊匹配
	Offset int
	Limit  int
}

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// Create 创建订单（不含明细）
	Create(ctx context.Context, order *model.Order) error

	// CreateItems 一次批量插入明细
	CreateItems(ctx context.Context, items []model.OrderItem) error

	// GetByID 查询订单并预加载明细及其商品/规格
	GetByID(ctx context.Context, id uint) (*model.Order, error)

	// GetByIDs 批量查询订单（不含明细）
	GetByIDs(ctx context.Context, ids []uint) ([]*model.Order, error)

	// List 后台列表：pending 优先，其次 accepted，组内按创建时间倒序
	List(ctx context.Context, f OrderFilter) ([]*model.Order, int64, error)

	// ListItems 查询订单明细并预加载商品/规格
	ListItems(ctx context.Context, orderID uint) ([]model.OrderItem, error)

	// GetItem 查询单条明细
	GetItem(ctx context.Context, orderID, itemID uint) (*model.OrderItem, error)

	// UpdateItem 更新明细数量与金额
	UpdateItem(ctx context.Context, item *model.OrderItem) error

	// DeleteItem 删除明细，返回是否删除了记录
	DeleteItem(ctx context.Context, orderID, itemID uint) (bool, error)

	// UpdateTotal 只更新 total_amount
	UpdateTotal(ctx context.Context, orderID uint, total decimal.Decimal) error

	// UpdateStatus 条件更新状态（WHERE status = from），返回是否命中
	UpdateStatus(ctx context.Context, orderID uint, from, to model.OrderStatus) (bool, error)

	// LockPending 在事务内锁定仍为 pending 的订单，返回是否命中
	LockPending(ctx context.Context, orderID uint) (bool, error)
}
