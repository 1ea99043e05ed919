package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/storefront/internal/model"
)

// 后台列表排序：pending -> accepted -> 其余
var orderStatusRank = fmt.Sprintf(
	"CASE status WHEN '%s' THEN 0 WHEN '%s' THEN 1 ELSE 2 END",
	model.OrderStatusPending, model.OrderStatusAccepted,
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create 创建订单，明细通过 CreateItems 单独写入
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

// CreateItems 单条 INSERT 批量写入明细
func (r *orderRepository) CreateItems(ctx context.Context, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&items).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Items.Product").
		Preload("Items.Variant").
		First(&order, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *orderRepository) GetByIDs(ctx context.Context, ids []uint) ([]*model.Order, error) {
	var orders []*model.Order
	if len(ids) == 0 {
		return orders, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&orders).Error
	return orders, err
}

func (r *orderRepository) List(ctx context.Context, f OrderFilter) ([]*model.Order, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if f.Status != nil {
			db = db.Where("status = ?", *f.Status)
		}
		if f.Search != "" {
			like := "%" + f.Search + "%"
			db = db.Where("customer_name LIKE ? OR customer_phone LIKE ?", like, like)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Scopes(scope).
		Order(orderStatusRank).
		Order("created_at DESC").
		Order("id DESC").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) ListItems(ctx context.Context, orderID uint) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Variant").
		Where("order_id = ?", orderID).
		Order("id").
		Find(&items).Error
	return items, err
}

func (r *orderRepository) GetItem(ctx context.Context, orderID, itemID uint) (*model.OrderItem, error) {
	var item model.OrderItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Variant").
		Where("id = ? AND order_id = ?", itemID, orderID).
		First(&item).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *orderRepository) UpdateItem(ctx context.Context, item *model.OrderItem) error {
	return r.db.WithContext(ctx).
		Model(&model.OrderItem{}).
		Where("id = ? AND order_id = ?", item.ID, item.OrderID).
		Updates(map[string]interface{}{"quantity": item.Quantity, "price": item.Price}).Error
}

func (r *orderRepository) DeleteItem(ctx context.Context, orderID, itemID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND order_id = ?", itemID, orderID).
		Delete(&model.OrderItem{})
	return res.RowsAffected > 0, res.Error
}

// UpdateTotal 只写 total_amount 一列
func (r *orderRepository) UpdateTotal(ctx context.Context, orderID uint, total decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("total_amount", total).Error
}

// UpdateStatus 条件更新，0 行表示状态已被他人修改或不满足前置状态
func (r *orderRepository) UpdateStatus(ctx context.Context, orderID uint, from, to model.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// LockPending 以一次条件写占住订单行，之后的明细修改与状态迁移互斥
func (r *orderRepository) LockPending(ctx context.Context, orderID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusPending).
		Update("updated_at", time.Now())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
