package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order 订单模型，Items 随订单级联删除
type Order struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	CustomerName  string          `json:"customer_name" gorm:"type:varchar(100);not null;index"`
	CustomerPhone string          `json:"customer_phone" gorm:"type:varchar(32);not null;index"`
	DeliveryType  DeliveryType    `json:"delivery_type" gorm:"type:varchar(16);not null;default:'pickup'"`
	Wilaya        string          `json:"wilaya" gorm:"type:varchar(100);not null;index"`
	Commune       *string         `json:"commune" gorm:"type:varchar(100);index"`
	Status        OrderStatus     `json:"status" gorm:"type:varchar(16);not null;default:'pending';index"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:decimal(10,2);not null;default:0"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee" gorm:"type:decimal(10,2);not null;default:0"`
	Items         []OrderItem     `json:"items,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// OrderItem 订单明细，Price 为写入时的 单价 x 数量
type OrderItem struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   uint            `json:"order_id" gorm:"not null;index"`
	ProductID *uint           `json:"product_id" gorm:"index"`
	Product   *Product        `json:"product,omitempty" gorm:"constraint:OnDelete:RESTRICT"`
	VariantID *uint           `json:"variant_id,omitempty" gorm:"index"`
	Variant   *ProductVariant `json:"variant,omitempty" gorm:"constraint:OnDelete:RESTRICT"`
	Quantity  int             `json:"quantity" gorm:"not null;check:chk_order_items_quantity,quantity > 0"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null;default:0"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// AvailableStock 明细引用的库存：有规格取规格库存，否则取商品库存
func (i *OrderItem) AvailableStock() int {
	if i.Variant != nil {
		return i.Variant.Stock
	}
	if i.Product != nil {
		return i.Product.Stock
	}
	return 0
}

// StockKey 标识明细扣减的库存来源，同一来源的多条明细共用库存
type StockKey struct {
	Variant bool
	ID      uint
}

// StockKey 有规格时为规格库存，否则为商品库存；无商品引用返回 false
func (i *OrderItem) StockKey() (StockKey, bool) {
	switch {
	case i.VariantID != nil:
		return StockKey{Variant: true, ID: *i.VariantID}, true
	case i.ProductID != nil:
		return StockKey{ID: *i.ProductID}, true
	default:
		return StockKey{}, false
	}
}

// Label 用于错误提示的商品名
func (i *OrderItem) Label() string {
	switch {
	case i.Variant != nil && i.Variant.Name != "":
		return i.Variant.Name
	case i.Product != nil:
		return i.Product.Name
	default:
		return "unknown product"
	}
}
