package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category 商品分类
type Category struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Category) TableName() string { return "categories" }

// Product 商品，Stock 为可售库存，Sold 为累计销量
type Product struct {
	ID            uint                `json:"id" gorm:"primaryKey"`
	Name          string              `json:"name" gorm:"type:varchar(255);not null;index"`
	Slug          string              `json:"slug" gorm:"type:varchar(255);index"`
	Description   string              `json:"description" gorm:"type:text"`
	Price         decimal.Decimal     `json:"price" gorm:"type:decimal(10,2);not null"`
	DiscountPrice decimal.NullDecimal `json:"discount_price" gorm:"type:decimal(10,2)"`
	Stock         int                 `json:"stock" gorm:"not null;default:0;check:chk_products_stock,stock >= 0"`
	Sold          int                 `json:"sold" gorm:"not null;default:0;index"`
	CategoryID    *uint               `json:"category_id" gorm:"index"`
	Category      *Category           `json:"category,omitempty" gorm:"constraint:OnDelete:SET NULL"`
	Image         string              `json:"image" gorm:"type:varchar(512)"`
	Color         string              `json:"color,omitempty" gorm:"type:varchar(50)"`
	Size          string              `json:"size,omitempty" gorm:"type:varchar(50)"`
	Images        []ProductImage      `json:"images,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	Variants      []ProductVariant    `json:"variants,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (Product) TableName() string { return "products" }

// ProductVariant 商品规格，Price 为空时回退到商品的实际售价
type ProductVariant struct {
	ID        uint                `json:"id" gorm:"primaryKey"`
	ProductID uint                `json:"product_id" gorm:"not null;index"`
	Name      string              `json:"name" gorm:"type:varchar(255)"`
	Price     decimal.NullDecimal `json:"price" gorm:"type:decimal(10,2)"`
	Stock     int                 `json:"stock" gorm:"not null;default:0;check:chk_product_variants_stock,stock >= 0"`
	Color     string              `json:"color,omitempty" gorm:"type:varchar(50)"`
	Size      string              `json:"size,omitempty" gorm:"type:varchar(50)"`
	Image     string              `json:"image,omitempty" gorm:"type:varchar(512)"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func (ProductVariant) TableName() string { return "product_variants" }

// ProductImage 商品图片（仅保存 URL）
type ProductImage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ProductID uint      `json:"product_id" gorm:"not null;index"`
	URL       string    `json:"url" gorm:"type:varchar(512);not null"`
	Position  int       `json:"position" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProductImage) TableName() string { return "product_images" }
