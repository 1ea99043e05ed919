package model

import (
	"github.com/shopspring/decimal"
)

// Wilaya 省份及两种配送方式的运费
type Wilaya struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"type:varchar(100);not null;uniqueIndex"`
	HomePrice   decimal.Decimal `json:"home_price" gorm:"type:decimal(10,2);not null;default:0"`
	PickupPrice decimal.Decimal `json:"pickup_price" gorm:"type:decimal(10,2);not null;default:0"`
	Communes    []Commune       `json:"communes,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

func (Wilaya) TableName() string { return "wilayas" }

// DeliveryFee 按配送方式取运费
func (w *Wilaya) DeliveryFee(t DeliveryType) decimal.Decimal {
	if t == DeliveryHome {
		return w.HomePrice
	}
	return w.PickupPrice
}

// Commune 市镇，(wilaya_id, name) 唯一
type Commune struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:ux_commune_wilaya_name"`
	WilayaID uint   `json:"wilaya_id" gorm:"not null;index;uniqueIndex:ux_commune_wilaya_name"`
}

func (Commune) TableName() string { return "communes" }

// All 返回需要迁移的全部模型
func All() []interface{} {
	return []interface{}{
		&Category{},
		&Product{},
		&ProductVariant{},
		&ProductImage{},
		&Wilaya{},
		&Commune{},
		&Order{},
		&OrderItem{},
	}
}
