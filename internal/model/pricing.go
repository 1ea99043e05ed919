package model

import "github.com/shopspring/decimal"

// EffectivePrice 折扣价非空且大于 0 时取折扣价，否则取原价
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice.Valid && p.DiscountPrice.Decimal.IsPositive() {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}

// IsDiscounted 是否处于折扣中
func (p *Product) IsDiscounted() bool {
	return p.DiscountPrice.Valid && p.DiscountPrice.Decimal.IsPositive()
}

// UnitPrice 规格自身价格优先，其次商品实际售价；商品缺失时按 0 计
func UnitPrice(p *Product, v *ProductVariant) decimal.Decimal {
	if v != nil && v.Price.Valid {
		return v.Price.Decimal
	}
	if p == nil {
		return decimal.Zero
	}
	return p.EffectivePrice()
}

// LineTotal 单价 x 数量
func LineTotal(p *Product, v *ProductVariant, quantity int) decimal.Decimal {
	return UnitPrice(p, v).Mul(decimal.NewFromInt(int64(quantity)))
}

// OrderTotal 按当前价格重新汇总明细并加上运费，要求明细已预加载 Product / Variant
func OrderTotal(items []OrderItem, deliveryFee decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		it := &items[i]
		total = total.Add(LineTotal(it.Product, it.Variant, it.Quantity))
	}
	return total.Add(deliveryFee)
}
