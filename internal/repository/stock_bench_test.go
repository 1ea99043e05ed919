package repository

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/testutil"
)

func BenchmarkDecrementStock(b *testing.B) {
	db := testutil.NewDB(b)
	repo := NewProductRepository(db)
	ctx := context.Background()

	// 预创建商品，库存足够覆盖 b.N
	products := make([]model.Product, 100)
	for i := range products {
		products[i] = model.Product{Name: fmt.Sprintf("p%03d", i), Slug: fmt.Sprintf("p%03d", i), Price: testutil.Dec("10"), Stock: b.N + 1}
	}
	if err := db.Create(&products).Error; err != nil {
		b.Fatalf("seed products: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := products[rand.Intn(len(products))].ID
		if _, err := repo.DecrementStock(ctx, id, 1); err != nil {
			b.Fatalf("decrement: %v", err)
		}
	}
}

func BenchmarkOrderItemsBatchVsSingle(b *testing.B) {
	db := testutil.NewDB(b)
	orders := NewOrderRepository(db)
	ctx := context.Background()

	p := model.Product{Name: "p", Slug: "p", Price: testutil.Dec("10"), Stock: 1}
	if err := db.Create(&p).Error; err != nil {
		b.Fatalf("seed product: %v", err)
	}

	const itemsPerOrder = 20
	newOrder := func() *model.Order {
		o := &model.Order{CustomerName: "bench", CustomerPhone: "0555000000", DeliveryType: model.DeliveryPickup, Wilaya: "Alger", Status: model.OrderStatusPending}
		if err := orders.Create(ctx, o); err != nil {
			b.Fatalf("create order: %v", err)
		}
		return o
	}
	items := func(orderID uint) []model.OrderItem {
		res := make([]model.OrderItem, itemsPerOrder)
		for i := range res {
			res[i] = model.OrderItem{OrderID: orderID, ProductID: &p.ID, Quantity: 1, Price: testutil.Dec("10")}
		}
		return res
	}

	b.ResetTimer()
	b.Run("Batch", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			o := newOrder()
			_ = orders.CreateItems(ctx, items(o.ID))
		}
	})

	b.Run("Single", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			o := newOrder()
			for _, it := range items(o.ID) {
				_ = orders.CreateItems(ctx, []model.OrderItem{it})
			}
		}
	})
}
