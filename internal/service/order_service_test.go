package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/internal/testutil"
)

type orderFixture struct {
	db  *gorm.DB
	svc OrderService
	ctx context.Context
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := testutil.NewDB(t)
	testutil.SeedWilaya(t, db, "Alger", "400", "250", "Bab Ezzouar", "Kouba")
	testutil.SeedWilaya(t, db, "Oran", "600", "350", "Bir El Djir")
	return &orderFixture{db: db, svc: NewOrderService(repository.NewStore(db), nil), ctx: context.Background()}
}

func (f *orderFixture) createPickup(t *testing.T, items ...ItemInput) *model.Order {
	t.Helper()
	o, err := f.svc.Create(f.ctx, CreateOrderInput{
		CustomerName:  "Amine",
		CustomerPhone: "0555123456",
		DeliveryType:  "pickup",
		Wilaya:        "Alger",
		Items:         items,
	})
	require.NoError(t, err)
	return o
}

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()
	ve, ok := AsValidation(err)
	require.True(t, ok, "expected validation error, got %v", err)
	assert.Contains(t, ve.Fields, field)
}

func TestCreateOrderPricesItemsAndForcesPending(t *testing.T) {
	f := newOrderFixture(t)
	p := testutil.SeedProduct(t, f.db, "phone", "500", "0", 10)

	o := f.createPickup(t, ItemInput{ProductID: p.ID, Quantity: 3})

	assert.Equal(t, model.OrderStatusPending, o.Status)
	require.Len(t, o.Items, 1)
	assert.True(t, testutil.Dec("1500").Equal(o.Items[0].Price), "item price %s", o.Items[0].Price)
	assert.True(t, testutil.Dec("250").Equal(o.DeliveryFee))
	assert.True(t, testutil.Dec("1750").Equal(o.TotalAmount), "total %s", o.TotalAmount)

	// 下单不扣库存
	assert.Equal(t, 10, testutil.Reload(t, f.db, p).Stock)
}

func TestCreateOrderHomeDelivery(t *testing.T) {
	f := newOrderFixture(t)
	p := testutil.SeedProduct(t, f.db, "phone", "500", "450", 10)

	o, err := f.svc.Create(f.ctx, CreateOrderInput{
		CustomerName:  "Amine",
		CustomerPhone: "0555123456",
		DeliveryType:  "home",
		Wilaya:        "Oran",
		Commune:       "Bir El Djir",
		Items:         []ItemInput{{ProductID: p.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.NotNil(t, o.Commune)
	assert.Equal(t, "Bir El Djir", *o.Commune)
	assert.True(t, testutil.Dec("600").Equal(o.DeliveryFee))
	assert.True(t, testutil.Dec("1500").Equal(o.TotalAmount), "900 + 600, got %s", o.TotalAmount)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newOrderFixture(t)
	p := testutil.SeedProduct(t, f.db, "phone", "500", "", 2)
	other := testutil.SeedProduct(t, f.db, "case", "100", "", 5)
	v := testutil.SeedVariant(t, f.db, other.ID, "case-red", "", 5)

	base := CreateOrderInput{
		CustomerName:  "Amine",
		CustomerPhone: "0555123456",
		DeliveryType:  "home",
		Wilaya:        "Alger",
		Commune:       "Kouba",
		Items:         []ItemInput{{ProductID: p.ID, Quantity: 1}},
	}

	tests := []struct {
		name   string
		mutate func(in *CreateOrderInput)
		field  string
	}{
		{"home without commune", func(in *CreateOrderInput) { in.Commune = "" }, "commune"},
		{"commune from another wilaya", func(in *CreateOrderInput) { in.Commune = "Bir El Djir" }, "commune"},
		{"unknown wilaya", func(in *CreateOrderInput) { in.Wilaya = "Atlantis" }, "wilaya"},
		{"missing wilaya", func(in *CreateOrderInput) { in.Wilaya = "" }, "wilaya"},
		{"bad delivery type", func(in *CreateOrderInput) { in.DeliveryType = "drone" }, "delivery_type"},
		{"missing name", func(in *CreateOrderInput) { in.CustomerName = " " }, "customer_name"},
		{"no items", func(in *CreateOrderInput) { in.Items = nil }, "items"},
		{"zero quantity", func(in *CreateOrderInput) { in.Items = []ItemInput{{ProductID: p.ID, Quantity: 0}} }, "items[0].quantity"},
		{"unknown product", func(in *CreateOrderInput) { in.Items = []ItemInput{{ProductID: 9999, Quantity: 1}} }, "items[0].product_id"},
		{"quantity above stock", func(in *CreateOrderInput) { in.Items = []ItemInput{{ProductID: p.ID, Quantity: 3}} }, "items[0]"},
		{"variant of another product", func(in *CreateOrderInput) {
			in.Items = []ItemInput{{ProductID: p.ID, VariantID: &v.ID, Quantity: 1}}
		}, "items[0].variant_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := f.svc.Create(f.ctx, in)
			requireFieldError(t, err, tt.field)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&count).Error)
	assert.Zero(t, count, "failed creates must not persist orders")
}

func TestAcceptDecrementsStockOnce(t *testing.T) {
	f := newOrderFixture(t)
	p := testutil.SeedProduct(t, f.db, "phone", "500", "0", 10)
	o := f.createPickup(t, ItemInput{ProductID: p.ID, Quantity: 3})

	accepted, err := f.svc.Accept(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusAccepted, accepted.Status)

	fresh := testutil.Reload(t, f.db, p)
	assert.Equal(t, 7, fresh.Stock)
	assert.Equal(t, 3, fresh.Sold)

	// 终态不可再迁移，库存不重复扣减
	for _, target := range []model.OrderStatus{model.OrderStatusAccepted, model.OrderStatusRejected, model.OrderStatusPending} {
		_, err = f.svc.Transition(f.ctx, o.ID, target)
		assert.ErrorIs(t, err, ErrInvalidTransition, "accepted -> %s", target)
	}
	fresh = testutil.Reload(t, f.db, p)
	assert.Equal(t, 7, fresh.Stock)
	assert.Equal(t, 3, fresh.Sold)
}

func TestAcceptWithInsufficientStockHasNoSideEffects(t *testing.T) {
	f := newOrderFixture(t)
	ok := testutil.SeedProduct(t, f.db, "cable", "100", "", 10)
	short := testutil.SeedProduct(t, f.db, "phone", "500", "", 5)
	o := f.createPickup(t,
		ItemInput{ProductID: ok.ID, Quantity: 2},
		ItemInput{ProductID: short.ID, Quantity: 4},
	)

	// 下单后库存被其他渠道消耗
	require.NoError(t, f.db.Model(&model.Product{}).Where("id = ?", short.ID).Update("stock", 1).Error)

	_, err := f.svc.Accept(f.ctx, o.ID)
	requireFieldError(t, err, "items[1]")

	got, err := f.svc.Get(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)
	assert.Equal(t, 10, testutil.Reload(t, f.db, ok).Stock)
	assert.Zero(t, testutil.Reload(t, f.db, ok).Sold)
	assert.Equal(t, 1, testutil.Reload(t, f.db, short).Stock)
}

func TestRepeatedProductLinesShareStock(t *testing.T) {
	f := newOrderFixture(t)
	p := testutil.SeedProduct(t, f.db, "phone", "500", "", 10)

	_, err := f.svc.Create(f.ctx, CreateOrderInput{
		CustomerName:  "Amine",
		CustomerPhone: "0555123456",
		DeliveryType:  "pickup",
		Wilaya:        "Alger",
		Items: []ItemInput{
			{ProductID: p.ID, Quantity: 6},
			{ProductID: p.ID, Quantity: 6},
		},
	})
	requireFieldError(t, err, "items[1]")
	ve, _ := AsValidation(err)
	assert.NotContains(t, ve.Fields, "items[0]")

	var count int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&count).Error)
	assert.Zero(t, count)

	// 已有明细占用的库存在追加时计入
	o := f.createPickup(t, ItemInput{ProductID: p.ID, Quantity: 6})
	_, err = f.svc.AddItems(f.ctx, o.ID, []ItemInput{{ProductID: p.ID, Quantity: 6}})
	requireFieldError(t, err, "items[0]")

	o, err = f.svc.AddItems(f.ctx, o.ID, []ItemInput{{ProductID: p.ID, Quantity: 4}})
	require.NoError(t, err)
	require.Len(t, o.Items, 2)

	_, err = f.svc.UpdateItem(f.ctx, o.ID, o.Items[1].ID, 5)
	requireFieldError(t, err, "quantity")
}

func TestAcceptChecksSummedQuantityPerProduct(t *testing.T) {
	f := newOrderFixture(t)
	p := testutil.SeedProduct(t, f.db, "phone", "500", "", 10)
	o := f.createPickup(t,
		ItemInput{ProductID: p.ID, Quantity: 6},
		ItemInput{ProductID: p.ID, Quantity: 4},
	)

	// 每行单独看都够，合计 10 超过剩余 8
	require.NoError(t, f.db.Model(&model.Product{}).Where("id = ?", p.ID).Update("stock", 8).Error)

	_, err := f.svc.Accept(f.ctx, o.ID)
	requireFieldError(t, err, "items[1]")
	assert.NotErrorIs(t, err, ErrInsufficientStock)

	got, err := f.svc.Get(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)
	assert.Equal(t, 8, testutil.Reload(t, f.db, p).Stock)
	assert.Zero(t, testutil.Reload(t, f.db, p).Sold)
}

func TestVariantAndProductLinesUseSeparateStock(t *testing.T) {
	f := newOrderFixture(t)
	p := testutil.SeedProduct(t, f.db, "shirt", "1000", "", 3)
	v := testutil.SeedVariant(t, f.db, p.ID, "shirt-xl", "", 3)

	o := f.createPickup(t,
		ItemInput{ProductID: p.ID, Quantity: 3},
		ItemInput{ProductID: p.ID, VariantID: &v.ID, Quantity: 3},
	)
	_, err := f.svc.Accept(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Zero(t, testutil.Reload(t, f.db, p).Stock)
	assert.Equal(t, 6, testutil.Reload(t, f.db, p).Sold)
}

func TestAcceptVariantItem(t *testing.T) {
	f := newOrderFixture(t)
	p := testutil.SeedProduct(t, f.db, "shirt", "1000", "800", 0)
	v := testutil.SeedVariant(t, f.db, p.ID, "shirt-xl", "", 4)
	priced := testutil.SeedVariant(t, f.db, p.ID, "shirt-gold", "1200", 2)

	o := f.createPickup(t,
		ItemInput{ProductID: p.ID, VariantID: &v.ID, Quantity: 2},
		ItemInput{ProductID: p.ID, VariantID: &priced.ID, Quantity: 1},
	)
	// 800*2 + 1200 + 250
	assert.True(t, testutil.Dec("3050").Equal(o.TotalAmount), "total %s", o.TotalAmount)

	_, err := f.svc.Accept(f.ctx, o.ID)
	require.NoError(t, err)

	var fresh model.ProductVariant
	require.NoError(t, f.db.First(&fresh, v.ID).Error)
	assert.Equal(t, 2, fresh.Stock)
	assert.Equal(t, 3, testutil.Reload(t, f.db, p).Sold)
	assert.Equal(t, 0, testutil.Reload(t, f.db, p).Stock)
}

func TestRejectNeverTouchesStock(t *testing.T) {
	f := newOrderFixture(t)
	p := testutil.SeedProduct(t, f.db, "phone", "500", "", 10)
	o := f.createPickup(t, ItemInput{ProductID: p.ID, Quantity: 3})

	rejected, err := f.svc.Reject(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusRejected, rejected.Status)

	_, err = f.svc.Accept(f.ctx, o.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	fresh := testutil.Reload(t, f.db, p)
	assert.Equal(t, 10, fresh.Stock)
	assert.Zero(t, fresh.Sold)
}

func TestTransitionUnknownOrder(t *testing.T) {
	f := newOrderFixture(t)
	_, err := f.svc.Accept(f.ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTotalFollowsItemMutations(t *testing.T) {
	f := newOrderFixture(t)
	phone := testutil.SeedProduct(t, f.db, "phone", "500", "", 10)
	cable := testutil.SeedProduct(t, f.db, "cable", "100", "80", 10)
	o := f.createPickup(t, ItemInput{ProductID: phone.ID, Quantity: 1})
	assert.True(t, testutil.Dec("750").Equal(o.TotalAmount))

	o, err := f.svc.AddItems(f.ctx, o.ID, []ItemInput{
		{ProductID: cable.ID, Quantity: 2},
		{ProductID: phone.ID, Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, o.Items, 3)
	assert.True(t, testutil.Dec("1410").Equal(o.TotalAmount), "500+160+500+250, got %s", o.TotalAmount)

	o, err = f.svc.UpdateItem(f.ctx, o.ID, o.Items[1].ID, 5)
	require.NoError(t, err)
	assert.True(t, testutil.Dec("400").Equal(o.Items[1].Price))
	assert.True(t, testutil.Dec("1650").Equal(o.TotalAmount), "got %s", o.TotalAmount)

	o, err = f.svc.RemoveItem(f.ctx, o.ID, o.Items[0].ID)
	require.NoError(t, err)
	assert.True(t, testutil.Dec("1150").Equal(o.TotalAmount), "got %s", o.TotalAmount)

	// 价格变更后手动重算
	require.NoError(t, f.db.Model(&model.Product{}).Where("id = ?", phone.ID).Update("price", testutil.Dec("600")).Error)
	total, err := f.svc.RecomputeTotal(f.ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, testutil.Dec("1250").Equal(total), "got %s", total)
}

func TestItemMutationRules(t *testing.T) {
	f := newOrderFixture(t)
	p := testutil.SeedProduct(t, f.db, "phone", "500", "", 4)
	o := f.createPickup(t, ItemInput{ProductID: p.ID, Quantity: 1})
	itemID := o.Items[0].ID

	_, err := f.svc.UpdateItem(f.ctx, o.ID, itemID, 0)
	requireFieldError(t, err, "quantity")

	_, err = f.svc.UpdateItem(f.ctx, o.ID, itemID, 5)
	requireFieldError(t, err, "quantity")

	_, err = f.svc.RemoveItem(f.ctx, o.ID, itemID+100)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Accept(f.ctx, o.ID)
	require.NoError(t, err)

	_, err = f.svc.AddItems(f.ctx, o.ID, []ItemInput{{ProductID: p.ID, Quantity: 1}})
	assert.ErrorIs(t, err, ErrOrderLocked)
	_, err = f.svc.UpdateItem(f.ctx, o.ID, itemID, 2)
	assert.ErrorIs(t, err, ErrOrderLocked)
	_, err = f.svc.RemoveItem(f.ctx, o.ID, itemID)
	assert.ErrorIs(t, err, ErrOrderLocked)

	// 已决订单的合计不随价格变化
	require.NoError(t, f.db.Model(&model.Product{}).Where("id = ?", p.ID).Update("price", testutil.Dec("900")).Error)
	_, err = f.svc.RecomputeTotal(f.ctx, o.ID)
	assert.ErrorIs(t, err, ErrOrderLocked)
	got, err := f.svc.Get(f.ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, testutil.Dec("750").Equal(got.TotalAmount), "total %s", got.TotalAmount)
}

func TestItemWithoutProductPricesAtZero(t *testing.T) {
	f := newOrderFixture(t)
	p := testutil.SeedProduct(t, f.db, "phone", "500", "", 4)
	o := f.createPickup(t, ItemInput{ProductID: p.ID, Quantity: 1})

	require.NoError(t, f.db.Model(&model.OrderItem{}).Where("id = ?", o.Items[0].ID).Update("product_id", nil).Error)

	total, err := f.svc.RecomputeTotal(f.ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, testutil.Dec("250").Equal(total), "only the delivery fee remains, got %s", total)
}

func TestBulkTransitionCollectsFailures(t *testing.T) {
	f := newOrderFixture(t)
	plenty := testutil.SeedProduct(t, f.db, "cable", "100", "", 100)
	scarce := testutil.SeedProduct(t, f.db, "phone", "500", "", 2)

	a := f.createPickup(t, ItemInput{ProductID: plenty.ID, Quantity: 1})
	b := f.createPickup(t, ItemInput{ProductID: scarce.ID, Quantity: 2})
	c := f.createPickup(t, ItemInput{ProductID: scarce.ID, Quantity: 2})
	done := f.createPickup(t, ItemInput{ProductID: plenty.ID, Quantity: 1})
	_, err := f.svc.Reject(f.ctx, done.ID)
	require.NoError(t, err)

	res, err := f.svc.BulkTransition(f.ctx, []uint{a.ID, b.ID, c.ID, done.ID, 999, a.ID}, model.OrderStatusAccepted)
	require.NoError(t, err)

	assert.Equal(t, []uint{a.ID, b.ID}, res.Succeeded)
	assert.Equal(t, []uint{done.ID}, res.Skipped)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, c.ID, res.Failed[0].OrderID)
	assert.Contains(t, res.Failed[0].Fields, "items[0]")
	assert.Equal(t, uint(999), res.Failed[1].OrderID)
	assert.Equal(t, 2, res.SucceededCount)
	assert.Equal(t, 1, res.SkippedCount)
	assert.Equal(t, 2, res.FailedCount)

	got, err := f.svc.Get(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)
	assert.Zero(t, testutil.Reload(t, f.db, scarce).Stock)

	_, err = f.svc.BulkTransition(f.ctx, []uint{a.ID}, model.OrderStatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConcurrentAcceptDecrementsOnce(t *testing.T) {
	f := newOrderFixture(t)
	p := testutil.SeedProduct(t, f.db, "phone", "500", "", 10)
	o := f.createPickup(t, ItemInput{ProductID: p.ID, Quantity: 3})

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Accept(f.ctx, o.ID); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	fresh := testutil.Reload(t, f.db, p)
	assert.Equal(t, 7, fresh.Stock)
	assert.Equal(t, 3, fresh.Sold)
}

func TestListOrders(t *testing.T) {
	f := newOrderFixture(t)
	p := testutil.SeedProduct(t, f.db, "phone", "500", "", 100)
	first := f.createPickup(t, ItemInput{ProductID: p.ID, Quantity: 1})
	second := f.createPickup(t, ItemInput{ProductID: p.ID, Quantity: 1})
	_, err := f.svc.Accept(f.ctx, first.ID)
	require.NoError(t, err)

	page, err := f.svc.List(f.ctx, ListOrdersInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, defaultOrderPageSize, page.PageSize)
	require.Len(t, page.Items, 2)
	assert.Equal(t, second.ID, page.Items[0].ID, "pending first")

	page, err = f.svc.List(f.ctx, ListOrdersInput{Status: "ACCEPTED", PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxOrderPageSize, page.PageSize)
	require.Len(t, page.Items, 1)
	assert.Equal(t, first.ID, page.Items[0].ID)

	_, err = f.svc.List(f.ctx, ListOrdersInput{Status: "shipped"})
	requireFieldError(t, err, "status")
}
