package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/storefront/internal/cache"
	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/internal/testutil"
)

type catalogFixture struct {
	db    *gorm.DB
	mr    *miniredis.Miniredis
	cache *cache.Catalog
	svc   CatalogService
	ctx   context.Context
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	db := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	c := cache.New(rdb, true)
	return &catalogFixture{
		db:    db,
		mr:    mr,
		cache: c,
		svc:   NewCatalogService(repository.NewStore(db), c, nil, CacheTTL{}),
		ctx:   context.Background(),
	}
}

func TestListProductsIsCachedAndInvalidatedOnWrite(t *testing.T) {
	f := newCatalogFixture(t)
	testutil.SeedProduct(t, f.db, "cable", "100", "", 3)
	testutil.SeedProduct(t, f.db, "mouse", "500", "", 3)

	page, err := f.svc.ListProducts(f.ctx, ProductQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, defaultProductPageSize, page.PageSize)

	// 绕过服务写库，缓存仍返回旧结果
	testutil.SeedProduct(t, f.db, "screen", "2000", "", 1)
	page, err = f.svc.ListProducts(f.ctx, ProductQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, int64(1), f.cache.Stats().Hits)

	_, err = f.svc.CreateProduct(f.ctx, ProductInput{Name: "Samsung Galaxy S24", Price: testutil.Dec("90000"), Stock: 5})
	require.NoError(t, err)

	page, err = f.svc.ListProducts(f.ctx, ProductQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Total)
}

func TestListProductsFiltersAndPageSize(t *testing.T) {
	f := newCatalogFixture(t)
	for i := 0; i < 3; i++ {
		testutil.SeedProduct(t, f.db, "item", "100", "", 1)
	}
	max := testutil.Dec("150")
	page, err := f.svc.ListProducts(f.ctx, ProductQuery{PriceMax: &max, Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Items, 1)

	page, err = f.svc.ListProducts(f.ctx, ProductQuery{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, maxProductPageSize, page.PageSize)
}

func TestCollections(t *testing.T) {
	f := newCatalogFixture(t)
	var ids []uint
	for i, sold := range []int{5, 50, 1, 20, 8} {
		p := testutil.SeedProduct(t, f.db, "p"+string(rune('a'+i)), "100", "", 10)
		require.NoError(t, f.db.Model(p).UpdateColumn("sold", sold).Error)
		ids = append(ids, p.ID)
	}
	old := testutil.SeedProduct(t, f.db, "old", "300", "200", 10)
	require.NoError(t, f.db.Model(old).UpdateColumn("created_at", time.Now().Add(-10*24*time.Hour)).Error)

	top, err := f.svc.Home(f.ctx, CollectionTopOrdered)
	require.NoError(t, err)
	require.Len(t, top, homeSectionSize)
	assert.Equal(t, []uint{ids[1], ids[3], ids[4], ids[0]}, []uint{top[0].ID, top[1].ID, top[2].ID, top[3].ID})

	discounted, err := f.svc.ListCollection(f.ctx, CollectionDiscounted, 1, 0)
	require.NoError(t, err)
	require.Len(t, discounted.Items, 1)
	assert.Equal(t, old.ID, discounted.Items[0].ID)

	fresh, err := f.svc.ListCollection(f.ctx, CollectionNew, 1, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 5, fresh.Total, "products older than a week are not new")

	_, ok := ParseCollection("top-ordered")
	assert.True(t, ok)
	_, ok = ParseCollection("random")
	assert.False(t, ok)
}

func TestGetProductDetailAndVariants(t *testing.T) {
	f := newCatalogFixture(t)
	cat, err := f.svc.CreateCategory(f.ctx, "Phones", "")
	require.NoError(t, err)
	p, err := f.svc.CreateProduct(f.ctx, ProductInput{Name: "Redmi Note", Price: testutil.Dec("30000"), CategoryID: &cat.ID})
	require.NoError(t, err)
	assert.Equal(t, "redmi-note", p.Slug)

	price := testutil.Dec("32000")
	_, err = f.svc.CreateVariant(f.ctx, p.ID, VariantInput{Name: "256GB", Price: &price, Stock: 3})
	require.NoError(t, err)
	_, err = f.svc.AddImage(f.ctx, p.ID, "https://cdn.example.com/redmi.jpg", 0)
	require.NoError(t, err)

	got, err := f.svc.GetProduct(f.ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Phones", got.Category.Name)
	assert.Len(t, got.Variants, 1)
	assert.Len(t, got.Images, 1)

	variants, err := f.svc.ListVariants(f.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.True(t, price.Equal(variants[0].Price.Decimal))

	_, err = f.svc.GetProduct(f.ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.ListVariants(f.ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductValidation(t *testing.T) {
	f := newCatalogFixture(t)
	bad := uint(77)
	discount := testutil.Dec("150")
	_, err := f.svc.CreateProduct(f.ctx, ProductInput{
		Name:          "",
		Price:         testutil.Dec("100"),
		DiscountPrice: &discount,
		Stock:         -1,
		CategoryID:    &bad,
	})
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "name")
	assert.Contains(t, ve.Fields, "discount_price")
	assert.Contains(t, ve.Fields, "stock")
	assert.Contains(t, ve.Fields, "category_id")
}

func TestDeleteProductRestrictedByOrders(t *testing.T) {
	f := newCatalogFixture(t)
	used := testutil.SeedProduct(t, f.db, "used", "100", "", 5)
	unused := testutil.SeedProduct(t, f.db, "unused", "100", "", 5)
	testutil.SeedWilaya(t, f.db, "Alger", "400", "250")

	orders := NewOrderService(repository.NewStore(f.db), nil)
	_, err := orders.Create(f.ctx, CreateOrderInput{
		CustomerName: "a", CustomerPhone: "0555123456", DeliveryType: "pickup", Wilaya: "Alger",
		Items: []ItemInput{{ProductID: used.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	err = f.svc.DeleteProduct(f.ctx, used.ID)
	assert.ErrorIs(t, err, ErrProductInUse)

	require.NoError(t, f.svc.DeleteProduct(f.ctx, unused.ID))
	_, err = f.svc.GetProduct(f.ctx, unused.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteProduct(f.ctx, unused.ID), ErrNotFound)
}

func TestAdjustStock(t *testing.T) {
	f := newCatalogFixture(t)
	p := testutil.SeedProduct(t, f.db, "cable", "100", "", 2)

	got, err := f.svc.AdjustStock(f.ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)

	_, err = f.svc.AdjustStock(f.ctx, p.ID, -8)
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "delta")
	assert.Equal(t, 7, testutil.Reload(t, f.db, p).Stock)
}

func TestRegions(t *testing.T) {
	f := newCatalogFixture(t)
	w, err := f.svc.CreateWilaya(f.ctx, "Blida", testutil.Dec("500"), testutil.Dec("300"))
	require.NoError(t, err)
	_, err = f.svc.CreateWilaya(f.ctx, "Blida", testutil.Dec("500"), testutil.Dec("300"))
	assert.Error(t, err)

	_, err = f.svc.CreateCommune(f.ctx, w.ID, "Boufarik")
	require.NoError(t, err)
	_, err = f.svc.CreateCommune(f.ctx, w.ID, "Boufarik")
	assert.Error(t, err)

	wilayas, err := f.svc.ListWilayas(f.ctx)
	require.NoError(t, err)
	require.Len(t, wilayas, 1)
	assert.True(t, testutil.Dec("500").Equal(wilayas[0].DeliveryFee(model.DeliveryHome)))

	communes, err := f.svc.ListCommunes(f.ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, communes, 1)
	assert.Equal(t, "Boufarik", communes[0].Name)
	assert.True(t, f.mr.Exists(cache.PrefixRegions+":wilayas"))
}
