package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/internal/cache"
	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/pkg/logger"
)

const (
	defaultProductPageSize = 12
	maxProductPageSize     = 100
	homeSectionSize        = 4
	newProductWindow       = 7 * 24 * time.Hour
)

// Collection 首页/专题商品集合
type Collection string

const (
	CollectionDiscounted Collection = "discounted"
	CollectionNew        Collection = "new"
	CollectionTopOrdered Collection = "top-ordered"
)

// ParseCollection 解析路由中的集合名
func ParseCollection(s string) (Collection, bool) {
	switch c := Collection(s); c {
	case CollectionDiscounted, CollectionNew, CollectionTopOrdered:
		return c, true
	}
	return "", false
}

// ProductQuery 商品列表筛选条件
type ProductQuery struct {
	CategoryID *uint
	PriceMin   *decimal.Decimal
	PriceMax   *decimal.Decimal
	Stock      *int
	Search     string
	Page       int
	PageSize   int
}

// ProductInput 后台商品写入
type ProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	Stock         int
	CategoryID    *uint
	Image         string
	Color         string
	Size          string
}

// VariantInput 后台规格写入，Price 为空表示沿用商品售价
type VariantInput struct {
	Name  string
	Price *decimal.Decimal
	Stock int
	Color string
	Size  string
	Image string
}

// CacheTTL 列表与详情的缓存时长
type CacheTTL struct {
	List   time.Duration
	Detail time.Duration
}

// CatalogService 商品、分类、地区的读写
type CatalogService interface {
	ListProducts(ctx context.Context, q ProductQuery) (*Page[*model.Product], error)
	ListCollection(ctx context.Context, c Collection, page, pageSize int) (*Page[*model.Product], error)
	Home(ctx context.Context, c Collection) ([]*model.Product, error)
	GetProduct(ctx context.Context, id uint) (*model.Product, error)
	ListVariants(ctx context.Context, productID uint) ([]*model.ProductVariant, error)
	ListCategories(ctx context.Context) ([]*model.Category, error)
	ListWilayas(ctx context.Context) ([]*model.Wilaya, error)
	ListCommunes(ctx context.Context, wilayaID uint) ([]*model.Commune, error)

	CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uint, in ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	AdjustStock(ctx context.Context, id uint, delta int) (*model.Product, error)
	CreateVariant(ctx context.Context, productID uint, in VariantInput) (*model.ProductVariant, error)
	AddImage(ctx context.Context, productID uint, url string, position int) (*model.ProductImage, error)
	CreateCategory(ctx context.Context, name, description string) (*model.Category, error)
	CreateWilaya(ctx context.Context, name string, homePrice, pickupPrice decimal.Decimal) (*model.Wilaya, error)
	CreateCommune(ctx context.Context, wilayaID uint, name string) (*model.Commune, error)
}

type catalogService struct {
	store       repository.Store
	cache       *cache.Catalog
	invalidator *CacheInvalidator
	ttl         CacheTTL
	now         func() time.Time
}

// NewCatalogService cache/invalidator 均可为 nil；没有 invalidator 时写操作同步清缓存
func NewCatalogService(store repository.Store, c *cache.Catalog, invalidator *CacheInvalidator, ttl CacheTTL) CatalogService {
	if ttl.List <= 0 {
		ttl.List = 5 * time.Minute
	}
	if ttl.Detail <= 0 {
		ttl.Detail = 8 * time.Minute
	}
	return &catalogService{store: store, cache: c, invalidator: invalidator, ttl: ttl, now: time.Now}
}

func (s *catalogService) ListProducts(ctx context.Context, q ProductQuery) (*Page[*model.Product], error) {
	page, size, offset := normalizePage(q.Page, q.PageSize, defaultProductPageSize, maxProductPageSize)
	f := repository.ProductFilter{
		CategoryID: q.CategoryID,
		PriceMin:   q.PriceMin,
		PriceMax:   q.PriceMax,
		Stock:      q.Stock,
		Search:     strings.TrimSpace(q.Search),
		Offset:     offset,
		Limit:      size,
	}
	key := cache.BuildKey(cache.PrefixProducts+":list", map[string]string{
		"category":  uintParam(q.CategoryID),
		"price_min": decimalParam(q.PriceMin),
		"price_max": decimalParam(q.PriceMax),
		"stock":     intParam(q.Stock),
		"search":    f.Search,
		"page":      strconv.Itoa(page),
		"page_size": strconv.Itoa(size),
	})
	return cache.GetOrLoad(ctx, s.cache, key, s.ttl.List, func(ctx context.Context) (*Page[*model.Product], error) {
		return s.loadPage(ctx, f, page, size)
	})
}

func (s *catalogService) ListCollection(ctx context.Context, c Collection, page, pageSize int) (*Page[*model.Product], error) {
	page, size, offset := normalizePage(page, pageSize, defaultProductPageSize, maxProductPageSize)
	f := s.collectionFilter(c)
	f.Offset, f.Limit = offset, size
	key := cache.BuildKey(cache.PrefixProducts+":"+string(c), map[string]string{
		"page":      strconv.Itoa(page),
		"page_size": strconv.Itoa(size),
	})
	return cache.GetOrLoad(ctx, s.cache, key, s.ttl.List, func(ctx context.Context) (*Page[*model.Product], error) {
		return s.loadPage(ctx, f, page, size)
	})
}

// Home 首页区块，每个集合取前 4 个
func (s *catalogService) Home(ctx context.Context, c Collection) ([]*model.Product, error) {
	f := s.collectionFilter(c)
	f.Limit = homeSectionSize
	key := cache.PrefixProducts + ":home:" + string(c)
	return cache.GetOrLoad(ctx, s.cache, key, s.ttl.List, func(ctx context.Context) ([]*model.Product, error) {
		list, _, err := s.store.Products().List(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", c, err)
		}
		if list == nil {
			list = []*model.Product{}
		}
		return list, nil
	})
}

func (s *catalogService) collectionFilter(c Collection) repository.ProductFilter {
	switch c {
	case CollectionDiscounted:
		return repository.ProductFilter{Discounted: true, Sort: repository.SortDiscountDesc}
	case CollectionNew:
		after := s.now().Add(-newProductWindow)
		return repository.ProductFilter{CreatedAfter: &after, Sort: repository.SortNewest}
	default:
		return repository.ProductFilter{Sort: repository.SortTopSold}
	}
}

func (s *catalogService) loadPage(ctx context.Context, f repository.ProductFilter, page, size int) (*Page[*model.Product], error) {
	list, total, err := s.store.Products().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return newPage(list, total, page, size), nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	key := fmt.Sprintf("%s:detail:%d", cache.PrefixProducts, id)
	return cache.GetOrLoad(ctx, s.cache, key, s.ttl.Detail, func(ctx context.Context) (*model.Product, error) {
		return s.store.Products().GetByID(ctx, id)
	})
}

// ListVariants 规格库存变化频繁，不走缓存
func (s *catalogService) ListVariants(ctx context.Context, productID uint) ([]*model.ProductVariant, error) {
	if _, err := s.store.Products().GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.Products().ListVariants(ctx, productID)
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	return cache.GetOrLoad(ctx, s.cache, cache.PrefixCategories, s.ttl.List, func(ctx context.Context) ([]*model.Category, error) {
		return s.store.Categories().List(ctx)
	})
}

func (s *catalogService) ListWilayas(ctx context.Context) ([]*model.Wilaya, error) {
	key := cache.PrefixRegions + ":wilayas"
	return cache.GetOrLoad(ctx, s.cache, key, s.ttl.List, func(ctx context.Context) ([]*model.Wilaya, error) {
		return s.store.Regions().ListWilayas(ctx)
	})
}

func (s *catalogService) ListCommunes(ctx context.Context, wilayaID uint) ([]*model.Commune, error) {
	key := fmt.Sprintf("%s:communes:%d", cache.PrefixRegions, wilayaID)
	return cache.GetOrLoad(ctx, s.cache, key, s.ttl.List, func(ctx context.Context) ([]*model.Commune, error) {
		return s.store.Regions().ListCommunes(ctx, wilayaID)
	})
}

func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error) {
	errs := fieldErrors{}
	s.validateProduct(ctx, in, errs)
	if in.Stock < 0 {
		errs.add("stock", "must be >= 0")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}
	p := &model.Product{Stock: in.Stock}
	applyProductInput(p, in)
	if err := s.store.Products().Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.invalidate(ctx, cache.PrefixProducts)
	logger.Info("product created", zap.Uint("product_id", p.ID), zap.String("slug", p.Slug))
	return s.store.Products().GetByID(ctx, p.ID)
}

// UpdateProduct 更新基础信息，库存通过 AdjustStock 调整
func (s *catalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*model.Product, error) {
	p, err := s.store.Products().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	errs := fieldErrors{}
	s.validateProduct(ctx, in, errs)
	if err := errs.err(); err != nil {
		return nil, err
	}
	applyProductInput(p, in)
	if err := s.store.Products().Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	s.invalidate(ctx, cache.PrefixProducts)
	return s.store.Products().GetByID(ctx, id)
}

// DeleteProduct 被订单明细引用的商品不可删除
func (s *catalogService) DeleteProduct(ctx context.Context, id uint) error {
	n, err := s.store.Products().CountOrderItems(ctx, id)
	if err != nil {
		return fmt.Errorf("count order items: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %d order items", ErrProductInUse, n)
	}
	if err := s.store.Products().Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.PrefixProducts)
	return nil
}

func (s *catalogService) AdjustStock(ctx context.Context, id uint, delta int) (*model.Product, error) {
	if _, err := s.store.Products().GetByID(ctx, id); err != nil {
		return nil, err
	}
	ok, err := s.store.Products().AdjustStock(ctx, id, delta)
	if err != nil {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}
	if !ok {
		return nil, &ValidationError{Fields: map[string]string{"delta": "stock cannot go below zero"}}
	}
	s.invalidate(ctx, cache.PrefixProducts)
	return s.store.Products().GetByID(ctx, id)
}

func (s *catalogService) CreateVariant(ctx context.Context, productID uint, in VariantInput) (*model.ProductVariant, error) {
	if _, err := s.store.Products().GetByID(ctx, productID); err != nil {
		return nil, err
	}
	errs := fieldErrors{}
	if in.Stock < 0 {
		errs.add("stock", "must be >= 0")
	}
	if in.Price != nil && in.Price.IsNegative() {
		errs.add("price", "must be >= 0")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}
	v := &model.ProductVariant{
		ProductID: productID,
		Name:      strings.TrimSpace(in.Name),
		Stock:     in.Stock,
		Color:     in.Color,
		Size:      in.Size,
		Image:     in.Image,
	}
	if in.Price != nil {
		v.Price = decimal.NewNullDecimal(*in.Price)
	}
	if err := s.store.Products().CreateVariant(ctx, v); err != nil {
		return nil, fmt.Errorf("create variant: %w", err)
	}
	s.invalidate(ctx, cache.PrefixProducts)
	return v, nil
}

func (s *catalogService) AddImage(ctx context.Context, productID uint, url string, position int) (*model.ProductImage, error) {
	if _, err := s.store.Products().GetByID(ctx, productID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(url) == "" {
		return nil, &ValidationError{Fields: map[string]string{"url": "required"}}
	}
	img := &model.ProductImage{ProductID: productID, URL: strings.TrimSpace(url), Position: position}
	if err := s.store.Products().CreateImage(ctx, img); err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}
	s.invalidate(ctx, cache.PrefixProducts)
	return img, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Fields: map[string]string{"name": "required"}}
	}
	c := &model.Category{Name: name, Description: description}
	if err := s.store.Categories().Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	// 商品列表内嵌分类
	s.invalidate(ctx, cache.PrefixCategories, cache.PrefixProducts)
	return c, nil
}

func (s *catalogService) CreateWilaya(ctx context.Context, name string, homePrice, pickupPrice decimal.Decimal) (*model.Wilaya, error) {
	errs := fieldErrors{}
	name = strings.TrimSpace(name)
	if name == "" {
		errs.add("name", "required")
	}
	if homePrice.IsNegative() {
		errs.add("home_price", "must be >= 0")
	}
	if pickupPrice.IsNegative() {
		errs.add("pickup_price", "must be >= 0")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}
	if _, err := s.store.Regions().GetWilayaByName(ctx, name); err == nil {
		return nil, &ValidationError{Fields: map[string]string{"name": "wilaya already exists"}}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	w := &model.Wilaya{Name: name, HomePrice: homePrice, PickupPrice: pickupPrice}
	if err := s.store.Regions().CreateWilaya(ctx, w); err != nil {
		return nil, fmt.Errorf("create wilaya: %w", err)
	}
	s.invalidate(ctx, cache.PrefixRegions)
	return w, nil
}

func (s *catalogService) CreateCommune(ctx context.Context, wilayaID uint, name string) (*model.Commune, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Fields: map[string]string{"name": "required"}}
	}
	if _, err := s.store.Regions().GetCommune(ctx, wilayaID, name); err == nil {
		return nil, &ValidationError{Fields: map[string]string{"name": "commune already exists in wilaya"}}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	c := &model.Commune{WilayaID: wilayaID, Name: name}
	if err := s.store.Regions().CreateCommune(ctx, c); err != nil {
		return nil, fmt.Errorf("create commune: %w", err)
	}
	s.invalidate(ctx, cache.PrefixRegions)
	return c, nil
}

func (s *catalogService) validateProduct(ctx context.Context, in ProductInput, errs fieldErrors) {
	if strings.TrimSpace(in.Name) == "" {
		errs.add("name", "required")
	}
	if in.Price.IsNegative() {
		errs.add("price", "must be >= 0")
	}
	if d := in.DiscountPrice; d != nil {
		switch {
		case d.IsNegative():
			errs.add("discount_price", "must be >= 0")
		case d.IsPositive() && d.GreaterThanOrEqual(in.Price):
			errs.add("discount_price", "must be lower than price")
		}
	}
	if in.CategoryID != nil {
		if _, err := s.store.Categories().GetByID(ctx, *in.CategoryID); err != nil {
			errs.add("category_id", "unknown category")
		}
	}
}

func applyProductInput(p *model.Product, in ProductInput) {
	p.Name = strings.TrimSpace(in.Name)
	p.Slug = slug.Make(p.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.DiscountPrice = decimal.NullDecimal{}
	if in.DiscountPrice != nil {
		p.DiscountPrice = decimal.NewNullDecimal(*in.DiscountPrice)
	}
	p.CategoryID = in.CategoryID
	p.Image = in.Image
	p.Color = in.Color
	p.Size = in.Size
}

// invalidate 有 worker 时异步投递，否则同步清理
func (s *catalogService) invalidate(ctx context.Context, prefixes ...string) {
	if s.invalidator != nil {
		s.invalidator.Enqueue(prefixes...)
		return
	}
	for _, p := range prefixes {
		if _, err := s.cache.ClearPrefix(ctx, p); err != nil {
			logger.Warn("cache invalidation failed", zap.String("prefix", p), zap.Error(err))
		}
	}
}

func uintParam(v *uint) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*v), 10)
}

func intParam(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func decimalParam(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return v.String()
}
