package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/storefront/internal/model"
)

// ProductSort 列表排序方式
type ProductSort int

const (
	SortByID ProductSort = iota
	SortNewest
	SortTopSold
	SortDiscountDesc
)

// ProductFilter 商品列表查询条件
type ProductFilter struct {
	CategoryID   *uint
	PriceMin     *decimal.Decimal
	PriceMax     *decimal.Decimal
	Stock        *int
	Search       string
	Discounted   bool
	CreatedAfter *time.Time
	Sort         ProductSort
	Offset       int
	Limit        int
}

// ProductRepository 商品、规格、图片以及库存台账
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []uint) ([]*model.Product, error)
	List(ctx context.Context, f ProductFilter) ([]*model.Product, int64, error)

	CreateVariant(ctx context.Context, v *model.ProductVariant) error
	FindVariantsByIDs(ctx context.Context, ids []uint) ([]*model.ProductVariant, error)
	ListVariants(ctx context.Context, productID uint) ([]*model.ProductVariant, error)
	CreateImage(ctx context.Context, img *model.ProductImage) error

	// CountOrderItems 引用该商品的订单明细数量（删除保护）
	CountOrderItems(ctx context.Context, productID uint) (int64, error)

	// DecrementStock 原子扣减库存并累加销量：stock >= qty 才生效，返回是否命中
	DecrementStock(ctx context.Context, productID uint, qty int) (bool, error)
	// DecrementVariantStock 原子扣减规格库存
	DecrementVariantStock(ctx context.Context, variantID uint, qty int) (bool, error)
	// IncrementSold 累加商品销量
	IncrementSold(ctx context.Context, productID uint, qty int) error
	// AdjustStock 后台补货/盘点：stock += delta，结果不得为负
	AdjustStock(ctx context.Context, productID uint, delta int) (bool, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepository{db: db} }

func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

// Update 更新基础字段，库存与销量只能通过台账方法变更
func (r *productRepository) Update(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", p.ID).
		Select("name", "slug", "description", "price", "discount_price", "category_id", "image", "color", "size", "updated_at").
		Updates(p).Error
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id uint) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&p, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []uint) ([]*model.Product, error) {
	var res []*model.Product
	if len(ids) == 0 {
		return res, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&res).Error
	return res, err
}

func (r *productRepository) List(ctx context.Context, f ProductFilter) ([]*model.Product, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if f.CategoryID != nil {
			db = db.Where("category_id = ?", *f.CategoryID)
		}
		if f.PriceMin != nil {
			db = db.Where("price >= ?", *f.PriceMin)
		}
		if f.PriceMax != nil {
			db = db.Where("price <= ?", *f.PriceMax)
		}
		if f.Stock != nil {
			db = db.Where("stock = ?", *f.Stock)
		}
		if f.Search != "" {
			like := "%" + f.Search + "%"
			db = db.Where("name LIKE ? OR description LIKE ?", like, like)
		}
		if f.Discounted {
			db = db.Where("discount_price IS NOT NULL AND discount_price > 0")
		}
		if f.CreatedAfter != nil {
			db = db.Where("created_at >= ?", *f.CreatedAfter)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Product{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := r.db.WithContext(ctx).Preload("Category").Scopes(scope)
	switch f.Sort {
	case SortNewest:
		q = q.Order("created_at DESC")
	case SortTopSold:
		q = q.Order("sold DESC")
	case SortDiscountDesc:
		q = q.Order("discount_price DESC")
	}
	var res []*model.Product
	err := q.Order("id").Offset(f.Offset).Limit(f.Limit).Find(&res).Error
	if err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

func (r *productRepository) CreateVariant(ctx context.Context, v *model.ProductVariant) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *productRepository) FindVariantsByIDs(ctx context.Context, ids []uint) ([]*model.ProductVariant, error) {
	var res []*model.ProductVariant
	if len(ids) == 0 {
		return res, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&res).Error
	return res, err
}

func (r *productRepository) ListVariants(ctx context.Context, productID uint) ([]*model.ProductVariant, error) {
	var res []*model.ProductVariant
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("id").Find(&res).Error
	return res, err
}

func (r *productRepository) CreateImage(ctx context.Context, img *model.ProductImage) error {
	return r.db.WithContext(ctx).Create(img).Error
}

func (r *productRepository) CountOrderItems(ctx context.Context, productID uint) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.OrderItem{}).Where("product_id = ?", productID).Count(&cnt).Error
	return cnt, err
}

func (r *productRepository) DecrementStock(ctx context.Context, productID uint, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Updates(map[string]interface{}{
			"stock": gorm.Expr("stock - ?", qty),
			"sold":  gorm.Expr("sold + ?", qty),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *productRepository) DecrementVariantStock(ctx context.Context, variantID uint, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.ProductVariant{}).
		Where("id = ? AND stock >= ?", variantID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *productRepository) IncrementSold(ctx context.Context, productID uint, qty int) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", productID).
		Update("sold", gorm.Expr("sold + ?", qty)).Error
}

func (r *productRepository) AdjustStock(ctx context.Context, productID uint, delta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock + ? >= 0", productID, delta).
		Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
