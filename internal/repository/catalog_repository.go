package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/storefront/internal/model"
)

type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) error
	GetByID(ctx context.Context, id uint) (*model.Category, error)
	List(ctx context.Context) ([]*model.Category, error)
}

type categoryRepository struct{ db *gorm.DB }

func NewCategoryRepository(db *gorm.DB) CategoryRepository { return &categoryRepository{db: db} }

func (r *categoryRepository) Create(ctx context.Context, c *model.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*model.Category, error) {
	var c model.Category
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*model.Category, error) {
	var res []*model.Category
	err := r.db.WithContext(ctx).Order("name").Find(&res).Error
	return res, err
}

// RegionRepository 省份 / 市镇
type RegionRepository interface {
	CreateWilaya(ctx context.Context, w *model.Wilaya) error
	CreateCommune(ctx context.Context, c *model.Commune) error
	GetWilayaByName(ctx context.Context, name string) (*model.Wilaya, error)
	GetCommune(ctx context.Context, wilayaID uint, name string) (*model.Commune, error)
	ListWilayas(ctx context.Context) ([]*model.Wilaya, error)
	ListCommunes(ctx context.Context, wilayaID uint) ([]*model.Commune, error)
}

type regionRepository struct{ db *gorm.DB }

func NewRegionRepository(db *gorm.DB) RegionRepository { return &regionRepository{db: db} }

func (r *regionRepository) CreateWilaya(ctx context.Context, w *model.Wilaya) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *regionRepository) CreateCommune(ctx context.Context, c *model.Commune) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *regionRepository) GetWilayaByName(ctx context.Context, name string) (*model.Wilaya, error) {
	var w model.Wilaya
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&w).Error; err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

func (r *regionRepository) GetCommune(ctx context.Context, wilayaID uint, name string) (*model.Commune, error) {
	var c model.Commune
	if err := r.db.WithContext(ctx).Where("wilaya_id = ? AND name = ?", wilayaID, name).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *regionRepository) ListWilayas(ctx context.Context) ([]*model.Wilaya, error) {
	var res []*model.Wilaya
	err := r.db.WithContext(ctx).Order("name").Find(&res).Error
	return res, err
}

func (r *regionRepository) ListCommunes(ctx context.Context, wilayaID uint) ([]*model.Commune, error) {
	var res []*model.Commune
	err := r.db.WithContext(ctx).Where("wilaya_id = ?", wilayaID).Order("name").Find(&res).Error
	return res, err
}
