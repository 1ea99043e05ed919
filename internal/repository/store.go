package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Store 聚合各仓储，Transaction 内的 Store 共享同一个事务
type Store interface {
	Orders() OrderRepository
	Products() ProductRepository
	Categories() CategoryRepository
	Regions() RegionRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore 基于 gorm.DB 创建 Store
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Orders() OrderRepository { return NewOrderRepository(s.db) }
func (s *gormStore) Products() ProductRepository { return NewProductRepository(s.db) }
func (s *gormStore) Categories() CategoryRepository { return NewCategoryRepository(s.db) }
func (s *gormStore) Regions() RegionRepository { return NewRegionRepository(s.db) }

// Transaction 在一个数据库事务内执行 fn，fn 返回错误时回滚
func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
