// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/pkg/database"
)

// NewDB opens a migrated sqlite database in a per-test temp dir with
// foreign keys enforced.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=1", filepath.Join(t.TempDir(), "test.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	// sqlite 只允许一个写者，测试内串行使用同一连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func Dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func NullDec(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: Dec(s), Valid: true}
}

// SeedProduct inserts a product with the given base price, discount and stock.
func SeedProduct(t testing.TB, db *gorm.DB, name, price, discount string, stock int) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, Slug: name, Price: Dec(price), Stock: stock}
	if discount != "" {
		p.DiscountPrice = NullDec(discount)
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// SeedVariant inserts a variant; empty price means "inherit from product".
func SeedVariant(t testing.TB, db *gorm.DB, productID uint, name, price string, stock int) *model.ProductVariant {
	t.Helper()
	v := &model.ProductVariant{ProductID: productID, Name: name, Stock: stock}
	if price != "" {
		v.Price = NullDec(price)
	}
	require.NoError(t, db.Create(v).Error)
	return v
}

// SeedWilaya inserts a wilaya with home/pickup delivery prices and its communes.
func SeedWilaya(t testing.TB, db *gorm.DB, name, home, pickup string, communes ...string) *model.Wilaya {
	t.Helper()
	w := &model.Wilaya{Name: name, HomePrice: Dec(home), PickupPrice: Dec(pickup)}
	require.NoError(t, db.Create(w).Error)
	for _, c := range communes {
		require.NoError(t, db.Create(&model.Commune{Name: c, WilayaID: w.ID}).Error)
	}
	return w
}

// Reload re-reads a product's stock and sold counters.
func Reload(t testing.TB, db *gorm.DB, p *model.Product) *model.Product {
	t.Helper()
	var fresh model.Product
	require.NoError(t, db.First(&fresh, p.ID).Error)
	return &fresh
}
