package cli

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/database"
	"github.com/d60-Lab/storefront/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample regions, categories and products",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		db, err := database.InitDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)
		if err := database.AutoMigrate(db); err != nil {
			return err
		}

		// 不接缓存，写操作直接落库
		catalog := service.NewCatalogService(repository.NewStore(db), nil, nil, service.CacheTTL{})
		return seed(cmd.Context(), catalog)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

type seedWilaya struct {
	name     string
	home     string
	pickup   string
	communes []string
}

var sampleWilayas = []seedWilaya{
	{"Alger", "400", "250", []string{"Bab Ezzouar", "Kouba", "Hydra", "El Biar"}},
	{"Oran", "600", "350", []string{"Bir El Djir", "Es Senia", "Arzew"}},
	{"Constantine", "600", "350", []string{"El Khroub", "Hamma Bouziane"}},
	{"Tamanrasset", "1200", "800", []string{"In Guezzam"}},
}

type seedProduct struct {
	name     string
	price    string
	discount string
	stock    int
	color    string
	size     string
}

var sampleCatalog = map[string][]seedProduct{
	"Vêtements": {
		{"Chemise en lin", "3200", "2800", 25, "blanc", "M"},
		{"Jean droit", "4500", "", 40, "bleu", "L"},
	},
	"Accessoires": {
		{"Sac en cuir", "7800", "6900", 8, "marron", ""},
		{"Montre classique", "5400", "", 12, "noir", ""},
	},
}

func seed(ctx context.Context, catalog service.CatalogService) error {
	existing, err := catalog.ListWilayas(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Info("seed skipped, regions already present", zap.Int("wilayas", len(existing)))
		return nil
	}

	for _, w := range sampleWilayas {
		created, err := catalog.CreateWilaya(ctx, w.name, decimal.RequireFromString(w.home), decimal.RequireFromString(w.pickup))
		if err != nil {
			return fmt.Errorf("seed wilaya %s: %w", w.name, err)
		}
		for _, c := range w.communes {
			if _, err := catalog.CreateCommune(ctx, created.ID, c); err != nil {
				return fmt.Errorf("seed commune %s: %w", c, err)
			}
		}
	}

	products := 0
	for name, items := range sampleCatalog {
		cat, err := catalog.CreateCategory(ctx, name, "")
		if err != nil {
			return fmt.Errorf("seed category %s: %w", name, err)
		}
		for _, p := range items {
			in := service.ProductInput{
				Name:       p.name,
				Price:      decimal.RequireFromString(p.price),
				Stock:      p.stock,
				CategoryID: &cat.ID,
				Color:      p.color,
				Size:       p.size,
			}
			if p.discount != "" {
				d := decimal.RequireFromString(p.discount)
				in.DiscountPrice = &d
			}
			if _, err := catalog.CreateProduct(ctx, in); err != nil {
				return fmt.Errorf("seed product %s: %w", p.name, err)
			}
			products++
		}
	}

	logger.Info("seed finished", zap.Int("wilayas", len(sampleWilayas)), zap.Int("products", products))
	return nil
}
