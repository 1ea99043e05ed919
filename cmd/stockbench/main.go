package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/d60-Lab/storefront/config"
	"github.com/d60-Lab/storefront/internal/cache"
	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	if err := database.AutoMigrate(db); err != nil {
		panic(err)
	}

	// orders / stock / concurrency / quantity per order
	n := envInt("N", 2000)
	stock := envInt("STOCK", 1500)
	conc := envInt("CONC", 8)
	qty := envInt("QTY", 1)

	catalog := cache.New(nil, false)
	invalidator := service.NewCacheInvalidator(catalog, n)
	stop := invalidator.Start(2)
	store := repository.NewStore(db)
	orders := service.NewOrderService(store, invalidator)
	products := service.NewCatalogService(store, catalog, invalidator, service.CacheTTL{})

	ctx := context.Background()

	// seed: one wilaya, one product
	wname := fmt.Sprintf("bench-%d", time.Now().UnixNano())
	must(products.CreateWilaya(ctx, wname, decimal.NewFromInt(400), decimal.NewFromInt(250)))
	p := must(products.CreateProduct(ctx, service.ProductInput{
		Name:  wname,
		Price: decimal.NewFromInt(500),
		Stock: stock,
	}))

	t0 := time.Now()
	ids := make([]uint, 0, n)
	for i := 0; i < n; i++ {
		o := must(orders.Create(ctx, service.CreateOrderInput{
			CustomerName:  "bench",
			CustomerPhone: "0555123456",
			DeliveryType:  string(model.DeliveryPickup),
			Wilaya:        wname,
			Items:         []service.ItemInput{{ProductID: p.ID, Quantity: qty}},
		}))
		ids = append(ids, o.ID)
	}
	createDur := time.Since(t0)

	// concurrent accepts
	var accepted, outOfStock, other atomic.Int64
	lat := make(chan time.Duration, n)
	feed := make(chan uint, n)
	for _, id := range ids {
		feed <- id
	}
	close(feed)
	workers := conc
	if workers > n {
		workers = n
	}
	done := make(chan struct{}, workers)

	t1 := time.Now()
	for w := 0; w < workers; w++ {
		go func() {
			for id := range feed {
				st := time.Now()
				_, err := orders.Accept(ctx, id)
				lat <- time.Since(st)
				var ve *service.ValidationError
				switch {
				case err == nil:
					accepted.Add(1)
				case errors.As(err, &ve), errors.Is(err, service.ErrInsufficientStock):
					outOfStock.Add(1)
				default:
					other.Add(1)
				}
			}
			done <- struct{}{}
		}()
	}
	for w := 0; w < workers; w++ {
		<-done
	}
	acceptDur := time.Since(t1)
	close(lat)
	recs := make([]time.Duration, 0, n)
	for d := range lat {
		recs = append(recs, d)
	}

	// invalidation landing
	landing := make([]time.Duration, 0, n)
	_ = stop(context.Background())
	for drained := false; !drained; {
		select {
		case d := <-invalidator.Metrics():
			landing = append(landing, d)
		default:
			drained = true
		}
	}

	final := must(products.GetProduct(ctx, p.ID))

	fmt.Printf("driver=%s N=%d STOCK=%d CONC=%d QTY=%d\n", cfg.Database.Driver, n, stock, conc, qty)
	fmt.Printf("Create total: %v, per op: %v\n", createDur, createDur/time.Duration(n))
	fmt.Printf("Accept total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		acceptDur, acceptDur/time.Duration(n), pct(recs, 0.50), pct(recs, 0.95), pct(recs, 0.99))
	fmt.Printf("accepted=%d out_of_stock=%d other_errors=%d\n", accepted.Load(), outOfStock.Load(), other.Load())
	if len(landing) > 0 {
		fmt.Printf("Invalidation landing: samples=%d, p50=%v, p95=%v\n", len(landing), pct(landing, 0.50), pct(landing, 0.95))
	}

	wantStock := stock - int(accepted.Load())*qty
	wantSold := int(accepted.Load()) * qty
	fmt.Printf("final stock=%d (want %d) sold=%d (want %d)\n", final.Stock, wantStock, final.Sold, wantSold)
	if final.Stock != wantStock || final.Sold != wantSold || final.Stock < 0 {
		fmt.Println("STOCK MISMATCH")
		os.Exit(1)
	}
}

func pct(vs []time.Duration, q float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(q*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}
