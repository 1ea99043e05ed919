package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/d60-Lab/storefront/config"
	"github.com/d60-Lab/storefront/internal/cache"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/database"
)

type request struct {
	categoryID *uint
	page       int
	size       int
	search     string
}

func main() {
	ctx := context.Background()

	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	mustDo(database.AutoMigrate(db))
	store := repository.NewStore(db)

	const (
		categoryCount = 8
		productCount  = 4000
		requestCount  = 6000
	)

	fmt.Println("Setting up catalog...")
	seeder := service.NewCatalogService(store, nil, nil, service.CacheTTL{})
	run := time.Now().UnixNano()
	categoryIDs := make([]uint, categoryCount)
	for i := range categoryIDs {
		c := must(seeder.CreateCategory(ctx, fmt.Sprintf("bench-%d-%d", run, i), ""))
		categoryIDs[i] = c.ID
	}
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < productCount; i++ {
		cat := categoryIDs[i%categoryCount]
		price := decimal.NewFromInt(int64(200 + rnd.Intn(9800)))
		in := service.ProductInput{
			Name:       fmt.Sprintf("bench %d item %d", run, i),
			Price:      price,
			Stock:      rnd.Intn(50),
			CategoryID: &cat,
		}
		if i%4 == 0 {
			d := price.Mul(decimal.NewFromFloat(0.8)).Round(0)
			in.DiscountPrice = &d
		}
		must(seeder.CreateProduct(ctx, in))
	}
	fmt.Printf("Catalog ready: %d products in %d categories\n", productCount, categoryCount)

	// REDIS_ADDR 未设置时用进程内 miniredis
	client, closeRedis := redisClient()
	defer closeRedis()
	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("redis unavailable: %v", err))
	}

	reqs := makeRequests(requestCount, categoryIDs)
	ttl := service.CacheTTL{List: 10 * time.Minute, Detail: 10 * time.Minute}

	noCache := runScenario(ctx, client, store, reqs, false, false, ttl)
	cold := runScenario(ctx, client, store, reqs, true, false, ttl)
	warm := runScenario(ctx, client, store, reqs, true, true, ttl)

	fmt.Printf("\nProduct list latency (%d req, %d products, driver=%s)\n", requestCount, productCount, cfg.Database.Driver)
	for _, r := range []struct {
		name string
		res  scenarioResult
	}{{"No cache", noCache}, {"Cold cache", cold}, {"Warm cache", warm}} {
		fmt.Printf("%-12s avg=%v p95=%v p99=%v hits=%d misses=%d cache_keys=%d mem=%s\n",
			r.name, avg(r.res.durations), pct(r.res.durations, 0.95), pct(r.res.durations, 0.99),
			r.res.stats.Hits, r.res.stats.Misses, r.res.cacheKeys, formatBytes(r.res.memoryBytes),
		)
	}

	// 写后失效
	catalog := cache.New(client, true)
	svc := service.NewCatalogService(store, catalog, nil, ttl)
	for _, r := range reqs[:500] {
		_, _ = svc.ListProducts(ctx, r.query())
	}
	before := countKeys(ctx, client)
	start := time.Now()
	removed := must(catalog.ClearPrefix(ctx, cache.PrefixProducts))
	fmt.Printf("Invalidate %s: keys_before=%d removed=%d took=%v\n", cache.PrefixProducts, before, removed, time.Since(start))
}

type scenarioResult struct {
	durations   []time.Duration
	stats       cache.Stats
	cacheKeys   int
	memoryBytes int64
}

func runScenario(ctx context.Context, client *redis.Client, store repository.Store, reqs []request, enabled, warm bool, ttl service.CacheTTL) scenarioResult {
	client.FlushAll(ctx)
	catalog := cache.New(client, enabled)
	svc := service.NewCatalogService(store, catalog, nil, ttl)

	if warm {
		fmt.Print("  Warming cache...")
		for _, r := range reqs {
			if _, err := svc.ListProducts(ctx, r.query()); err != nil {
				panic(err)
			}
		}
		fmt.Println(" done")
		// 只统计正式阶段
		catalog = cache.New(client, enabled)
		svc = service.NewCatalogService(store, catalog, nil, ttl)
	}

	fmt.Print("  Running benchmark...")
	out := make([]time.Duration, 0, len(reqs))
	for _, r := range reqs {
		start := time.Now()
		if _, err := svc.ListProducts(ctx, r.query()); err != nil {
			panic(err)
		}
		out = append(out, time.Since(start))
	}
	fmt.Println(" done")

	var memBytes int64
	if info, err := client.Info(ctx, "memory").Result(); err == nil {
		memBytes = parseRedisMemory(info)
	}
	return scenarioResult{
		durations:   out,
		stats:       catalog.Stats(),
		cacheKeys:   countKeys(ctx, client),
		memoryBytes: memBytes,
	}
}

func redisClient() (*redis.Client, func()) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c := redis.NewClient(&redis.Options{Addr: addr})
		return c, func() { _ = c.Close() }
	}
	mr := must(miniredis.Run())
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return c, func() { _ = c.Close(); mr.Close() }
}

func countKeys(ctx context.Context, client *redis.Client) int {
	keys, _ := client.Keys(ctx, cache.Root+"*").Result()
	return len(keys)
}

// parseRedisMemory extracts used_memory from Redis INFO
func parseRedisMemory(info string) int64 {
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "used_memory:"); ok {
			n, _ := strconv.ParseInt(v, 10, 64)
			return n
		}
	}
	return 0
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// makeRequests 大部分请求落在分类首页，少量深翻页与搜索
func makeRequests(n int, categories []uint) []request {
	sizes := []int{12, 24, 48}
	terms := []string{"", "", "", "item 1", "item 2"}
	out := make([]request, n)
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < n; i++ {
		page := 1
		if rnd.Float64() > 0.72 {
			page = 2 + rnd.Intn(30)
		}
		out[i] = request{
			page:   page,
			size:   sizes[rnd.Intn(len(sizes))],
			search: terms[rnd.Intn(len(terms))],
		}
		if k := rnd.Intn(len(categories) + 1); k > 0 {
			id := categories[k-1]
			out[i].categoryID = &id
		}
	}
	return out
}

func (r request) query() service.ProductQuery {
	return service.ProductQuery{CategoryID: r.categoryID, Page: r.page, PageSize: r.size, Search: r.search}
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vs {
		sum += v
	}
	return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}
