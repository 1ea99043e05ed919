package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/internal/cache"
	"github.com/d60-Lab/storefront/pkg/logger"
)

type invalidateJob struct {
	prefix string
	enqAt  time.Time
}

// CacheInvalidator 本地异步缓存失效执行器：写路径只负责投递前缀，worker 负责 SCAN+DEL
type CacheInvalidator struct {
	cache     *cache.Catalog
	ch        chan invalidateJob
	metricsCh chan time.Duration
}

func NewCacheInvalidator(c *cache.Catalog, queueSize int) *CacheInvalidator {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &CacheInvalidator{cache: c, ch: make(chan invalidateJob, queueSize), metricsCh: make(chan time.Duration, 4096)}
}

// Start 启动 workers 个消费者，返回的函数用于停止并尽量排空队列
func (r *CacheInvalidator) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 2
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case job := <-r.ch:
					r.run(job)
				case <-stopCh:
					return
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		// 停止后在当前 goroutine 内同步处理剩余任务
		for {
			select {
			case job := <-r.ch:
				r.run(job)
			case <-ctx.Done():
				return ctx.Err()
			default:
				return nil
			}
		}
	}
}

func (r *CacheInvalidator) run(job invalidateJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := r.cache.ClearPrefix(ctx, job.prefix)
	if err != nil {
		logger.Warn("cache invalidation failed", zap.String("prefix", job.prefix), zap.Error(err))
		return
	}
	logger.Debug("cache invalidated", zap.String("prefix", job.prefix), zap.Int("keys", n))
	select {
	case r.metricsCh <- time.Since(job.enqAt):
	default:
	}
}

// Enqueue 投递需要清理的前缀，队列满时丢弃并告警（缓存仍会按 TTL 过期）
func (r *CacheInvalidator) Enqueue(prefixes ...string) {
	if r == nil {
		return
	}
	for _, p := range prefixes {
		select {
		case r.ch <- invalidateJob{prefix: p, enqAt: time.Now()}:
		default:
			logger.Warn("invalidation queue full, drop", zap.String("prefix", p))
		}
	}
}

// Metrics 返回失效落地耗时的只读通道
func (r *CacheInvalidator) Metrics() <-chan time.Duration { return r.metricsCh }

// QueueLen 返回当前队列长度（采样值）
func (r *CacheInvalidator) QueueLen() int {
	if r == nil {
		return 0
	}
	return len(r.ch)
}
