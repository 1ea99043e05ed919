package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/internal/cache"
	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/pkg/logger"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

// ItemInput 明细输入，VariantID 可选
type ItemInput struct {
	ProductID uint
	VariantID *uint
	Quantity  int
}

// CreateOrderInput 下单输入
type CreateOrderInput struct {
	CustomerName  string
	CustomerPhone string
	DeliveryType  string
	Wilaya        string
	Commune       string
	Items         []ItemInput
}

// ListOrdersInput 后台订单列表查询
type ListOrdersInput struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

// BatchFailure 批量操作中单个订单的失败原因
type BatchFailure struct {
	OrderID uint              `json:"order_id"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// BatchResult 批量迁移结果
type BatchResult struct {
	Target         model.OrderStatus `json:"target"`
	Succeeded      []uint            `json:"succeeded"`
	Skipped        []uint            `json:"skipped"`
	Failed         []BatchFailure    `json:"failed"`
	SucceededCount int               `json:"succeeded_count"`
	SkippedCount   int               `json:"skipped_count"`
	FailedCount    int               `json:"failed_count"`
}

// OrderService 订单生命周期
type OrderService interface {
	Create(ctx context.Context, in CreateOrderInput) (*model.Order, error)
	Get(ctx context.Context, id uint) (*model.Order, error)
	List(ctx context.Context, in ListOrdersInput) (*Page[*model.Order], error)

	AddItems(ctx context.Context, orderID uint, items []ItemInput) (*model.Order, error)
	UpdateItem(ctx context.Context, orderID, itemID uint, quantity int) (*model.Order, error)
	RemoveItem(ctx context.Context, orderID, itemID uint) (*model.Order, error)
	RecomputeTotal(ctx context.Context, orderID uint) (decimal.Decimal, error)

	Accept(ctx context.Context, orderID uint) (*model.Order, error)
	Reject(ctx context.Context, orderID uint) (*model.Order, error)
	Transition(ctx context.Context, orderID uint, target model.OrderStatus) (*model.Order, error)
	BulkTransition(ctx context.Context, ids []uint, target model.OrderStatus) (*BatchResult, error)
}

type orderService struct {
	store       repository.Store
	invalidator *CacheInvalidator
}

// NewOrderService invalidator 可为 nil（不使用缓存）
func NewOrderService(store repository.Store, invalidator *CacheInvalidator) OrderService {
	return &orderService{store: store, invalidator: invalidator}
}

func (s *orderService) Create(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	errs := fieldErrors{}
	name := strings.TrimSpace(in.CustomerName)
	if name == "" {
		errs.add("customer_name", "required")
	}
	if strings.TrimSpace(in.CustomerPhone) == "" {
		errs.add("customer_phone", "required")
	}
	deliveryType, err := model.ParseDeliveryType(in.DeliveryType)
	if err != nil {
		errs.add("delivery_type", "must be home or pickup")
	}

	var wilaya *model.Wilaya
	var commune *string
	if strings.TrimSpace(in.Wilaya) == "" {
		errs.add("wilaya", "required")
	} else {
		wilaya, err = s.store.Regions().GetWilayaByName(ctx, strings.TrimSpace(in.Wilaya))
		switch {
		case errors.Is(err, repository.ErrNotFound):
			errs.add("wilaya", "unknown wilaya")
		case err != nil:
			return nil, fmt.Errorf("load wilaya: %w", err)
		}
	}

	if c := strings.TrimSpace(in.Commune); c != "" {
		commune = &c
		if wilaya != nil {
			if _, err := s.store.Regions().GetCommune(ctx, wilaya.ID, c); err != nil {
				if !errors.Is(err, repository.ErrNotFound) {
					return nil, fmt.Errorf("load commune: %w", err)
				}
				errs.add("commune", "commune does not belong to wilaya")
			}
		}
	} else if deliveryType == model.DeliveryHome {
		errs.add("commune", "required when delivery_type is home")
	}

	if len(in.Items) == 0 {
		errs.add("items", "at least one item is required")
	}
	items, err := s.priceItems(ctx, s.store, in.Items, stockDemand{}, errs)
	if err != nil {
		return nil, err
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	order := &model.Order{
		CustomerName:  name,
		CustomerPhone: strings.TrimSpace(in.CustomerPhone),
		DeliveryType:  deliveryType,
		Wilaya:        wilaya.Name,
		Commune:       commune,
		Status:        model.OrderStatusPending,
		DeliveryFee:   wilaya.DeliveryFee(deliveryType),
	}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Orders().CreateItems(ctx, items); err != nil {
			return fmt.Errorf("create items: %w", err)
		}
		_, err := recompute(ctx, tx, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("order created",
		zap.Uint("order_id", order.ID),
		zap.Int("items", len(items)),
		zap.String("wilaya", order.Wilaya),
	)
	return s.store.Orders().GetByID(ctx, order.ID)
}

func (s *orderService) Get(ctx context.Context, id uint) (*model.Order, error) {
	return s.store.Orders().GetByID(ctx, id)
}

func (s *orderService) List(ctx context.Context, in ListOrdersInput) (*Page[*model.Order], error) {
	page, size, offset := normalizePage(in.Page, in.PageSize, defaultOrderPageSize, maxOrderPageSize)
	f := repository.OrderFilter{Search: strings.TrimSpace(in.Search), Offset: offset, Limit: size}
	if in.Status != "" {
		st, err := model.ParseOrderStatus(in.Status)
		if err != nil {
			return nil, &ValidationError{Fields: map[string]string{"status": err.Error()}}
		}
		f.Status = &st
	}
	orders, total, err := s.store.Orders().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return newPage(orders, total, page, size), nil
}

// AddItems 批量加明细：一次查询商品、一次批量插入、一次重算
func (s *orderService) AddItems(ctx context.Context, orderID uint, inputs []ItemInput) (*model.Order, error) {
	order, err := s.pendingOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	errs := fieldErrors{}
	if len(inputs) == 0 {
		errs.add("items", "at least one item is required")
	}
	// 已有明细占用的库存一并计入
	items, err := s.priceItems(ctx, s.store, inputs, newStockDemand(order.Items), errs)
	if err != nil {
		return nil, err
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := lockPending(ctx, tx, orderID); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = orderID
		}
		if err := tx.Orders().CreateItems(ctx, items); err != nil {
			return fmt.Errorf("create items: %w", err)
		}
		_, err := recompute(ctx, tx, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.store.Orders().GetByID(ctx, orderID)
}

func (s *orderService) UpdateItem(ctx context.Context, orderID, itemID uint, quantity int) (*model.Order, error) {
	if quantity <= 0 {
		return nil, &ValidationError{Fields: map[string]string{"quantity": "must be greater than 0"}}
	}
	order, err := s.pendingOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	item, err := s.store.Orders().GetItem(ctx, orderID, itemID)
	if err != nil {
		return nil, err
	}
	demand := stockDemand{}
	for i := range order.Items {
		if order.Items[i].ID != itemID {
			demand.add(&order.Items[i])
		}
	}
	item.Quantity = quantity
	if avail, want := item.AvailableStock(), demand.add(item); want > avail {
		return nil, &ValidationError{Fields: map[string]string{
			"quantity": fmt.Sprintf("only %d left in stock for %s, order needs %d", avail, item.Label(), want),
		}}
	}
	item.Price = model.LineTotal(item.Product, item.Variant, quantity)

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := lockPending(ctx, tx, orderID); err != nil {
			return err
		}
		if err := tx.Orders().UpdateItem(ctx, item); err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		_, err := recompute(ctx, tx, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.store.Orders().GetByID(ctx, orderID)
}

func (s *orderService) RemoveItem(ctx context.Context, orderID, itemID uint) (*model.Order, error) {
	order, err := s.pendingOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := lockPending(ctx, tx, orderID); err != nil {
			return err
		}
		deleted, err := tx.Orders().DeleteItem(ctx, orderID, itemID)
		if err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		if !deleted {
			return ErrNotFound
		}
		_, err = recompute(ctx, tx, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.store.Orders().GetByID(ctx, orderID)
}

// RecomputeTotal 按当前价格重算并只写回 total_amount；已决订单的合计不再变化
func (s *orderService) RecomputeTotal(ctx context.Context, orderID uint) (decimal.Decimal, error) {
	order, err := s.pendingOrder(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	var total decimal.Decimal
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := lockPending(ctx, tx, orderID); err != nil {
			return err
		}
		total, err = recompute(ctx, tx, order)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (s *orderService) Accept(ctx context.Context, orderID uint) (*model.Order, error) {
	return s.Transition(ctx, orderID, model.OrderStatusAccepted)
}

func (s *orderService) Reject(ctx context.Context, orderID uint) (*model.Order, error) {
	return s.Transition(ctx, orderID, model.OrderStatusRejected)
}

// Transition 按迁移表推进订单状态；进入 accepted 时在同一事务内扣减库存
func (s *orderService) Transition(ctx context.Context, orderID uint, target model.OrderStatus) (*model.Order, error) {
	current, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, target)
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		// 状态条件更新放在事务第一步，并发迁移只有一个能命中
		ok, err := tx.Orders().UpdateStatus(ctx, orderID, current.Status, target)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: order %d is no longer %s", ErrInvalidTransition, orderID, current.Status)
		}
		if target == model.OrderStatusAccepted {
			return applyAcceptance(ctx, tx, orderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("order transitioned",
		zap.Uint("order_id", orderID),
		zap.String("from", current.Status.String()),
		zap.String("to", target.String()),
	)
	if target == model.OrderStatusAccepted {
		// 库存与销量变化影响商品详情和热销榜
		s.invalidator.Enqueue(cache.PrefixProducts)
	}
	return s.store.Orders().GetByID(ctx, orderID)
}

// applyAcceptance 校验库存后逐条扣减，任何一步失败整个事务回滚
func applyAcceptance(ctx context.Context, tx repository.Store, orderID uint) error {
	order, err := tx.Orders().GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	errs := fieldErrors{}
	demand := stockDemand{}
	for i := range order.Items {
		it := &order.Items[i]
		if avail, want := it.AvailableStock(), demand.add(it); want > avail {
			errs.add(fmt.Sprintf("items[%d]", i),
				fmt.Sprintf("insufficient stock for %s: requested %d, available %d", it.Label(), want, avail))
		}
	}
	if err := errs.err(); err != nil {
		return err
	}

	products := tx.Products()
	for i := range order.Items {
		it := &order.Items[i]
		switch {
		case it.VariantID != nil:
			ok, err := products.DecrementVariantStock(ctx, *it.VariantID, it.Quantity)
			if err != nil {
				return fmt.Errorf("decrement variant stock: %w", err)
			}
			if !ok {
				return fmt.Errorf("%w: %s", ErrInsufficientStock, it.Label())
			}
			if it.ProductID != nil {
				if err := products.IncrementSold(ctx, *it.ProductID, it.Quantity); err != nil {
					return fmt.Errorf("increment sold: %w", err)
				}
			}
		case it.ProductID != nil:
			ok, err := products.DecrementStock(ctx, *it.ProductID, it.Quantity)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if !ok {
				return fmt.Errorf("%w: %s", ErrInsufficientStock, it.Label())
			}
		}
	}

	total := model.OrderTotal(order.Items, order.DeliveryFee)
	if err := tx.Orders().UpdateTotal(ctx, orderID, total); err != nil {
		return fmt.Errorf("update total: %w", err)
	}
	return nil
}

// BulkTransition 逐个迁移 pending 订单，非 pending 跳过，失败单独记录不影响其他订单
func (s *orderService) BulkTransition(ctx context.Context, ids []uint, target model.OrderStatus) (*BatchResult, error) {
	if !model.OrderStatusPending.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: bulk %s", ErrInvalidTransition, target)
	}
	res := &BatchResult{Target: target, Succeeded: []uint{}, Skipped: []uint{}, Failed: []BatchFailure{}}

	ids = uniqueIDs(ids)
	orders, err := s.store.Orders().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	byID := make(map[uint]*model.Order, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}

	for _, id := range ids {
		o, ok := byID[id]
		if !ok {
			res.Failed = append(res.Failed, BatchFailure{OrderID: id, Error: ErrNotFound.Error()})
			continue
		}
		if o.Status != model.OrderStatusPending {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		if _, err := s.Transition(ctx, id, target); err != nil {
			f := BatchFailure{OrderID: id, Error: err.Error()}
			if ve, ok := AsValidation(err); ok {
				f.Fields = ve.Fields
			}
			logger.Warn("bulk transition failed", zap.Uint("order_id", id), zap.String("target", target.String()), zap.Error(err))
			res.Failed = append(res.Failed, f)
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}

	res.SucceededCount = len(res.Succeeded)
	res.SkippedCount = len(res.Skipped)
	res.FailedCount = len(res.Failed)
	return res, nil
}

// pendingOrder 加载订单并要求其仍为 pending
func (s *orderService) pendingOrder(ctx context.Context, orderID uint) (*model.Order, error) {
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusPending {
		return nil, fmt.Errorf("%w: order %d is %s", ErrOrderLocked, orderID, order.Status)
	}
	return order, nil
}

func lockPending(ctx context.Context, tx repository.Store, orderID uint) error {
	ok, err := tx.Orders().LockPending(ctx, orderID)
	if err != nil {
		return fmt.Errorf("lock order: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: order %d", ErrOrderLocked, orderID)
	}
	return nil
}

// priceItems 解析商品与规格（各一次查询）并按当前价格计算明细金额，字段错误写入 errs
func (s *orderService) priceItems(ctx context.Context, store repository.Store, inputs []ItemInput, demand stockDemand, errs fieldErrors) ([]model.OrderItem, error) {
	productIDs := make([]uint, 0, len(inputs))
	variantIDs := make([]uint, 0)
	for _, in := range inputs {
		productIDs = append(productIDs, in.ProductID)
		if in.VariantID != nil {
			variantIDs = append(variantIDs, *in.VariantID)
		}
	}

	products, err := store.Products().FindByIDs(ctx, uniqueIDs(productIDs))
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	variants, err := store.Products().FindVariantsByIDs(ctx, uniqueIDs(variantIDs))
	if err != nil {
		return nil, fmt.Errorf("load variants: %w", err)
	}
	productByID := make(map[uint]*model.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}
	variantByID := make(map[uint]*model.ProductVariant, len(variants))
	for _, v := range variants {
		variantByID[v.ID] = v
	}

	items := make([]model.OrderItem, 0, len(inputs))
	for i, in := range inputs {
		key := fmt.Sprintf("items[%d]", i)
		if in.Quantity <= 0 {
			errs.add(key+".quantity", "must be greater than 0")
			continue
		}
		p, ok := productByID[in.ProductID]
		if !ok {
			errs.add(key+".product_id", "product not found")
			continue
		}
		var v *model.ProductVariant
		if in.VariantID != nil {
			v, ok = variantByID[*in.VariantID]
			if !ok || v.ProductID != p.ID {
				errs.add(key+".variant_id", "variant not found for product")
				continue
			}
		}

		item := model.OrderItem{
			ProductID: &p.ID,
			Product:   p,
			VariantID: in.VariantID,
			Variant:   v,
			Quantity:  in.Quantity,
			Price:     model.LineTotal(p, v, in.Quantity),
		}
		if avail, want := item.AvailableStock(), demand.add(&item); want > avail {
			errs.add(key, fmt.Sprintf("only %d left in stock for %s, order needs %d", avail, item.Label(), want))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// stockDemand 按库存来源累计订单需要的数量，同一商品或规格分多行时合并校验
type stockDemand map[model.StockKey]int

func newStockDemand(items []model.OrderItem) stockDemand {
	d := stockDemand{}
	for i := range items {
		d.add(&items[i])
	}
	return d
}

// add 计入一条明细，返回该来源的累计数量
func (d stockDemand) add(it *model.OrderItem) int {
	k, ok := it.StockKey()
	if !ok {
		return it.Quantity
	}
	d[k] += it.Quantity
	return d[k]
}

// recompute 合计 = Σ 实际单价 x 数量 + 运费，只写 total_amount
func recompute(ctx context.Context, store repository.Store, order *model.Order) (decimal.Decimal, error) {
	items, err := store.Orders().ListItems(ctx, order.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load items: %w", err)
	}
	total := model.OrderTotal(items, order.DeliveryFee)
	if err := store.Orders().UpdateTotal(ctx, order.ID, total); err != nil {
		return decimal.Zero, fmt.Errorf("update total: %w", err)
	}
	order.TotalAmount = total
	return total, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
