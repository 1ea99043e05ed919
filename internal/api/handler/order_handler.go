package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/response"
)

type orderItemRequest struct {
	ProductID uint  `json:"product_id" binding:"required"`
	VariantID *uint `json:"variant_id"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// createOrderRequest delivery_type 为 home 时 commune 必填（由服务层校验）
type createOrderRequest struct {
	CustomerName  string             `json:"customer_name" binding:"required,max=100"`
	CustomerPhone string             `json:"customer_phone" binding:"required,dzphone"`
	DeliveryType  string             `json:"delivery_type" binding:"required"`
	Wilaya        string             `json:"wilaya" binding:"required"`
	Commune       string             `json:"commune"`
	Items         []orderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type addItemsRequest struct {
	Items []orderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

type bulkRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}

func toItemInputs(reqs []orderItemRequest) []service.ItemInput {
	out := make([]service.ItemInput, len(reqs))
	for i, r := range reqs {
		out[i] = service.ItemInput{ProductID: r.ProductID, VariantID: r.VariantID, Quantity: r.Quantity}
	}
	return out
}

// CreateOrder 下单
// @Summary 创建订单
// @Description 状态固定为 pending，运费按省份与配送方式计算；delivery_type=home 时 commune 必填
// @Tags 订单
// @Accept json
// @Produce json
// @Param request body createOrderRequest true "订单信息"
// @Success 201 {object} response.Response{data=model.Order}
// @Failure 400 {object} response.Response{data=map[string]string}
// @Failure 429 {object} response.Response
// @Router /api/v1/orders [post]
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	order, err := h.orderService.Create(c.Request.Context(), service.CreateOrderInput{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		DeliveryType:  req.DeliveryType,
		Wilaya:        req.Wilaya,
		Commune:       req.Commune,
		Items:         toItemInputs(req.Items),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, order)
}

// GetOrder 查询订单，含顾客联系方式，仅后台可用
// @Summary 查询订单详情
// @Tags 后台
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/admin/orders/{id} [get]
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.orderService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, order)
}

// ListOrders 后台订单列表
// @Summary 订单列表（pending 优先）
// @Tags 后台
// @Produce json
// @Security BearerAuth
// @Param status query string false "状态" Enums(pending, accepted, rejected)
// @Param search query string false "客户姓名或电话"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=service.Page[model.Order]}
// @Router /api/v1/admin/orders [get]
func (h *Handler) ListOrders(c *gin.Context) {
	fields := map[string]string{}
	in := service.ListOrdersInput{
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page", 1, fields),
		PageSize: queryInt(c, "page_size", 0, fields),
	}
	if len(fields) > 0 {
		response.ValidationFailed(c, fields)
		return
	}
	page, err := h.orderService.List(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, page)
}

// AcceptOrder 接单并扣减库存
// @Summary 接受订单
// @Tags 后台
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 400 {object} response.Response{data=map[string]string} "库存不足"
// @Failure 409 {object} response.Response "状态不允许"
// @Router /api/v1/admin/orders/{id}/accept [post]
func (h *Handler) AcceptOrder(c *gin.Context) {
	h.transition(c, model.OrderStatusAccepted)
}

// RejectOrder 拒单，不影响库存
// @Summary 拒绝订单
// @Tags 后台
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 409 {object} response.Response "状态不允许"
// @Router /api/v1/admin/orders/{id}/reject [post]
func (h *Handler) RejectOrder(c *gin.Context) {
	h.transition(c, model.OrderStatusRejected)
}

func (h *Handler) transition(c *gin.Context, target model.OrderStatus) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.orderService.Transition(c.Request.Context(), id, target)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, order)
}

// BulkAccept 批量接单
// @Summary 批量接受订单（仅 pending，逐单记录失败）
// @Tags 后台
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body bulkRequest true "订单ID列表"
// @Success 200 {object} response.Response{data=service.BatchResult}
// @Router /api/v1/admin/orders/bulk-accept [post]
func (h *Handler) BulkAccept(c *gin.Context) {
	h.bulk(c, model.OrderStatusAccepted)
}

// BulkReject 批量拒单
// @Summary 批量拒绝订单（仅 pending）
// @Tags 后台
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body bulkRequest true "订单ID列表"
// @Success 200 {object} response.Response{data=service.BatchResult}
// @Router /api/v1/admin/orders/bulk-reject [post]
func (h *Handler) BulkReject(c *gin.Context) {
	h.bulk(c, model.OrderStatusRejected)
}

func (h *Handler) bulk(c *gin.Context, target model.OrderStatus) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.orderService.BulkTransition(c.Request.Context(), req.IDs, target)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, res)
}

// AddOrderItems 批量追加明细
// @Summary 追加订单明细（一次重算合计）
// @Tags 后台
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Param request body addItemsRequest true "明细"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 409 {object} response.Response "订单已锁定"
// @Router /api/v1/admin/orders/{id}/items [post]
func (h *Handler) AddOrderItems(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req addItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	order, err := h.orderService.AddItems(c.Request.Context(), id, toItemInputs(req.Items))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, order)
}

// UpdateOrderItem 修改明细数量
// @Summary 修改明细数量
// @Tags 后台
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Param item_id path int true "明细ID"
// @Param request body updateItemRequest true "数量"
// @Success 200 {object} response.Response{data=model.Order}
// @Router /api/v1/admin/orders/{id}/items/{item_id} [patch]
func (h *Handler) UpdateOrderItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	order, err := h.orderService.UpdateItem(c.Request.Context(), id, itemID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, order)
}

// DeleteOrderItem 删除明细
// @Summary 删除明细
// @Tags 后台
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Param item_id path int true "明细ID"
// @Success 200 {object} response.Response{data=model.Order}
// @Router /api/v1/admin/orders/{id}/items/{item_id} [delete]
func (h *Handler) DeleteOrderItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}
	order, err := h.orderService.RemoveItem(c.Request.Context(), id, itemID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, order)
}

// RecomputeOrder 按当前价格重算 pending 订单的合计
// @Summary 重算订单合计
// @Tags 后台
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Success 200 {object} response.Response{data=map[string]string}
// @Failure 409 {object} response.Response "订单已决"
// @Router /api/v1/admin/orders/{id}/recompute [post]
func (h *Handler) RecomputeOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	total, err := h.orderService.RecomputeTotal(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"order_id": id, "total_amount": total})
}
