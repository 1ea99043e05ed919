package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/response"
)

// ListProducts 商品列表
// @Summary 商品列表
// @Tags 商品
// @Produce json
// @Param category query int false "分类ID"
// @Param price_min query number false "最低价"
// @Param price_max query number false "最高价"
// @Param stock query int false "库存"
// @Param search query string false "名称/描述关键字"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量（最大 100）" default(12)
// @Success 200 {object} response.Response{data=service.Page[model.Product]}
// @Router /api/v1/products [get]
func (h *Handler) ListProducts(c *gin.Context) {
	fields := map[string]string{}
	q := service.ProductQuery{
		Search:   c.Query("search"),
		Page:     queryInt(c, "page", 1, fields),
		PageSize: queryInt(c, "page_size", 0, fields),
	}
	if raw := c.Query("category"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			cid := uint(id)
			q.CategoryID = &cid
		} else {
			fields["category"] = "must be a positive integer"
		}
	}
	if raw := c.Query("stock"); raw != "" {
		stock := queryInt(c, "stock", 0, fields)
		q.Stock = &stock
	}
	q.PriceMin = queryDecimal(c, "price_min", fields)
	q.PriceMax = queryDecimal(c, "price_max", fields)
	if len(fields) > 0 {
		response.ValidationFailed(c, fields)
		return
	}

	page, err := h.catalogService.ListProducts(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, page)
}

// ListDiscounted 折扣商品
// @Summary 折扣商品
// @Tags 商品
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(12)
// @Success 200 {object} response.Response{data=service.Page[model.Product]}
// @Router /api/v1/products/discounted [get]
func (h *Handler) ListDiscounted(c *gin.Context) {
	h.listCollection(c, service.CollectionDiscounted)
}

// ListNew 近 7 天上架
// @Summary 新品
// @Tags 商品
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(12)
// @Success 200 {object} response.Response{data=service.Page[model.Product]}
// @Router /api/v1/products/new [get]
func (h *Handler) ListNew(c *gin.Context) {
	h.listCollection(c, service.CollectionNew)
}

// ListTopOrdered 按销量排序
// @Summary 热销商品
// @Tags 商品
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(12)
// @Success 200 {object} response.Response{data=service.Page[model.Product]}
// @Router /api/v1/products/top-ordered [get]
func (h *Handler) ListTopOrdered(c *gin.Context) {
	h.listCollection(c, service.CollectionTopOrdered)
}

func (h *Handler) listCollection(c *gin.Context, coll service.Collection) {
	fields := map[string]string{}
	page := queryInt(c, "page", 1, fields)
	size := queryInt(c, "page_size", 0, fields)
	if len(fields) > 0 {
		response.ValidationFailed(c, fields)
		return
	}
	res, err := h.catalogService.ListCollection(c.Request.Context(), coll, page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, res)
}

// HomeSection 首页区块
// @Summary 首页商品（每组 4 个）
// @Tags 商品
// @Produce json
// @Param collection path string true "集合" Enums(discounted, new, top-ordered)
// @Success 200 {object} response.Response{data=[]model.Product}
// @Failure 404 {object} response.Response
// @Router /api/v1/products/home/{collection} [get]
func (h *Handler) HomeSection(c *gin.Context) {
	coll, ok := service.ParseCollection(c.Param("collection"))
	if !ok {
		response.NotFound(c, "unknown collection")
		return
	}
	list, err := h.catalogService.Home(c.Request.Context(), coll)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, list)
}

// GetProduct 商品详情
// @Summary 商品详情（含分类、图片、规格）
// @Tags 商品
// @Produce json
// @Param id path int true "商品ID"
// @Success 200 {object} response.Response{data=model.Product}
// @Failure 404 {object} response.Response
// @Router /api/v1/products/{id} [get]
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, p)
}

// ListVariants 商品规格（实时库存）
// @Summary 商品规格
// @Tags 商品
// @Produce json
// @Param id path int true "商品ID"
// @Success 200 {object} response.Response{data=[]model.ProductVariant}
// @Router /api/v1/products/{id}/variants [get]
func (h *Handler) ListVariants(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.catalogService.ListVariants(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, list)
}

// ListCategories 分类列表
// @Summary 分类列表
// @Tags 商品
// @Produce json
// @Success 200 {object} response.Response{data=[]model.Category}
// @Router /api/v1/categories [get]
func (h *Handler) ListCategories(c *gin.Context) {
	list, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, list)
}

// ListWilayas 省份及运费
// @Summary 省份列表
// @Tags 地区
// @Produce json
// @Success 200 {object} response.Response{data=[]model.Wilaya}
// @Router /api/v1/regions/wilayas [get]
func (h *Handler) ListWilayas(c *gin.Context) {
	list, err := h.catalogService.ListWilayas(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, list)
}

// ListCommunes 省份下的市镇
// @Summary 市镇列表
// @Tags 地区
// @Produce json
// @Param id path int true "省份ID"
// @Success 200 {object} response.Response{data=[]model.Commune}
// @Router /api/v1/regions/wilayas/{id}/communes [get]
func (h *Handler) ListCommunes(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.catalogService.ListCommunes(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, list)
}

func queryDecimal(c *gin.Context, name string, fields map[string]string) *decimal.Decimal {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		fields[name] = "must be a number"
		return nil
	}
	return &d
}
