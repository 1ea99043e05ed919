package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/response"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type productRequest struct {
	Name          string           `json:"name" binding:"required,max=255"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	Stock         int              `json:"stock" binding:"gte=0"`
	CategoryID    *uint            `json:"category_id"`
	Image         string           `json:"image"`
	Color         string           `json:"color"`
	Size          string           `json:"size"`
}

func (r productRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		DiscountPrice: r.DiscountPrice,
		Stock:         r.Stock,
		CategoryID:    r.CategoryID,
		Image:         r.Image,
		Color:         r.Color,
		Size:          r.Size,
	}
}

type stockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

type variantRequest struct {
	Name  string           `json:"name" binding:"required,max=255"`
	Price *decimal.Decimal `json:"price"`
	Stock int              `json:"stock" binding:"gte=0"`
	Color string           `json:"color"`
	Size  string           `json:"size"`
	Image string           `json:"image"`
}

type imageRequest struct {
	URL      string `json:"url" binding:"required,url"`
	Position int    `json:"position"`
}

type categoryRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
}

type wilayaRequest struct {
	Name        string          `json:"name" binding:"required,max=100"`
	HomePrice   decimal.Decimal `json:"home_price"`
	PickupPrice decimal.Decimal `json:"pickup_price"`
}

type communeRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// Login 管理员登录
// @Summary 管理员登录
// @Tags 后台
// @Accept json
// @Produce json
// @Param request body loginRequest true "账号密码"
// @Success 200 {object} response.Response{data=service.Token}
// @Failure 401 {object} response.Response
// @Router /api/v1/admin/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	tok, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, tok)
}

// CreateProduct 新建商品
// @Summary 新建商品
// @Tags 后台
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body productRequest true "商品"
// @Success 201 {object} response.Response{data=model.Product}
// @Router /api/v1/admin/products [post]
func (h *Handler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.catalogService.CreateProduct(c.Request.Context(), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, p)
}

// UpdateProduct 更新商品基础信息
// @Summary 更新商品（库存请用 stock 接口）
// @Tags 后台
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Param request body productRequest true "商品"
// @Success 200 {object} response.Response{data=model.Product}
// @Router /api/v1/admin/products/{id} [put]
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.catalogService.UpdateProduct(c.Request.Context(), id, req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, p)
}

// DeleteProduct 删除商品
// @Summary 删除商品（被订单引用时拒绝）
// @Tags 后台
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/admin/products/{id} [delete]
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteProduct(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

// AdjustStock 补货或盘点
// @Summary 调整库存
// @Tags 后台
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Param request body stockRequest true "增量（可为负）"
// @Success 200 {object} response.Response{data=model.Product}
// @Router /api/v1/admin/products/{id}/stock [post]
func (h *Handler) AdjustStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.catalogService.AdjustStock(c.Request.Context(), id, req.Delta)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, p)
}

// CreateVariant 新建规格
// @Summary 新建商品规格
// @Tags 后台
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Param request body variantRequest true "规格"
// @Success 201 {object} response.Response{data=model.ProductVariant}
// @Router /api/v1/admin/products/{id}/variants [post]
func (h *Handler) CreateVariant(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req variantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	v, err := h.catalogService.CreateVariant(c.Request.Context(), id, service.VariantInput{
		Name:  req.Name,
		Price: req.Price,
		Stock: req.Stock,
		Color: req.Color,
		Size:  req.Size,
		Image: req.Image,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, v)
}

// AddImage 新增商品图片
// @Summary 新增商品图片
// @Tags 后台
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Param request body imageRequest true "图片"
// @Success 201 {object} response.Response{data=model.ProductImage}
// @Router /api/v1/admin/products/{id}/images [post]
func (h *Handler) AddImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	img, err := h.catalogService.AddImage(c.Request.Context(), id, req.URL, req.Position)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, img)
}

// CreateCategory 新建分类
// @Summary 新建分类
// @Tags 后台
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body categoryRequest true "分类"
// @Success 201 {object} response.Response{data=model.Category}
// @Router /api/v1/admin/categories [post]
func (h *Handler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cat, err := h.catalogService.CreateCategory(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, cat)
}

// CreateWilaya 新建省份
// @Summary 新建省份及运费
// @Tags 后台
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body wilayaRequest true "省份"
// @Success 201 {object} response.Response{data=model.Wilaya}
// @Router /api/v1/admin/wilayas [post]
func (h *Handler) CreateWilaya(c *gin.Context) {
	var req wilayaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	w, err := h.catalogService.CreateWilaya(c.Request.Context(), req.Name, req.HomePrice, req.PickupPrice)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, w)
}

// CreateCommune 新建市镇
// @Summary 新建市镇
// @Tags 后台
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "省份ID"
// @Param request body communeRequest true "市镇"
// @Success 201 {object} response.Response{data=model.Commune}
// @Router /api/v1/admin/wilayas/{id}/communes [post]
func (h *Handler) CreateCommune(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req communeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cm, err := h.catalogService.CreateCommune(c.Request.Context(), id, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, cm)
}
