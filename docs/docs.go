// Package docs 注册 Swagger 文档，供 /swagger 路由使用
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"contact": {},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/health": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"系统"
				],
				"summary": "健康检查",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"503": {
						"description": "database unavailable",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				}
			}
		},
		"/api/v1/orders": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"订单"
				],
				"summary": "创建订单",
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"400": {
						"description": "validation failed",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"429": {
						"description": "too many requests",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "订单信息",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.createOrderRequest"
						}
					}
				]
			}
		},
		"/api/v1/products": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"商品"
				],
				"summary": "商品列表",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "分类ID",
						"name": "category",
						"in": "query"
					},
					{
						"type": "number",
						"description": "最低价",
						"name": "price_min",
						"in": "query"
					},
					{
						"type": "number",
						"description": "最高价",
						"name": "price_max",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "库存",
						"name": "stock",
						"in": "query"
					},
					{
						"type": "string",
						"description": "关键字",
						"name": "search",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "页码",
						"name": "page",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "每页数量",
						"name": "page_size",
						"in": "query"
					}
				]
			}
		},
		"/api/v1/products/discounted": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"商品"
				],
				"summary": "折扣商品",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "页码",
						"name": "page",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "每页数量",
						"name": "page_size",
						"in": "query"
					}
				]
			}
		},
		"/api/v1/products/new": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"商品"
				],
				"summary": "新品",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "页码",
						"name": "page",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "每页数量",
						"name": "page_size",
						"in": "query"
					}
				]
			}
		},
		"/api/v1/products/top-ordered": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"商品"
				],
				"summary": "热销商品",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "页码",
						"name": "page",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "每页数量",
						"name": "page_size",
						"in": "query"
					}
				]
			}
		},
		"/api/v1/products/home/{collection}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"商品"
				],
				"summary": "首页商品（每组 4 个）",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"404": {
						"description": "unknown collection",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "集合",
						"name": "collection",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/api/v1/products/{id}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"商品"
				],
				"summary": "商品详情（含分类、图片、规格）",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"404": {
						"description": "not found",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/api/v1/products/{id}/variants": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"商品"
				],
				"summary": "商品规格",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/api/v1/categories": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"商品"
				],
				"summary": "分类列表",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				}
			}
		},
		"/api/v1/regions/wilayas": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"地区"
				],
				"summary": "省份列表",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				}
			}
		},
		"/api/v1/regions/wilayas/{id}/communes": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"地区"
				],
				"summary": "市镇列表",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/api/v1/admin/login": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "管理员登录",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"401": {
						"description": "invalid credentials",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "账号密码",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.loginRequest"
						}
					}
				]
			}
		},
		"/api/v1/admin/orders": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "订单列表（pending 优先）",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "状态",
						"name": "status",
						"in": "query"
					},
					{
						"type": "string",
						"description": "客户姓名或电话",
						"name": "search",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "页码",
						"name": "page",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "每页数量",
						"name": "page_size",
						"in": "query"
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/admin/orders/{id}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "查询订单详情",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"401": {
						"description": "unauthorized",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"404": {
						"description": "not found",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/admin/orders/{id}/accept": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "接受订单",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"400": {
						"description": "insufficient stock",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"409": {
						"description": "invalid transition",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/admin/orders/{id}/reject": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "拒绝订单",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"409": {
						"description": "invalid transition",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/admin/orders/bulk-accept": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "批量接受订单",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "订单ID列表",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.bulkRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/admin/orders/bulk-reject": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "批量拒绝订单",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "订单ID列表",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.bulkRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/admin/orders/{id}/items": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "追加订单明细",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"409": {
						"description": "order locked",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "integer",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "明细",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.addItemsRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/admin/orders/{id}/items/{item_id}": {
			"patch": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "修改明细数量",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "integer",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "integer",
						"description": "明细ID",
						"name": "item_id",
						"in": "path",
						"required": true
					},
					{
						"description": "数量",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.updateItemRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"delete": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "删除明细",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "integer",
						"description": "明细ID",
						"name": "item_id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/admin/orders/{id}/recompute": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "重算订单合计",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/admin/products": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "新建商品",
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "商品",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.productRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/admin/products/{id}": {
			"put": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "更新商品",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "integer",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "商品",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.productRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"delete": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "删除商品",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"409": {
						"description": "product in use",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/admin/products/{id}/stock": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "调整库存",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "integer",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "增量",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.stockRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/admin/products/{id}/variants": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "新建商品规格",
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "integer",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "规格",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.variantRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/admin/products/{id}/images": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "新增商品图片",
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "integer",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "图片",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.imageRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/admin/categories": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "新建分类",
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "分类",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.categoryRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/admin/wilayas": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "新建省份及运费",
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "省份",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.wilayaRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/admin/wilayas/{id}/communes": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台"
				],
				"summary": "新建市镇",
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "integer",
						"description": "ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "市镇",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.communeRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		}
	},
	"definitions": {
		"response.Response": {
			"type": "object",
			"properties": {
				"code": {
					"type": "integer"
				},
				"message": {
					"type": "string"
				},
				"data": {}
			}
		},
		"handler.orderItemRequest": {
			"type": "object",
			"properties": {
				"product_id": {
					"type": "integer"
				},
				"variant_id": {
					"type": "integer"
				},
				"quantity": {
					"type": "integer"
				}
			},
			"required": [
				"product_id",
				"quantity"
			]
		},
		"handler.createOrderRequest": {
			"type": "object",
			"properties": {
				"customer_name": {
					"type": "string"
				},
				"customer_phone": {
					"type": "string"
				},
				"delivery_type": {
					"type": "string"
				},
				"wilaya": {
					"type": "string"
				},
				"commune": {
					"type": "string"
				},
				"items": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/handler.orderItemRequest"
					}
				}
			},
			"required": [
				"customer_name",
				"customer_phone",
				"delivery_type",
				"items",
				"wilaya"
			]
		},
		"handler.addItemsRequest": {
			"type": "object",
			"properties": {
				"items": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/handler.orderItemRequest"
					}
				}
			},
			"required": [
				"items"
			]
		},
		"handler.updateItemRequest": {
			"type": "object",
			"properties": {
				"quantity": {
					"type": "integer"
				}
			},
			"required": [
				"quantity"
			]
		},
		"handler.bulkRequest": {
			"type": "object",
			"properties": {
				"ids": {
					"type": "array",
					"items": {
						"type": "integer"
					}
				}
			},
			"required": [
				"ids"
			]
		},
		"handler.loginRequest": {
			"type": "object",
			"properties": {
				"username": {
					"type": "string"
				},
				"password": {
					"type": "string"
				}
			},
			"required": [
				"password",
				"username"
			]
		},
		"handler.productRequest": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"price": {
					"type": "string"
				},
				"discount_price": {
					"type": "string"
				},
				"stock": {
					"type": "integer"
				},
				"category_id": {
					"type": "integer"
				},
				"image": {
					"type": "string"
				},
				"color": {
					"type": "string"
				},
				"size": {
					"type": "string"
				}
			},
			"required": [
				"name"
			]
		},
		"handler.stockRequest": {
			"type": "object",
			"properties": {
				"delta": {
					"type": "integer"
				}
			},
			"required": [
				"delta"
			]
		},
		"handler.variantRequest": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				},
				"price": {
					"type": "string"
				},
				"stock": {
					"type": "integer"
				},
				"color": {
					"type": "string"
				},
				"size": {
					"type": "string"
				},
				"image": {
					"type": "string"
				}
			},
			"required": [
				"name"
			]
		},
		"handler.imageRequest": {
			"type": "object",
			"properties": {
				"url": {
					"type": "string"
				},
				"position": {
					"type": "integer"
				}
			},
			"required": [
				"url"
			]
		},
		"handler.categoryRequest": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				},
				"description": {
					"type": "string"
				}
			},
			"required": [
				"name"
			]
		},
		"handler.wilayaRequest": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				},
				"home_price": {
					"type": "string"
				},
				"pickup_price": {
					"type": "string"
				}
			},
			"required": [
				"name"
			]
		},
		"handler.communeRequest": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				}
			},
			"required": [
				"name"
			]
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Storefront API",
	Description:      "订单生命周期、商品目录与后台管理接口",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
