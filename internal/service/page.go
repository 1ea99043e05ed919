package service

import "math"

// maxOffset 超过后页码按最后可达页处理，避免 (page-1)*size 溢出
const maxOffset = math.MaxInt32

// Page 分页结果
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// normalizePage 修正页码与每页数量，返回 offset/limit
func normalizePage(page, size, def, max int) (p, s, offset int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = def
	}
	if size > max {
		size = max
	}
	if last := maxOffset/size + 1; page > last {
		page = last
	}
	return page, size, (page - 1) * size
}

func newPage[T any](items []T, total int64, page, size int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Items: items, Total: total, Page: page, PageSize: size}
}
