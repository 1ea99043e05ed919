package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		name               string
		page, size         int
		wantPage, wantSize int
		wantOffset         int
	}{
		{"defaults", 0, 0, 1, 12, 0},
		{"negative page", -3, 10, 1, 10, 0},
		{"size capped", 2, 500, 2, 100, 100},
		{"regular", 3, 12, 3, 12, 24},
		{"huge page clamped", math.MaxInt, 12, maxOffset/12 + 1, 12, maxOffset / 12 * 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, s, off := normalizePage(tc.page, tc.size, 12, 100)
			assert.Equal(t, tc.wantPage, p)
			assert.Equal(t, tc.wantSize, s)
			assert.Equal(t, tc.wantOffset, off)
			assert.GreaterOrEqual(t, off, 0)
		})
	}
}

func TestHugePageSharesOneCacheKey(t *testing.T) {
	p1, s1, _ := normalizePage(math.MaxInt, 12, 12, 100)
	p2, s2, _ := normalizePage(math.MaxInt/2, 12, 12, 100)
	assert.Equal(t, p1, p2)
	assert.Equal(t, s1, s2)
}
