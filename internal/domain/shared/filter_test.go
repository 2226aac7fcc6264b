package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		in         Filter
		page, size int
		dir        string
		offset     int
	}{
		{"zero values", Filter{}, 1, DefaultPageSize, "desc", 0},
		{"oversized page", Filter{Page: 0, PageSize: 1000, OrderDir: "sideways"}, 1, MaxPageSize, "desc", 0},
		{"third page ascending", Filter{Page: 3, PageSize: 10, OrderDir: "asc"}, 3, 10, "asc", 20},
		{"direction is case-insensitive", Filter{Page: 2, PageSize: 50, OrderDir: "ASC"}, 2, 50, "asc", 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.in.Normalize()
			assert.Equal(t, tt.page, f.Page)
			assert.Equal(t, tt.size, f.PageSize)
			assert.Equal(t, tt.dir, f.OrderDir)
			assert.Equal(t, tt.offset, f.Offset())
		})
	}
}

func TestNewFilter_TrimsInput(t *testing.T) {
	f := NewFilter(1, 20, " date ", "desc", "  IN-00  ")
	assert.Equal(t, "date", f.OrderBy)
	assert.Equal(t, "IN-00", f.Search)

	assert.Equal(t, NewFilter(1, DefaultPageSize, "created_at", "desc", ""), DefaultFilter())
}
