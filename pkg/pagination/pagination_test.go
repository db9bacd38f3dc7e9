// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pagination_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/tessera/pkg/pagination"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
	}{
		{
			name:      "defaults when absent",
			query:     "",
			wantPage:  pagination.DefaultPage,
			wantLimit: pagination.DefaultLimit,
		},
		{
			name:      "explicit values pass through",
			query:     "page=3&limit=50",
			wantPage:  3,
			wantLimit: 50,
		},
		{
			name:      "non-numeric values fall back",
			query:     "page=abc&limit=xyz",
			wantPage:  pagination.DefaultPage,
			wantLimit: pagination.DefaultLimit,
		},
		{
			name:      "zero and negative clamp to defaults",
			query:     "page=0&limit=-5",
			wantPage:  pagination.DefaultPage,
			wantLimit: pagination.DefaultLimit,
		},
		{
			name:      "limit above cap resets to default",
			query:     "page=2&limit=500",
			wantPage:  2,
			wantLimit: pagination.DefaultLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest("GET", "/?"+tt.query, nil)

			params := pagination.FromRequest(request)

			assert.Equal(t, tt.wantPage, params.Page)
			assert.Equal(t, tt.wantLimit, params.Limit)
		})
	}
}

func TestParams_Offset(t *testing.T) {
	tests := []struct {
		name   string
		params pagination.Params
		want   int
	}{
		{name: "first page", params: pagination.Params{Page: 1, Limit: 20}, want: 0},
		{name: "second page", params: pagination.Params{Page: 2, Limit: 20}, want: 20},
		{name: "deep page", params: pagination.Params{Page: 7, Limit: 25}, want: 150},
		{name: "zero page treated as first", params: pagination.Params{Page: 0, Limit: 20}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.params.Offset())
		})
	}
}

func TestNewMeta(t *testing.T) {
	tests := []struct {
		name           string
		page           int
		limit          int
		total          int
		wantTotalPages int
	}{
		{name: "exact fit", page: 1, limit: 10, total: 100, wantTotalPages: 10},
		{name: "partial last page", page: 1, limit: 10, total: 101, wantTotalPages: 11},
		{name: "empty result", page: 1, limit: 10, total: 0, wantTotalPages: 0},
		{name: "zero limit yields zero pages", page: 1, limit: 0, total: 50, wantTotalPages: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := pagination.NewMeta(tt.page, tt.limit, tt.total)

			assert.Equal(t, tt.page, meta.Page)
			assert.Equal(t, tt.limit, meta.Limit)
			assert.Equal(t, tt.total, meta.Total)
			assert.Equal(t, tt.wantTotalPages, meta.TotalPages)
		})
	}
}
