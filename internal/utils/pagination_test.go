package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestGetPaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		query string
		page  int
		limit int
	}{
		{"", 1, 20},
		{"page=3&limit=10", 3, 10},
		{"page=0&limit=1000", 1, 20},
		{"page=abc", 1, 20},
	}

	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/?"+tc.query, nil)

		params := GetPaginationParams(c)
		assert.Equal(t, tc.page, params.Page, tc.query)
		assert.Equal(t, tc.limit, params.Limit, tc.query)
	}
}
