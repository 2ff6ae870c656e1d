package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/guttosm/stockpulse/internal/logger"
)

func TestToString(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"3f0c2b1e", "3f0c2b1e"},
		{42, ""},
	} {
		assert.Equal(t, tc.want, toString(tc.in), "toString(%v)", tc.in)
	}
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger.Init()

	r := gin.New()
	r.Use(RequestID(), RequestLogger())
	r.GET("/api/v1/symbols", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"stocks": []string{}}) })
	r.GET("/api/v1/analytics/:symbol", func(c *gin.Context) {
		_ = c.Error(errors.New("no rows"))
		c.JSON(http.StatusNotFound, gin.H{"error": "no data"})
	})

	cases := []struct {
		path string
		want int
	}{
		{"/api/v1/symbols", http.StatusOK},
		{"/api/v1/analytics/ZZZZ", http.StatusNotFound},
		{"/unknown", http.StatusNotFound},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		assert.Equal(t, tc.want, w.Code, tc.path)
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader), tc.path)
	}
}
