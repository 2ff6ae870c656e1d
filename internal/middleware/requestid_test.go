package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRequestID_Header(t *testing.T) {
	const incoming = "3f0c2b1e-8a41-4d5e-9a2f-0b6c7d8e9f10"

	cases := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "generated when absent"},
		{name: "kept when valid", header: incoming, keep: true},
		{name: "replaced when not a uuid", header: "../../etc/passwd"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			r := gin.New()
			r.Use(RequestID())
			var seen string
			r.GET("/", func(c *gin.Context) {
				seen = c.GetString(RequestIDKey)
				c.String(200, "ok")
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(RequestIDHeader, tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("header %q is not a uuid", got)
			}
			if seen != got {
				t.Fatalf("context id %q != header %q", seen, got)
			}
			if tc.keep && got != tc.header {
				t.Fatalf("want %q kept, got %q", tc.header, got)
			}
			if !tc.keep && got == tc.header {
				t.Fatalf("invalid id %q should be replaced", tc.header)
			}
		})
	}
}
