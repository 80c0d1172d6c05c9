package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
)

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name          string
		status        int
		expectedLevel string
	}{
		{"Success logs at info", http.StatusOK, "INFO"},
		{"Client error logs at warn", http.StatusNotFound, "WARN"},
		{"Server error logs at error", http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			router := gin.New()
			router.Use(RequestLogger(log.NewStdLogger(&buf)))
			router.GET("/orders/:id", func(c *gin.Context) {
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/42", nil))

			output := buf.String()
			assert.Contains(t, output, tt.expectedLevel)
			assert.Contains(t, output, "method=GET")
			assert.Contains(t, output, "path=/orders/:id")
			assert.Contains(t, output, fmt.Sprintf("status=%d", tt.status))
		})
	}
}

