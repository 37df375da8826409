package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubRegistrar struct {
	path string
}

func (s *stubRegistrar) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET(s.path, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
}

func TestRouter_Setup(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("registers routes under the default version prefix", func(t *testing.T) {
		engine := gin.New()
		NewRouter(engine).
			Register(&stubRegistrar{path: "/purchase-orders"}).
			Setup()

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/purchase-orders", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("honors a custom API version", func(t *testing.T) {
		engine := gin.New()
		NewRouter(engine, WithAPIVersion("v2")).
			Register(&stubRegistrar{path: "/purchase-orders"}).
			Setup()

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/purchase-orders", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("registers root routes outside the prefix", func(t *testing.T) {
		engine := gin.New()
		NewRouter(engine).
			RegisterRoot(&stubRegistrar{path: "/healthz"}).
			Setup()

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
