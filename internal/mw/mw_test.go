package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestCache_ServesSecondReadFromMemory(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	r := newRouter()
	r.Use(Cache(store, time.Minute))

	hits := 0
	r.GET("/machines", func(c *gin.Context) {
		hits++
		c.JSON(http.StatusOK, gin.H{"count": hits})
	})

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/machines", nil))
	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/machines", nil))

	assert.Equal(t, 1, hits)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
}

func TestCache_MutationFlushes(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	r := newRouter()
	r.Use(Cache(store, time.Minute))

	hits := 0
	r.GET("/machines", func(c *gin.Context) {
		hits++
		c.JSON(http.StatusOK, gin.H{"count": hits})
	})
	r.POST("/machines", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{})
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/machines", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/machines", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/machines", nil))

	assert.Equal(t, 2, hits)
}

func TestCache_FailedMutationDoesNotFlush(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	r := newRouter()
	r.Use(Cache(store, time.Minute))

	hits := 0
	r.GET("/machines", func(c *gin.Context) {
		hits++
		c.JSON(http.StatusOK, gin.H{"count": hits})
	})
	r.POST("/machines", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "bad"})
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/machines", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/machines", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/machines", nil))

	assert.Equal(t, 1, hits)
}

func TestRateLimiter_Throttles(t *testing.T) {
	r := newRouter()
	r.Use(RateLimiter(1, 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.7:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
	assert.Equal(t, http.StatusTooManyRequests, codes[3])
}

func TestRequestID(t *testing.T) {
	r := newRouter()
	r.Use(RequestID())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = RequestIDFrom(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "n8n-run-42")
	r.ServeHTTP(w, req)
	assert.Equal(t, "n8n-run-42", seen)
	assert.Equal(t, "n8n-run-42", w.Header().Get(RequestIDHeader))
}
