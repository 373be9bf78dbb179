package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/SubSh2004/CampusZon-sub000/config"
	"github.com/SubSh2004/CampusZon-sub000/internal/service"
	"github.com/SubSh2004/CampusZon-sub000/pkg/auth"
	"github.com/SubSh2004/CampusZon-sub000/pkg/errcode"
	"github.com/SubSh2004/CampusZon-sub000/pkg/logger"
	"github.com/SubSh2004/CampusZon-sub000/pkg/ratelimit"
	"github.com/SubSh2004/CampusZon-sub000/pkg/response"
)

func init() { gin.SetMode(gin.TestMode) }

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var r response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	return r
}

func TestAuth(t *testing.T) {
	issuer := auth.NewIssuer("secret", "campuszon", time.Hour, 0)
	r := gin.New()
	r.GET("/me", Auth(issuer), func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		assert.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": caller.ID, "campus": caller.Campus, "admin": caller.IsAdmin})
	})
	r.GET("/admin", Auth(issuer), RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, errcode.KindUnauthorized, decode(t, w).Error)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok, _, err := issuer.Sign("u1", "a@iitb.ac.in", "iitb.ac.in", false)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u1","campus":"iitb.ac.in","admin":false}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminTok, _, err := issuer.Sign("u2", "w@iitb.ac.in", "iitb.ac.in", true)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminTok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimit_RejectsWithoutRunningHandler(t *testing.T) {
	limiter := ratelimit.NewSlidingWindow(newRedis(t), "rl")
	var calls atomic.Int32
	r := gin.New()
	r.POST("/report", RateLimit(limiter, "report", config.Window{Limit: 2, Window: time.Hour}, ByIP), func(c *gin.Context) {
		calls.Add(1)
		c.Status(http.StatusCreated)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/report", nil))
		codes = append(codes, w.Code)
		if i == 2 {
			assert.Equal(t, errcode.KindRateLimited, decode(t, w).Error)
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
			assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		}
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRateLimit_PerCaller(t *testing.T) {
	limiter := ratelimit.NewSlidingWindow(newRedis(t), "rl")
	r := gin.New()
	r.POST("/items", func(c *gin.Context) {
		SetCaller(c, service.Caller{ID: c.GetHeader("X-User")})
		c.Next()
	}, RateLimit(limiter, "items", config.Window{Limit: 1, Window: time.Hour}, ByCaller), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/items", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusCreated, send("a"))
	assert.Equal(t, http.StatusTooManyRequests, send("a"))
	assert.Equal(t, http.StatusCreated, send("b"))
}

func TestBurst(t *testing.T) {
	r := gin.New()
	r.POST("/login", Burst(ratelimit.NewLocalLimiter(1, 1, time.Minute)), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestIdempotency_ReplaysCompletedResponse(t *testing.T) {
	rdb := newRedis(t)
	var calls atomic.Int32
	r := gin.New()
	r.POST("/items", Idempotency(rdb, time.Hour), func(c *gin.Context) {
		n := calls.Add(1)
		response.Created(c, gin.H{"n": n})
	})

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/items", nil)
		if key != "" {
			req.Header.Set(IdempotencyHeader, key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := send("k1")
	assert.Equal(t, http.StatusCreated, first.Code)
	second := send("k1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.Equal(t, int32(1), calls.Load())

	send("k2")
	send("")
	send("")
	assert.Equal(t, int32(4), calls.Load())
}

func TestIdempotency_InFlightConflicts(t *testing.T) {
	rdb := newRedis(t)
	release := make(chan struct{})
	entered := make(chan struct{})
	r := gin.New()
	r.POST("/purchase", Idempotency(rdb, time.Hour), func(c *gin.Context) {
		close(entered)
		<-release
		response.Success(c, nil)
	})

	done := make(chan int)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/purchase", nil)
		req.Header.Set(IdempotencyHeader, "dup")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		done <- w.Code
	}()
	<-entered

	req := httptest.NewRequest(http.MethodPost, "/purchase", nil)
	req.Header.Set(IdempotencyHeader, "dup")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, errcode.KindConflict, decode(t, w).Error)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestIdempotency_ServerErrorsAreRetryable(t *testing.T) {
	rdb := newRedis(t)
	var calls atomic.Int32
	r := gin.New()
	r.POST("/verify", Idempotency(rdb, time.Hour), func(c *gin.Context) {
		if calls.Add(1) == 1 {
			c.Status(http.StatusInternalServerError)
			return
		}
		response.Success(c, nil)
	})

	for _, want := range []int{http.StatusInternalServerError, http.StatusOK, http.StatusOK} {
		req := httptest.NewRequest(http.MethodPost, "/verify", nil)
		req.Header.Set(IdempotencyHeader, "k")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestIdempotency_PanicReleasesKey(t *testing.T) {
	rdb := newRedis(t)
	var calls atomic.Int32
	r := gin.New()
	r.Use(gin.Recovery())
	r.POST("/orders", Idempotency(rdb, 24*time.Hour), func(c *gin.Context) {
		if calls.Add(1) == 1 {
			ttl, err := rdb.TTL(c.Request.Context(), "idem:anon:POST:/orders:p1").Result()
			assert.NoError(t, err)
			assert.True(t, ttl > 0 && ttl <= inFlightTTL, "in-flight ttl %s", ttl)
			panic("boom")
		}
		response.Success(c, nil)
	})

	for _, want := range []int{http.StatusInternalServerError, http.StatusOK} {
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set(IdempotencyHeader, "p1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(zap.NewNop()) })

	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/ok", func(c *gin.Context) {
		SetCaller(c, service.Caller{ID: "u1"})
		c.Status(http.StatusOK)
	})
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, p := range []string{"/ok", "/missing", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "u1", entries[0].ContextMap()["caller"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}
