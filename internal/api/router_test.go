package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SubSh2004/CampusZon-sub000/config"
	"github.com/SubSh2004/CampusZon-sub000/internal/api/handler"
	"github.com/SubSh2004/CampusZon-sub000/pkg/auth"
	"github.com/SubSh2004/CampusZon-sub000/pkg/ratelimit"
)

func newTestRouter(t *testing.T) (*gin.Engine, *auth.Issuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	issuer := auth.NewIssuer("secret", "campuszon", time.Hour, 0)
	r := NewRouter(RouterDeps{
		Handler: handler.NewHandler(handler.Services{}),
		Issuer:  issuer,
		Redis:   rdb,
		Limiter: ratelimit.NewSlidingWindow(rdb, "rl:"),
		Burst:   ratelimit.NewLocalLimiter(100, 100, time.Minute),
		RateLimit: config.RateLimitConfig{
			Auth: config.Window{Limit: 2, Window: time.Minute},
		},
	})
	return r, issuer
}

func serve(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	w := serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSecuredRoutesRequireToken(t *testing.T) {
	r, _ := newTestRouter(t)
	for _, path := range []string{"/api/v1/users/me", "/api/v1/tokens/balance", "/api/v1/booking/unread-count"} {
		w := serve(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestAdminRoutesRejectStudents(t *testing.T) {
	r, issuer := newTestRouter(t)
	tok, _, err := issuer.Sign("u1", "a@iitb.ac.in", "iitb.ac.in", false)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/api/v1/admin/items/flagged", tok).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodPost, "/api/v1/items/i1/moderate", tok).Code)
}

func TestAuthRoutesAreRateLimitedPerIP(t *testing.T) {
	r, _ := newTestRouter(t)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, serve(r, http.MethodPost, "/api/v1/auth/login", "").Code)
	}
	// 前两次因缺少请求体返回 400，第三次在进入 handler 前被限流
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}
