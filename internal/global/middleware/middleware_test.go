package middleware

import (
	"context"
	"errors"
	"instavision/internal/global/jwt"
	"instavision/internal/global/ratelimit"
	"instavision/internal/global/response"
	"instavision/internal/model"
	"instavision/test"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func tokenFor(t *testing.T, issuer *jwt.Issuer, role model.Role) string {
	t.Helper()
	u := &model.User{FullName: "Ada", Email: "ada@example.com", Role: role}
	u.ID = 1
	token, err := issuer.CreateToken(u)
	require.NoError(t, err)
	return token
}

func newAuthEngine(issuer *jwt.Issuer, revoker jwt.Revoker, roles ...model.Role) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{Authenticate(issuer, revoker)}
	if len(roles) > 0 {
		handlers = append(handlers, Authorize(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		claims, _ := jwt.GetUserPayload(c)
		response.Success(c, "ok", claims.Role)
	})
	r.GET("/p", handlers...)
	return r
}

func TestAuthenticateHeader(t *testing.T) {
	r := newAuthEngine(jwt.NewIssuer("secret", time.Hour), nil)

	test.ErrorEqual(t, response.ErrNoToken, test.DoRequest(t, r, http.MethodGet, "/p", "", nil))

	for _, header := range []string{"Token abc", "bearer abc", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		test.ErrorEqual(t, response.ErrNoToken, w)
	}
}

func TestAuthenticateTokenErrors(t *testing.T) {
	issuer := jwt.NewIssuer("secret", time.Hour)
	r := newAuthEngine(issuer, nil)

	test.ErrorEqual(t, response.ErrTokenInvalid, test.DoRequest(t, r, http.MethodGet, "/p", "garbage", nil))

	other := tokenFor(t, jwt.NewIssuer("other", time.Hour), model.RoleStudent)
	test.ErrorEqual(t, response.ErrTokenInvalid, test.DoRequest(t, r, http.MethodGet, "/p", other, nil))

	expired, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, jwt.Claims{
		UserID: 1,
		RegisteredClaims: gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	test.ErrorEqual(t, response.ErrTokenExpired, test.DoRequest(t, r, http.MethodGet, "/p", expired, nil))

	future, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, jwt.Claims{
		UserID: 1,
		RegisteredClaims: gojwt.RegisteredClaims{
			IssuedAt:  gojwt.NewNumericDate(time.Now().Add(time.Hour)),
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(2 * time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	test.ErrorEqual(t, response.ErrAuthFailed, test.DoRequest(t, r, http.MethodGet, "/p", future, nil))

	w := test.DoRequest(t, r, http.MethodGet, "/p", tokenFor(t, issuer, model.RoleStudent), nil)
	test.NoError(t, http.StatusOK, w)
}

type stubRevoker struct {
	revoked bool
	err     error
}

func (s stubRevoker) Revoke(context.Context, uint) error { return nil }

func (s stubRevoker) IsRevoked(context.Context, *jwt.Claims) (bool, error) {
	return s.revoked, s.err
}

func TestAuthenticateRevoked(t *testing.T) {
	issuer := jwt.NewIssuer("secret", time.Hour)
	token := tokenFor(t, issuer, model.RoleAdmin)

	r := newAuthEngine(issuer, stubRevoker{revoked: true})
	test.ErrorEqual(t, response.ErrTokenInvalid, test.DoRequest(t, r, http.MethodGet, "/p", token, nil))

	r = newAuthEngine(issuer, stubRevoker{err: errors.New("redis down")})
	test.ErrorEqual(t, response.ErrAuthFailed, test.DoRequest(t, r, http.MethodGet, "/p", token, nil))

	r = newAuthEngine(issuer, stubRevoker{})
	test.NoError(t, http.StatusOK, test.DoRequest(t, r, http.MethodGet, "/p", token, nil))
}

func TestAuthorize(t *testing.T) {
	issuer := jwt.NewIssuer("secret", time.Hour)
	r := newAuthEngine(issuer, nil, model.RoleAdmin)

	w := test.DoRequest(t, r, http.MethodGet, "/p", tokenFor(t, issuer, model.RoleStudent), nil)
	test.ErrorEqual(t, response.ErrForbidden, w)

	w = test.DoRequest(t, r, http.MethodGet, "/p", tokenFor(t, issuer, model.RoleAdmin), nil)
	test.NoError(t, http.StatusOK, w)

	// 未经过 Authenticate
	bare := gin.New()
	bare.GET("/p", Authorize(model.RoleAdmin), func(c *gin.Context) { response.Success(c, "ok") })
	test.ErrorEqual(t, response.ErrUnauthorized, test.DoRequest(t, bare, http.MethodGet, "/p", "", nil))
}

func newLimiter(t *testing.T, max int) *limiter.Limiter {
	t.Helper()
	l, err := ratelimit.New(nil, max, time.Minute)
	require.NoError(t, err)
	return l
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(newLimiter(t, 2), "/api", discard))
	r.GET("/api/p", func(c *gin.Context) { response.Success(c, "ok") })
	r.NoRoute(func(c *gin.Context) { response.Fail(c, response.ErrRouteNotFound) })

	for i := 0; i < 2; i++ {
		w := test.DoRequest(t, r, http.MethodGet, "/api/p", "", nil)
		test.NoError(t, http.StatusOK, w)
		require.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		require.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
	w := test.DoRequest(t, r, http.MethodGet, "/api/p", "", nil)
	test.ErrorEqual(t, response.ErrTooManyRequests, w)
	require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	// 未匹配的 /api 路径同样计数
	test.ErrorEqual(t, response.ErrTooManyRequests, test.DoRequest(t, r, http.MethodGet, "/api/missing", "", nil))
	// 前缀之外不计数
	test.ErrorEqual(t, response.ErrRouteNotFound, test.DoRequest(t, r, http.MethodGet, "/apix", "", nil))
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	l, err := ratelimit.New(client, 2, time.Minute)
	require.NoError(t, err)
	mr.Close()

	r := gin.New()
	r.Use(RateLimit(l, "/api", discard))
	r.GET("/api/p", func(c *gin.Context) { response.Success(c, "ok") })
	w := test.DoRequest(t, r, http.MethodGet, "/api/p", "", nil)
	test.NoError(t, http.StatusOK, w)
	require.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/p", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			response.Fail(c, response.ErrPayloadTooLarge)
			return
		}
		response.Success(c, "ok")
	})

	req := httptest.NewRequest(http.MethodPost, "/p", strings.NewReader(strings.Repeat("a", 64)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	test.ErrorEqual(t, response.ErrPayloadTooLarge, w)

	req = httptest.NewRequest(http.MethodPost, "/p", strings.NewReader("small"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	test.NoError(t, http.StatusOK, w)
}

func TestBodyLimitChunkedKeepsEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/p", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			response.Fail(c, response.ErrPayloadTooLarge)
			return
		}
		response.Success(c, "ok")
	})

	// 分块传输没有 Content-Length，只能在读取时截断
	req := httptest.NewRequest(http.MethodPost, "/p", strings.NewReader(`{"bio":"`+strings.Repeat("a", 64)+`"}`))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	test.ErrorEqual(t, response.ErrPayloadTooLarge, w)
	require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestRequestIDAndSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Security())
	r.GET("/p", func(c *gin.Context) { response.Success(c, "ok") })

	w := test.DoRequest(t, r, http.MethodGet, "/p", "", nil)
	require.Len(t, w.Header().Get("X-Request-ID"), 36)
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "upstream-id", w.Header().Get("X-Request-ID"))
}
