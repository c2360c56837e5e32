package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

func okHandler(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func serve(e *echo.Echo, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	const secret = "s3cret"
	e := echo.New()
	var gotUser uint64
	var gotRole string
	e.GET("/me", func(c echo.Context) error {
		gotUser, _ = UserID(c)
		gotRole, _ = c.Get(CtxRole).(string)
		return c.NoContent(http.StatusNoContent)
	}, JWTAuth(secret))

	valid, err := utils.NewAccessToken(secret, 42, "CUSTOMER", time.Minute)
	require.NoError(t, err)
	rec := serve(e, http.MethodGet, "/me", valid.Token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint64(42), gotUser)
	assert.Equal(t, "CUSTOMER", gotRole)

	foreign, err := utils.NewAccessToken("other", 42, "CUSTOMER", time.Minute)
	require.NoError(t, err)
	expired, err := utils.NewAccessToken(secret, 42, "CUSTOMER", -time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name   string
		bearer string
	}{
		{"missing", ""},
		{"garbage", "abc.def.ghi"},
		{"wrong secret", foreign.Token},
		{"expired", expired.Token},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, "/me", tc.bearer)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	setRole := func(role string) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				if role != "" {
					c.Set(CtxRole, role)
				}
				return next(c)
			}
		}
	}
	e.GET("/customer", okHandler, setRole("CUSTOMER"), RequireRole("CUSTOMER"))
	e.GET("/owner", okHandler, setRole("OWNER"), RequireRole("CUSTOMER"))
	e.GET("/none", okHandler, setRole(""), RequireRole("CUSTOMER"))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/customer", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/owner", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/none", "").Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/showtimes/3/bookings", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/showtimes/:id/bookings")

	cfg := config.RateLimitConfig{Prefix: "rl"}
	assert.Equal(t, "rl:ip:10.0.0.7:user:anon:route:POST /v1/showtimes/:id/bookings", buildRateKey(cfg, c))

	c.Set(CtxUserID, uint64(9))
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:9", buildRateKey(cfg, c))
	cfg.KeyStrategy = "IP"
	assert.Equal(t, "rl:ip:10.0.0.7", buildRateKey(cfg, c))
	cfg.KeyStrategy = "ip_user"
	assert.Equal(t, "rl:ip:10.0.0.7:user:9", buildRateKey(cfg, c))
}

func TestTokenBucketDisabledIsPassThrough(t *testing.T) {
	e := echo.New()
	e.POST("/x", okHandler, NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil))
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/x", "").Code)
}

func TestTokenBucketBlocks(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 5, RefillTokens: 1, RefillInterval: 3 * time.Second,
		TTL: time.Minute, KeyStrategy: "ip", Prefix: "rl",
	}
	mock.CustomMatch(func(expected, actual []interface{}) error { return nil }).
		ExpectEvalSha(tokenBucket.Hash(), []string{"rl:ip:192.0.2.1"}, 0, 5, 1, 3000, 60).
		SetVal([]interface{}{int64(0), int64(0), int64(2500)})

	e := echo.New()
	e.POST("/x", okHandler, NewTokenBucket(cfg, rdb, zap.NewNop()))
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.RemoteAddr = "192.0.2.1:5000"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("Retry-After"))
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenBucketFailsOpen(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 5, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}
	mock.CustomMatch(func(expected, actual []interface{}) error { return nil }).
		ExpectEvalSha(tokenBucket.Hash(), []string{"ignored"}, 0, 0, 0, 0, 0).
		SetErr(errors.New("connection refused"))

	e := echo.New()
	e.POST("/x", okHandler, NewTokenBucket(cfg, rdb, nil))
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/x", "").Code)
}

func TestRedisCacheHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache"}

	e := echo.New()
	e.GET("/v1/concessions", func(c echo.Context) error {
		t.Fatal("handler must not run on a cache hit")
		return nil
	}, NewRedisCache(cfg, rdb, nil))

	req := httptest.NewRequest(http.MethodGet, "/v1/concessions", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/concessions")
	mock.ExpectGet(cacheKey(cfg, c)).
		SetVal(`{"status":200,"content_type":"application/json","body":"eyJjb25jZXNzaW9ucyI6W119"}`)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"concessions":[]}`, rec.Body.String())
}

func TestRedisCacheMissServesHandler(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache"}

	e := echo.New()
	calls := 0
	e.GET("/v1/concessions", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"concessions": []string{}})
	}, NewRedisCache(cfg, rdb, nil))

	req := httptest.NewRequest(http.MethodGet, "/v1/concessions", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/concessions")
	mock.ExpectGet(cacheKey(cfg, c)).RedisNil()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 1, calls)
}

func TestCaptureWriterOverflow(t *testing.T) {
	cw := &captureWriter{ResponseWriter: httptest.NewRecorder(), limit: 4}
	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.overflow)
	_, _ = cw.Write([]byte("de"))
	assert.True(t, cw.overflow)
	assert.Equal(t, 0, cw.buf.Len())
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", okHandler)
	e.GET("/boom", func(echo.Context) error { return errors.New("boom") })

	serve(e, http.MethodGet, "/ok", "")
	serve(e, http.MethodGet, "/boom", "")
	serve(e, http.MethodGet, "/missing", "")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "request completed", entries[0].Message)
	assert.Equal(t, "server error", entries[1].Message)
	assert.Equal(t, int64(500), entries[1].ContextMap()["status"])
	assert.Equal(t, "client error", entries[2].Message)
}
