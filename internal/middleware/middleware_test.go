package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"corpsite/backend/internal/auth"
	"corpsite/backend/internal/domain"
	"corpsite/backend/internal/monitoring"
	"corpsite/backend/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type verifierFunc func(ctx context.Context, token string) (*domain.Admin, error)

func (f verifierFunc) VerifyToken(ctx context.Context, token string) (*domain.Admin, error) {
	return f(ctx, token)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAdminAuth_RequireAdmin(t *testing.T) {
	verifier := verifierFunc(func(_ context.Context, token string) (*domain.Admin, error) {
		switch token {
		case "good":
			return &domain.Admin{ID: "a1", Username: "admin", Role: domain.RoleAdmin}, nil
		case "viewer":
			return nil, auth.ErrForbidden
		case "outage":
			return nil, fmt.Errorf("%w: redis: connection refused", auth.ErrUnavailable)
		default:
			return nil, errors.New("bad token")
		}
	})

	router := gin.New()
	router.GET("/admin", NewAdminAuth(verifier, nil).RequireAdmin(), func(c *gin.Context) {
		admin, ok := AdminFromContext(c)
		require.True(t, ok)
		c.String(http.StatusOK, admin.Username+":"+TokenFromContext(c))
	})

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"没有令牌", func(*http.Request) {}, http.StatusUnauthorized},
		{"无效令牌", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"非管理员", func(r *http.Request) { r.Header.Set("Authorization", "Bearer viewer") }, http.StatusForbidden},
		{"黑名单存储不可用", func(r *http.Request) { r.Header.Set("Authorization", "Bearer outage") }, http.StatusServiceUnavailable},
		{"Bearer 头", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "access_token", Value: "good"}) }, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "admin:good", rec.Body.String())
			} else {
				body := decodeBody(t, rec)
				assert.Equal(t, false, body["success"])
				assert.NotEmpty(t, body["message"])
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	store := memory.NewStore()
	metrics := monitoring.NewMetrics()
	limiter := NewRateLimiter(store, 2, time.Minute, metrics, zap.NewNop())

	router := gin.New()
	router.POST("/login", limiter.Limit("login"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RateLimitBlocks.WithLabelValues("login")))
}

func TestRecoveryHandler(t *testing.T) {
	router := gin.New()
	router.Use(RecoveryHandler(zap.NewNop()))
	router.GET("/panic", func(*gin.Context) { panic("secret internal detail") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret internal detail")
	body := decodeBody(t, rec)
	assert.Equal(t, "internal server error", body["message"])
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	t.Run("生成新的请求 ID", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		id := rec.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, id)
		assert.Equal(t, id, rec.Body.String())
	})

	t.Run("沿用合法的请求 ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "6f1c2a9e-2d7b-4c55-9a61-0f3d8e4b7c21")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, "6f1c2a9e-2d7b-4c55-9a61-0f3d8e4b7c21", rec.Header().Get(RequestIDHeader))
	})

	t.Run("替换非法的请求 ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "not-a-uuid")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RequestIDHeader))
	})
}

func TestValidateContentType(t *testing.T) {
	router := gin.New()
	router.Use(ValidateContentType("application/json"))
	router.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{"JSON 请求体", http.MethodPost, `{}`, "application/json; charset=utf-8", http.StatusOK},
		{"表单请求体", http.MethodPost, "a=1", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"无请求体", http.MethodPost, "", "", http.StatusOK},
		{"GET 不检查", http.MethodGet, "", "text/plain", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestBodySizeLimit(t *testing.T) {
	router := gin.New()
	router.POST("/", BodySizeLimit(8), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123")))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBusinessMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics()
	mm := NewMonitoringMiddleware(metrics)

	router := gin.New()
	router.Use(mm.HTTPMetrics(), mm.BusinessMetrics())
	router.POST("/api/admin/reply", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/api/admin/forward", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	router.DELETE("/api/admin/messages/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/api/admin/reply"},
		{http.MethodPost, "/api/admin/forward"},
		{http.MethodDelete, "/api/admin/messages/x"},
	} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(r.method, r.path, nil))
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.MailsSent.WithLabelValues("reply")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.MailsFailed.WithLabelValues("forward")))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.MessagesDeleted))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("POST", "/api/admin/reply", "200")))
}
