package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cppla/storyvault/config"
	"github.com/cppla/storyvault/models"
	"github.com/cppla/storyvault/repositories"
	"github.com/cppla/storyvault/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "router.db") + "?_busy_timeout=5000&_foreign_keys=on"
	db, err := config.OpenDatabase(config.DatabaseOptions{Driver: "sqlite", DSN: dsn, LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, &models.Author{}, &models.Post{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	posts := services.NewPostService(repositories.NewStore(db), services.NewTokenIssuer(), nil, services.SystemClock{}, zap.NewNop())
	return SetupRouter(Dependencies{
		Config: config.AppConfig{
			GinMode:            "test",
			RateLimitPerMinute: 30,
			PostsPageSize:      20,
			CacheTTLSeconds:    60,
		},
		Posts: posts,
	})
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	w := get(newTestRouter(t), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":0,"message":"success","data":{"status":"ok"}}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestUnknownAPIRoute(t *testing.T) {
	w := get(newTestRouter(t), "/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var body struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 40400, body.Code)
}

func TestPublicConfig(t *testing.T) {
	w := get(newTestRouter(t), "/api/v1/config")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			RateLimitSeconds    int  `json:"rate_limit_seconds"`
			EditWindowSeconds   int  `json:"edit_window_seconds"`
			DeleteWindowSeconds int  `json:"delete_window_seconds"`
			CaptchaEnabled      bool `json:"captcha_enabled"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 180, body.Data.RateLimitSeconds)
	assert.Equal(t, 12*60*60, body.Data.EditWindowSeconds)
	assert.Equal(t, 14*24*60*60, body.Data.DeleteWindowSeconds)
	assert.False(t, body.Data.CaptchaEnabled)
}

func TestEmptyListAndStats(t *testing.T) {
	r := newTestRouter(t)

	w := get(r, "/api/v1/posts")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)
	assert.Contains(t, w.Body.String(), `"degraded":false`)

	w = get(r, "/api/v1/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"post_count":0`)
}

func TestMetricsEndpoint(t *testing.T) {
	w := get(newTestRouter(t), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "storyvault_write_throttled_total")
}
