package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taketurn/taketurn/internal/infrastructure/config"
	"github.com/taketurn/taketurn/internal/infrastructure/persistence/models"
	sharedConfig "github.com/taketurn/taketurn/internal/shared/config"
	"github.com/taketurn/taketurn/internal/shared/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: sharedConfig.ServerConfig{
			BaseURL:        "http://turns.test",
			StaticDir:      t.TempDir(),
			AllowedOrigins: []string{"*"},
		},
		Database: sharedConfig.DatabaseConfig{Driver: sharedConfig.DriverMemory},
		Turn:     sharedConfig.TurnConfig{StoreTimeout: time.Second},
		Metrics:  sharedConfig.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func withRedis(cfg *config.Config, mr *miniredis.Miniredis) {
	port, _ := strconv.Atoi(mr.Port())
	cfg.Redis = sharedConfig.RedisConfig{
		Enabled: true,
		Host:    mr.Host(),
		Port:    port,
		Channel: "taketurn:test_events",
	}
}

func startContainer(t *testing.T, cfg *config.Config, db *gorm.DB) *Container {
	t.Helper()
	c, err := NewContainer(cfg, db, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)
	require.NoError(t, c.Start(context.Background()))
	return c
}

func serve(c *Container, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	c.Engine().ServeHTTP(w, req)
	return w
}

func openSharedDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "turns.db")
	gdb, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, gdb.AutoMigrate(&models.TurnModel{}))
	return gdb
}

func TestContainer_StartAllocatesFirstTurn(t *testing.T) {
	c := startContainer(t, testConfig(t), nil)

	ref, ok := c.Service().Current()
	require.True(t, ok)
	assert.Equal(t, int64(1), ref.Number)
	assert.Equal(t, "http://turns.test", ref.ServerURL)

	w := serve(c, http.MethodGet, "/api/v1/turns/next")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ref.NextAvailableTurn)
}

func TestContainer_HealthAndMetrics(t *testing.T) {
	c := startContainer(t, testConfig(t), nil)

	w := serve(c, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["allocated"])

	w = serve(c, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "taketurn_usecase_requests_total")
	assert.Contains(t, w.Body.String(), `use_case="ensure_next_turn"`)
}

func TestContainer_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	c := startContainer(t, cfg, nil)

	w := serve(c, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContainer_ServesStaticPages(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Server.StaticDir, "thanks.html"), []byte("<h1>thanks</h1>"), 0o644))
	c := startContainer(t, cfg, nil)

	w := serve(c, http.MethodGet, "/thanks.html?name=ana&turn=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "thanks")

	w = serve(c, http.MethodPost, "/thanks.html")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContainer_ServesDocumentsFromStaticDir(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Server.StaticDir, "FromNodeToDeno.pdf"), []byte("%PDF-1.4"), 0o644))
	c := startContainer(t, cfg, nil)

	w := serve(c, http.MethodGet, "/FromNodeToDeno.pdf")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusNotFound, serve(c, http.MethodGet, "/presentation").Code)
}

func TestContainer_MissingStaticDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.StaticDir = filepath.Join(t.TempDir(), "absent")
	c := startContainer(t, cfg, nil)

	w := serve(c, http.MethodGet, "/assign.html")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewContainer_SQLDriverNeedsConnection(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = sharedConfig.DriverSQLite

	_, err := NewContainer(cfg, nil, logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite")
}

func TestNewContainer_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis = sharedConfig.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	_, err := NewContainer(cfg, nil, logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestContainer_RateLimitsClients(t *testing.T) {
	cfg := testConfig(t)
	withRedis(cfg, miniredis.RunT(t))
	cfg.RateLimit = sharedConfig.RateLimitConfig{Enabled: true, Limit: 1, Window: time.Minute}
	c := startContainer(t, cfg, nil)

	first := serve(c, http.MethodGet, "/all")
	require.Equal(t, http.StatusOK, first.Code)

	second := serve(c, http.MethodGet, "/all")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// Health checks are never limited.
	assert.Equal(t, http.StatusOK, serve(c, http.MethodGet, "/healthz").Code)
}

func TestContainer_RefreshesOnRemoteChange(t *testing.T) {
	mr := miniredis.RunT(t)
	db := openSharedDB(t)

	cfgA := testConfig(t)
	cfgA.Database.Driver = sharedConfig.DriverSQLite
	withRedis(cfgA, mr)
	cfgB := testConfig(t)
	cfgB.Database.Driver = sharedConfig.DriverSQLite
	withRedis(cfgB, mr)

	a := startContainer(t, cfgA, db)
	b := startContainer(t, cfgB, db)

	first, ok := b.Service().Current()
	require.True(t, ok)
	require.Equal(t, int64(1), first.Number)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	require.Eventually(t, func() bool {
		counts, err := client.PubSubNumSub(context.Background(), cfgA.Redis.Channel).Result()
		return err == nil && counts[cfgA.Redis.Channel] >= 2
	}, 2*time.Second, 10*time.Millisecond)

	result, err := a.Service().Assign(context.Background(), first.NextAvailableTurn, "ana")
	require.NoError(t, err)
	require.True(t, result.Assigned)

	require.Eventually(t, func() bool {
		ref, ok := b.Service().Current()
		return ok && ref.Number == 2
	}, 2*time.Second, 10*time.Millisecond)

	current, _ := a.Service().Current()
	next, _ := b.Service().Current()
	assert.Equal(t, current.NextAvailableTurn, next.NextAvailableTurn)
}

func TestContainer_ShutdownIsIdempotent(t *testing.T) {
	c, err := NewContainer(testConfig(t), nil, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))

	c.Shutdown()
	assert.NotPanics(t, c.Shutdown)

	w := serve(c, http.MethodGet, "/")
	assert.True(t, strings.HasPrefix(w.Body.String(), "take-unique-turn"))
}

func TestContainer_FormAssignRedirects(t *testing.T) {
	c := startContainer(t, testConfig(t), nil)
	ref, ok := c.Service().Current()
	require.True(t, ok)

	form := url.Values{"user_name": {"Ana María"}}
	req := httptest.NewRequest(http.MethodPost, "/getTurn/"+ref.NextAvailableTurn, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	c.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/thanks.html", location.Path)
	assert.Equal(t, "Ana María", location.Query().Get("name"))
	assert.Equal(t, "1", location.Query().Get("turn"))

	w = serve(c, http.MethodGet, "/assign/"+ref.NextAvailableTurn)
	assert.Equal(t, http.StatusFound, w.Code)
}
