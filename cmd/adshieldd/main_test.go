package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/adshield/internal/adblock/config"
	"github.com/haukened/adshield/internal/adblock/repos/statsdb"
)

const testRemoteConfig = `{
  "version": "9.9.9",
  "lastUpdated": "2025-06-01T00:00:00Z",
  "networkPatterns": ["/sponsored-beacon/"],
  "domSelectors": ["#ad"],
  "videoAdIndicators": [".ad-showing"],
  "skipButtonSelectors": [".skip"],
  "adContainerSelectors": []
}`

func filterServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/config.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testRemoteConfig)
	})
	mux.HandleFunc("/hosts", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "0.0.0.0 telemetry.hosts-example.net\n")
	})
	mux.HandleFunc("/easylist.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "||easy-ads.example^\n")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func classify(t *testing.T, base, url string) map[string]any {
	t.Helper()
	resp, err := http.Post(base+"/v1/classify", "application/json",
		strings.NewReader(fmt.Sprintf(`{"url":%q,"resourceKind":"script"}`, url)))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// TestApplication_Integration tests the full application lifecycle
func TestApplication_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	remote := filterServer(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "state", "stats.db")

	t.Setenv("ADBLOCK_LISTEN", fmt.Sprintf("127.0.0.1:%d", freePort(t)))
	t.Setenv("ADBLOCK_LOG_LEVEL", "debug")
	t.Setenv("ADBLOCK_FILTER_DIR", filepath.Join(dir, "filters"))
	t.Setenv("ADBLOCK_FILTER_CONFIG_URL", remote.URL+"/config.json")
	t.Setenv("ADBLOCK_FILTER_HOSTS_URL", remote.URL+"/hosts")
	t.Setenv("ADBLOCK_FILTER_EASYLIST_URL", remote.URL+"/easylist.txt")
	t.Setenv("ADBLOCK_STATS_DB", dbPath)
	t.Setenv("ADBLOCK_EXTRA_AD_DOMAINS", "extra-ads.example")

	cfg, err := config.Load()
	require.NoError(t, err)

	app, err := buildApplication(cfg)
	require.NoError(t, err)
	require.NotNil(t, app)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appErr := make(chan error, 1)
	go func() {
		appErr <- app.Run(ctx)
	}()

	require.Eventually(t, func() bool { return app.Address() != "" }, 2*time.Second, 10*time.Millisecond)
	base := "http://" + app.Address()

	// Built-in ad domain.
	res := classify(t, base, "https://doubleclick.net/ad")
	assert.Equal(t, true, res["block"])
	assert.Equal(t, "network", res["category"])

	// Configured extra ad domain.
	assert.Equal(t, true, classify(t, base, "https://cdn.extra-ads.example/x.js")["block"])

	// Remote sources arrive in the background.
	require.Eventually(t, func() bool {
		return classify(t, base, "https://telemetry.hosts-example.net/p")["block"] == true &&
			classify(t, base, "https://www.easy-ads.example/banner.js")["block"] == true &&
			classify(t, base, "https://site.example/sponsored-beacon/1")["block"] == true
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/v1/payload")
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()
	assert.Equal(t, "9.9.9", payload["version"])

	resp, err = http.Get(base + "/v1/stats")
	require.NoError(t, err)
	var st map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.GreaterOrEqual(t, st["sessionBlocked"].(float64), float64(5))

	cancel()
	select {
	case err := <-appErr:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("application did not shut down")
	}

	// Lifetime totals were flushed on shutdown.
	store, err := statsdb.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()
	counts, err := store.Counts()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, counts.Total(), uint64(5))
}

func TestBuildApplication_Errors(t *testing.T) {
	cfg := config.DEFAULT_APP_CONFIG
	cfg.CacheEviction = "lru"
	_, err := buildApplication(&cfg)
	assert.Error(t, err)

	cfg = config.DEFAULT_APP_CONFIG
	cfg.StatsDB = filepath.Join(t.TempDir(), "missing-parent-is-created", "stats.db")
	cfg.FilterDir = t.TempDir()
	app, err := buildApplication(&cfg)
	require.NoError(t, err)
	require.NotNil(t, app.hostsStore)
	assert.FileExists(t, filepath.Join(cfg.FilterDir, "hosts.db"))
	assert.True(t, app.classifier.Enabled())
	require.NoError(t, app.statsStore.Close())
	require.NoError(t, app.hostsStore.Close())

	cfg = config.DEFAULT_APP_CONFIG
	cfg.StatsDB = t.TempDir()
	_, err = buildApplication(&cfg)
	assert.Error(t, err, "a directory is not a database file")
}

func TestBuildApplication_BlockingDisabled(t *testing.T) {
	cfg := config.DEFAULT_APP_CONFIG
	cfg.StatsDB = ""
	cfg.FilterDir = t.TempDir()
	cfg.BlockingEnabled = false
	app, err := buildApplication(&cfg)
	require.NoError(t, err)
	defer app.hostsStore.Close()

	assert.False(t, app.classifier.Enabled())
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/classify", strings.NewReader(`{"url":"https://doubleclick.net/ad","resourceKind":"script"}`))
	app.handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"block":false`)
}

func TestOpenHostsStore_FallsBackToMemory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	assert.Nil(t, openHostsStore(blocker))
}

func TestRun_ListenFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	cfg := config.DEFAULT_APP_CONFIG
	cfg.Listen = l.Addr().String()
	cfg.StatsDB = ""
	cfg.FilterDir = t.TempDir()
	app, err := buildApplication(&cfg)
	require.NoError(t, err)
	assert.Error(t, app.Run(context.Background()))
}
