package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/haukened/adshield/internal/adblock/common/clock"
	"github.com/haukened/adshield/internal/adblock/common/log"
	"github.com/haukened/adshield/internal/adblock/config"
	"github.com/haukened/adshield/internal/adblock/gateways/fetcher"
	"github.com/haukened/adshield/internal/adblock/gateways/httpapi"
	"github.com/haukened/adshield/internal/adblock/repos/decisioncache"
	"github.com/haukened/adshield/internal/adblock/repos/filecache"
	"github.com/haukened/adshield/internal/adblock/repos/hostset"
	"github.com/haukened/adshield/internal/adblock/repos/statsdb"
	"github.com/haukened/adshield/internal/adblock/services/classifier"
	"github.com/haukened/adshield/internal/adblock/services/filters"
	"github.com/haukened/adshield/internal/adblock/services/stats"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "adshieldd"

	defaultShutdownTimeout = 10 * time.Second
	readHeaderTimeout      = 5 * time.Second
)

// Application holds all the components of the engine daemon.
type Application struct {
	config     *config.AppConfig
	classifier *classifier.Classifier
	filters    *filters.Manager
	tracker    *stats.Tracker
	statsStore *statsdb.Store
	hostsStore *hostset.Store
	handler    http.Handler

	mu       sync.Mutex
	listener net.Listener
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":    version,
		"env":        cfg.Env,
		"log_level":  cfg.LogLevel,
		"listen":     cfg.Listen,
		"cache_size": cfg.CacheSize,
		"filter_dir": cfg.FilterDir,
		"blocking":   cfg.BlockingEnabled,
	}, "Starting "+appName)

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Failed to build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Server failed")
	}

	log.Info(nil, appName+" stopped gracefully")
}

// buildApplication constructs all components and wires them together.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	clk := clock.RealClock{}
	logger := log.GetLogger()

	repos, err := buildRepositories(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build repositories: %w", err)
	}

	gw := buildGateways(cfg)

	cls := classifier.New(classifier.Options{
		Cache:     repos.decisions,
		Logger:    logger,
		Whitelist: slices.Concat(classifier.DefaultWhitelist, cfg.ExtraWhitelist),
		AdDomains: slices.Concat(classifier.DefaultAdDomains, cfg.ExtraAdDomains),
	})
	cls.SetEnabled(cfg.BlockingEnabled)

	mgrOpts := filters.Options{
		Fetcher: gw.fetcher,
		Store:   repos.filterCache,
		Sink:    cls,
		Clock:   clk,
		Logger:  logger,
		URLs: filters.URLs{
			Config:   cfg.FilterConfigURL,
			Hosts:    cfg.FilterHostsURL,
			EasyList: cfg.FilterEasyListURL,
		},
		Interval:      cfg.FilterInterval,
		CheckEvery:    cfg.FilterCheckEvery,
		ConfigTimeout: cfg.FilterConfigTimeout,
		ListsTimeout:  cfg.FilterListsTimeout,
		MaxHosts:      cfg.FilterMaxHosts,
		MaxEasyList:   cfg.FilterMaxEasyList,
	}
	if repos.hosts != nil {
		mgrOpts.Hosts = repos.hosts
	}
	mgr := filters.New(mgrOpts)

	trackerOpts := stats.Options{Session: cls, Filters: mgr, Logger: logger}
	if repos.stats != nil {
		trackerOpts.Store = repos.stats
	}
	tracker, err := stats.New(trackerOpts)
	if err != nil {
		repos.close()
		return nil, fmt.Errorf("failed to load lifetime stats: %w", err)
	}

	handler := httpapi.NewRouter(httpapi.Options{
		Classifier: cls,
		Filters:    mgr,
		Stats:      tracker,
		Logger:     logger,
	})

	return &Application{
		config:     cfg,
		classifier: cls,
		filters:    mgr,
		tracker:    tracker,
		statsStore: repos.stats,
		hostsStore: repos.hosts,
		handler:    handler,
	}, nil
}

// repositories holds all repository implementations
type repositories struct {
	decisions   classifier.Cache
	filterCache *filecache.Store
	stats       *statsdb.Store
	hosts       *hostset.Store
}

func (r *repositories) close() {
	if r.stats != nil {
		_ = r.stats.Close()
	}
	if r.hosts != nil {
		_ = r.hosts.Close()
	}
}

// gateways holds all gateway implementations
type gateways struct {
	fetcher filters.Fetcher
}

// buildRepositories creates and configures all repository implementations
func buildRepositories(cfg *config.AppConfig) (*repositories, error) {
	policy, err := decisioncache.ParsePolicy(cfg.CacheEviction)
	if err != nil {
		return nil, err
	}
	decisions, err := decisioncache.New(cfg.CacheSize, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision cache: %w", err)
	}
	log.Info(map[string]any{
		"size":     cfg.CacheSize,
		"eviction": cfg.CacheEviction,
	}, "Decision cache configured")

	var store *statsdb.Store
	if cfg.StatsDB != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.StatsDB), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create stats directory: %w", err)
		}
		store, err = statsdb.Open(cfg.StatsDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open stats db: %w", err)
		}
		log.Info(map[string]any{"path": cfg.StatsDB}, "Lifetime stats store opened")
	}

	return &repositories{
		decisions:   decisions,
		filterCache: filecache.New(cfg.FilterDir),
		stats:       store,
		hosts:       openHostsStore(cfg.FilterDir),
	}, nil
}

// openHostsStore opens the Bolt-backed hosts set under dir. On failure the
// filter manager keeps hosts snapshots in memory.
func openHostsStore(dir string) *hostset.Store {
	path := filepath.Join(dir, "hosts.db")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		log.Warn(map[string]any{"error": err.Error(), "path": path}, "Hosts store unavailable, keeping hosts in memory")
		return nil
	}
	s, err := hostset.Open(path)
	if err != nil {
		log.Warn(map[string]any{"error": err.Error(), "path": path}, "Hosts store unavailable, keeping hosts in memory")
		return nil
	}
	log.Info(map[string]any{"path": path}, "Hosts store opened")
	return s
}

// buildGateways creates and configures all gateway implementations
func buildGateways(cfg *config.AppConfig) *gateways {
	f := fetcher.New(fetcher.Options{
		Client:  &http.Client{},
		MaxSize: cfg.MaxDownload(),
	})
	log.Info(map[string]any{
		"config":       cfg.FilterConfigURL,
		"hosts":        cfg.FilterHostsURL,
		"easylist":     cfg.FilterEasyListURL,
		"max_download": cfg.MaxDownload().HumanReadable(),
	}, "Filter fetcher configured")
	return &gateways{fetcher: f}
}

// Address returns the bound listen address once Run has started.
func (app *Application) Address() string {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.listener == nil {
		return ""
	}
	return app.listener.Addr().String()
}

// Run initializes the filters, starts the background loops and the bridge,
// and blocks until ctx is cancelled.
func (app *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", app.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", app.config.Listen, err)
	}
	app.mu.Lock()
	app.listener = ln
	app.mu.Unlock()

	app.filters.Initialize(ctx)

	var loops sync.WaitGroup
	loops.Add(2)
	go func() {
		defer loops.Done()
		app.filters.Run(ctx)
	}()
	go func() {
		defer loops.Done()
		app.tracker.Run(ctx, app.config.StatsFlush)
	}()

	srv := &http.Server{
		Handler:           app.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	log.Info(map[string]any{
		"address": ln.Addr().String(),
		"version": app.filters.Version(),
	}, "Bridge started")

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("bridge failed: %w", err)
		}
	}

	log.Info(nil, "Shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(map[string]any{"error": err.Error()}, "Error during bridge shutdown")
	}

	done := make(chan struct{})
	go func() {
		loops.Wait()
		app.filters.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn(map[string]any{"timeout": defaultShutdownTimeout.String()}, "Shutdown timeout exceeded")
		return errors.Join(runErr, fmt.Errorf("shutdown timeout"))
	}

	// The tracker loop flushed on exit; anything counted during shutdown
	// is flushed here.
	if err := app.tracker.Flush(); err != nil {
		log.Warn(map[string]any{"error": err.Error()}, "Final stats flush failed")
	}
	if app.statsStore != nil {
		if err := app.statsStore.Close(); err != nil {
			log.Warn(map[string]any{"error": err.Error()}, "Error closing stats store")
		}
	}
	if app.hostsStore != nil {
		if err := app.hostsStore.Close(); err != nil {
			log.Warn(map[string]any{"error": err.Error()}, "Error closing hosts store")
		}
	}
	log.Info(nil, "Graceful shutdown completed")
	return runErr
}
