package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"foodstreet/internal/api"
	"foodstreet/pkg/audio"
	"foodstreet/pkg/config"
	"foodstreet/pkg/db"
	"foodstreet/pkg/location"
	"foodstreet/pkg/logging"
	"foodstreet/pkg/narration"
	"foodstreet/pkg/poi"
	"foodstreet/pkg/poisync"
	"foodstreet/pkg/probe"
	"foodstreet/pkg/request"
	"foodstreet/pkg/session"
	"foodstreet/pkg/store"
	"foodstreet/pkg/tracker"
	"foodstreet/pkg/tts"
	"foodstreet/pkg/tts/edgetts"
	"foodstreet/pkg/version"
)

const defaultConfigPath = "configs/foodstreet.yaml"

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()
	tts.SetLogPath(appCfg.Log.TTS.Path)

	slog.Info("FoodStreet Guide Started", "version", version.Version)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	tr := tracker.New()
	settings := config.NewProvider(appCfg, st)

	// Audio
	audioMgr := audio.New()
	defer audioMgr.Shutdown(appCfg.TTS.CacheDir)
	restoreVolume(ctx, st, audioMgr)

	engine, engineName := initTTS(appCfg, audioMgr, st, tr)
	coord := narration.NewCoordinator(
		narration.NewLedger(st, settings),
		engine,
		audio.NewLauncher(audioMgr, nil, appCfg.TTS.CacheDir),
		settings,
		tr,
	)

	// POIs and sync
	poiMgr := poi.NewManager(st)
	syncer := newSyncer(appCfg, tr, st, settings)

	probes := []probe.Probe{
		{Name: "Database", Check: probe.Database(dbConn), Critical: true},
		{Name: "Audio Scratch Dir", Check: probe.WritableDir(appCfg.TTS.CacheDir), Critical: true},
	}
	if appCfg.Sync.OnStart {
		probes = append(probes, probe.Probe{
			Name:  "Admin Backend",
			Check: probe.AnyReachable(&http.Client{Timeout: 2 * time.Second}, syncer.Candidates),
		})
	}
	if err := probe.AnalyzeResults(probe.Run(ctx, probes)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	if appCfg.Sync.OnStart {
		if res, err := syncer.Sync(ctx); err != nil {
			slog.Warn("Initial POI sync failed, using local data", "error", err)
		} else {
			slog.Info("Initial POI sync complete", "source", res.Source, "count", res.Count)
		}
	}

	// Location and session
	src, manual := initLocation(appCfg, settings)
	ctrl := session.NewController(src, poiMgr, coord, settings)
	defer ctrl.Close()

	if n, err := ctrl.ReloadPOIs(ctx); err != nil {
		slog.Error("Failed to load POIs", "error", err)
	} else {
		slog.Info("POIs loaded", "count", n, "language", settings.CurrentLanguage(ctx))
	}

	go syncer.Run(ctx, time.Duration(appCfg.Sync.Interval), func(*poisync.Result) {
		if _, err := ctrl.ReloadPOIs(ctx); err != nil {
			slog.Warn("Reload after periodic sync failed", "error", err)
		}
	})

	if err := ctrl.Start(ctx); err != nil {
		// The frontend can retry once permission is granted.
		slog.Warn("Tracking not started", "error", err)
	}

	hub := api.NewEventHub(ctrl)
	go hub.Run(ctx)

	handlers := api.Handlers{
		POIs:     api.NewPOIHandler(ctrl, syncer),
		Tracking: api.NewTrackingHandler(ctrl, manual),
		Narrator: api.NewNarratorHandler(ctrl, coord, tr),
		Audio:    api.NewAudioHandler(audioMgr, st),
		Settings: api.NewSettingsHandler(settings, ctrl, engineName),
		Sync:     api.NewSyncHandler(syncer, ctrl),
		Stats:    api.NewStatsHandler(tr, ctrl),
		Events:   hub,
		WebRoot:  "web/guide",
	}
	return runServer(ctx, appCfg, handlers)
}

func initDB(appCfg *config.Config) (*db.DB, *store.SQLiteStore, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if ttl := time.Duration(appCfg.TTS.CacheTTL); ttl > 0 {
		if n, err := dbConn.PruneCache(ttl); err != nil {
			slog.Warn("Failed to prune TTS cache", "error", err)
		} else if n > 0 {
			slog.Info("Pruned TTS cache", "entries", n)
		}
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

// newSyncer builds the admin syncer. Configured base URLs reach it through settings,
// ahead of the built-in localhost defaults.
func newSyncer(cfg *config.Config, tr *tracker.Tracker, st *store.SQLiteStore, settings *config.UnifiedProvider) *poisync.Syncer {
	return poisync.NewSyncer(request.New(cfg.Request, tr), st, st, settings, poisync.Options{
		AdminDBPath: cfg.Sync.AdminDBPath,
	})
}

func restoreVolume(ctx context.Context, st store.StateStore, a *audio.Manager) {
	volStr, ok := st.GetState(ctx, config.KeyVolume)
	if !ok {
		return
	}
	if v, err := strconv.ParseFloat(volStr, 64); err == nil {
		a.SetVolume(v)
	}
}

func initTTS(cfg *config.Config, player audio.Player, st store.CacheStore, tr *tracker.Tracker) (tts.Engine, string) {
	switch cfg.TTS.Engine {
	case "edge-tts":
		return tts.NewSpeaker(edgetts.NewProvider(tr), player, tts.SpeakerOptions{
			Name:       "edge-tts",
			Voices:     cfg.TTS.EdgeTTS.Voices,
			Cache:      st,
			Tracker:    tr,
			ScratchDir: cfg.TTS.CacheDir,
		}), "edge-tts"
	default:
		slog.Warn("TTS disabled, narration text is timed but not spoken", "engine", cfg.TTS.Engine)
		return tts.Silent{}, "none"
	}
}

// initLocation returns the fix source and, for the manual provider, the provider the
// frontend pushes browser positions into.
func initLocation(cfg *config.Config, settings *config.UnifiedProvider) (location.Source, *location.Manual) {
	loc := cfg.Location
	var (
		prov   location.Provider
		manual *location.Manual
	)
	switch loc.Provider {
	case "manual":
		manual = location.NewManual(loc.PermissionGranted)
		prov = manual
	default:
		prov = location.NewMockWalker(loc.Mock, loc.PermissionGranted)
	}
	slog.Info("Location provider ready", "provider", loc.Provider)
	return location.NewPoller(prov, settings.PollInterval(context.Background()), float64(loc.MinMove)), manual
}

func runServer(ctx context.Context, cfg *config.Config, h api.Handlers) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	srv := api.NewServer(cfg.Server.Address, h, shutdownFunc)
	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
