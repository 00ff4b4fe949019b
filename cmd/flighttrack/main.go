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
	"path/filepath"
	"syscall"
	"time"

	"flighttrack/internal/api"
	"flighttrack/pkg/config"
	"flighttrack/pkg/db"
	"flighttrack/pkg/db/maintenance"
	"flighttrack/pkg/flight"
	"flighttrack/pkg/logging"
	"flighttrack/pkg/playback/frame"
	"flighttrack/pkg/probe"
	"flighttrack/pkg/session"
	"flighttrack/pkg/store"
	"flighttrack/pkg/version"
	"flighttrack/pkg/watcher"
)

const defaultConfigPath = "configs/flighttrack.yaml"

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
	openFile   = flag.String("open", "", "Flight export to import and open at startup")
)

func main() {
	flag.Parse()

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background(), *configPath, *openFile); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, openPath string) error {
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

	slog.Info("FlightTrack Started", "version", version.Version)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	cfgProv := config.NewProvider(appCfg, st)

	// Startup Probes
	results := probe.Run(ctx, []probe.Probe{
		{Name: "Database", Check: probe.Ping(dbConn), Critical: true},
		{Name: "Server Address", Check: probe.Listenable(appCfg.Server.Address), Critical: true},
		{Name: "Export Directory", Check: probe.WritableDir(cfgProv.ExportDir(ctx)), Critical: false},
		{Name: "Import Directory", Check: probe.WritableDir(appCfg.Library.ImportDir), Critical: false},
	})
	if err := probe.AnalyzeResults(results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	proc := flight.NewProcessor(processorOptions(appCfg))
	maintOpts := maintenance.Options{
		ImportDir:  appCfg.Library.ImportDir,
		Retention:  cfgProv.Retention(ctx),
		MaxFlights: appCfg.Library.MaxFlights,
	}
	if err := maintenance.Run(ctx, st, dbConn, proc, maintOpts); err != nil {
		slog.Error("Maintenance tasks failed", "error", err)
	}

	// Inbox Watcher
	inbox := watcher.NewService([]string{appCfg.Library.ImportDir})
	go inbox.Run(ctx, time.Duration(appCfg.Library.ScanInterval), func(c context.Context, files []string) {
		maintOpts.Retention = cfgProv.Retention(c)
		if err := maintenance.Run(c, st, dbConn, proc, maintOpts); err != nil {
			slog.Error("Inbox import failed", "error", err)
		}
	})

	// Frame Loop & Session
	loop := frame.NewLoop(appCfg.Playback.FPS)
	go loop.Run(ctx)

	sess := session.New(loop, session.WithSpeed(cfgProv.PlaybackSpeed(ctx)))
	if openPath != "" {
		if err := openAtStartup(ctx, st, sess, proc, openPath); err != nil {
			slog.Error("Failed to open flight", "file", openPath, "error", err)
		}
	} else if session.TryRestore(ctx, st, sess) {
		slog.Info("Restored last flight", "id", sess.Flight().ID)
	}

	// Server
	return runServer(ctx, appCfg, cfgProv, st, sess, loop)
}

func initDB(appCfg *config.Config) (*db.DB, store.Store, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

func processorOptions(cfg *config.Config) flight.Options {
	opts := flight.DefaultOptions()
	opts.CoverageResolution = cfg.Coverage.Resolution
	return opts
}

// openAtStartup imports a local export into the library and opens it.
func openAtStartup(ctx context.Context, st store.Store, sess *session.Session, proc *flight.Processor, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fl, err := proc.Process(f, filepath.Base(path))
	if err != nil {
		return err
	}
	if err := st.SaveFlight(ctx, fl, filepath.Base(path)); err != nil {
		return fmt.Errorf("failed to save flight: %w", err)
	}
	if err := sess.Open(ctx, fl); err != nil {
		return err
	}
	return session.Remember(ctx, st, fl.ID)
}

func runServer(ctx context.Context, cfg *config.Config, cfgProv config.Provider, st store.Store, sess *session.Session, loop *frame.Loop) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	shutdownFunc := func() {
		quit <- syscall.SIGTERM
	}

	srv := api.NewServer(cfg.Server.Address, sess,
		api.NewFlightHandler(st, sess, processorOptions(cfg)),
		api.NewPlaybackHandler(sess),
		api.NewStreamHandler(sess, cfg.Playback.BroadcastRate),
		api.NewExportHandler(sess, cfgProv),
		api.NewConfigHandler(st, cfgProv),
		shutdownFunc,
	)

	srv.Handler = loggingMiddleware(srv.Handler)
	slog.Info("Frame loop ready", "interval", loop.Interval())
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

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
