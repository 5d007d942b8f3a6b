package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gameroomdev/gameroom/pkg/logging"
	"github.com/gameroomdev/gameroom/pkg/server"
)

func main() {
	var (
		listen       string
		dbPath       string
		logFile      string
		debugLevel   string
		seed         int64
		turnTimeout  time.Duration
		enableHoldem bool
		debugEvents  bool
	)
	flag.StringVar(&listen, "listen", "127.0.0.1:8080", "Address to listen on")
	flag.StringVar(&dbPath, "db", "", "Path to SQLite database file (created if missing)")
	flag.StringVar(&logFile, "logfile", "", "Path to rotated log file (empty = stdout only)")
	flag.StringVar(&debugLevel, "debuglevel", "info", "Logging level: trace, debug, info, warn, error")
	flag.Int64Var(&seed, "seed", 0, "Deterministic RNG seed for games (0 = random)")
	flag.DurationVar(&turnTimeout, "turntimeout", 0, "Turn timeout before auto-play (0 = server default)")
	flag.BoolVar(&enableHoldem, "holdem", false, "Enable the poker variant")
	flag.BoolVar(&debugEvents, "debugevents", false, "Dump every websocket frame at debug level")
	flag.Parse()

	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "gameroom.sqlite")
	}

	logBackend, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:    logFile,
		DebugLevel: debugLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	defer logBackend.Close()
	log := logBackend.Logger("SRVR")

	db, err := server.NewDatabase(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init db: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	srv, err := server.NewServer(server.Config{
		Log:          log,
		TurnTimeout:  turnTimeout,
		EnableHoldem: enableHoldem,
		DebugEvents:  debugEvents,
		RNGSeed:      seed,
	}, db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create server: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.Sockets().ServeWS)
	httpSrv := &http.Server{Addr: listen, Handler: mux}

	go func() {
		log.Infof("Listening on %s", listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("HTTP server error: %v", err)
			stop()
		}
	}()

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("Server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP shutdown: %v", err)
	}
	log.Infof("Server stopped")
}
