package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/greenledger/greenledger/app/services/ledger/handlers"
	"github.com/greenledger/greenledger/foundation/events"
	"github.com/greenledger/greenledger/foundation/ledger"
	"github.com/greenledger/greenledger/foundation/ledger/storage"
	"github.com/greenledger/greenledger/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("LEDGER")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			APIHost         string        `conf:"default:0.0.0.0:8080"`
		}
		Ledger struct {
			Difficulty  int    `conf:"default:4"`
			StoragePath string `conf:"default:zblock/ledger.json"`
		}
		Events struct {
			MaxIdle         time.Duration `conf:"default:10m"`
			CleanupInterval time.Duration `conf:"default:1m"`
			ShutdownTimeout time.Duration `conf:"default:5s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "LEDGER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Ledger Support

	// The ledger packages accept a function of this signature to allow the
	// application to log without the packages taking a logger dependency.
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
	}

	// The snapshot document lives on disk as a single JSON file. Every
	// append rewrites it in full.
	store, err := storage.NewFile(cfg.Ledger.StoragePath)
	if err != nil {
		return fmt.Errorf("unable to construct ledger storage: %w", err)
	}

	// The ledger value manages the chain, the certificate indices and the
	// proof of work sealing.
	lgr, err := ledger.New(ledger.Config{
		Storage:    store,
		Difficulty: cfg.Ledger.Difficulty,
		EvHandler:  ev,
	})
	if err != nil {
		return fmt.Errorf("unable to construct ledger: %w", err)
	}

	log.Infow("startup", "status", "ledger loaded", "blocks", lgr.Height(), "difficulty", lgr.Difficulty())

	// =========================================================================
	// Events Support

	// The bus carries certificate lifecycle events to connected websocket
	// clients and to the in-process router.
	bus := events.New(events.Config{
		EvHandler: ev,
	})
	defer bus.Shutdown(cfg.Events.ShutdownTimeout)

	// The router gives in-process consumers a typed view of the stream.
	// Lifecycle events are logged; everything else falls through to the
	// bus's unmatched-drop behavior.
	rtr := events.NewRouter(ev)
	logEvent := func(evt events.Event) error {
		log.Infow("event", "type", evt.Type, "room", evt.Room, "data", evt.Data)
		return nil
	}
	rtr.Register(events.TypeCertificateIssued, logEvent)
	rtr.Register(events.TypeCertificateVerified, logEvent)
	rtr.Register(events.TypeCertificateTraded, logEvent)
	rtr.Register(events.TypeCertificateRetired, logEvent)
	rtr.Register(events.TypeUpdate, logEvent)

	const routerSession = "event-router"
	routerCh := bus.Connect(routerSession)
	go func() {
		for evt := range routerCh {
			rtr.Dispatch(evt)
		}
	}()

	// Sweep idle websocket sessions. The router session is kept alive by
	// touching it on every sweep.
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.Events.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				bus.Touch(routerSession)
				if n := bus.CleanupInactive(cfg.Events.MaxIdle); n > 0 {
					log.Infow("events", "status", "cleaned up idle sessions", "count", n)
				}
			case <-cleanupDone:
				return
			}
		}
	}()
	defer close(cleanupDone)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, lgr)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start API Service

	log.Infow("startup", "status", "initializing V1 API support")

	// Construct the mux for the API calls.
	apiMux := handlers.APIMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Ledger:   lgr,
		Bus:      bus,
	})

	// Construct a server to service the requests against the mux.
	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      apiMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		bus.Shutdown(cfg.Events.ShutdownTimeout)

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown API started")
		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop api service gracefully: %w", err)
		}
	}

	return nil
}
