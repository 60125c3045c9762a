// Package server orchestrates all components: database, realtime hub, change
// listener, COMMS dispatcher and the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/gate-registration/internal/config"
	"github.com/morezero/gate-registration/pkg/changestream"
	"github.com/morezero/gate-registration/pkg/commsutil"
	"github.com/morezero/gate-registration/pkg/db"
	"github.com/morezero/gate-registration/pkg/dispatcher"
	"github.com/morezero/gate-registration/pkg/events"
	"github.com/morezero/gate-registration/pkg/gate"
	"github.com/morezero/gate-registration/pkg/realtime"
	"github.com/morezero/gate-registration/pkg/upload"
)

const (
	logPrefix       = "server:server"
	shutdownTimeout = 10 * time.Second
)

// Server is the gate-registration orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	pool       *pgxpool.Pool
	hub        *realtime.Hub
	sub        *comms.Subscription
	httpServer *http.Server
}

// SetupLogging installs the default slog handler at the given level name.
func SetupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	SetupLogging(cfg.LogLevel)
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting gate-registration", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Server{cfg: cfg}

	// Step 1: Connect to database
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
	}
	s.pool = pool

	// Step 1b: Run migrations if enabled
	if cfg.RunMigrations {
		migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
		if err != nil {
			pool.Close()
			return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
		}
		if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
			pool.Close()
			return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
		}
	}

	// Step 2: Connect to COMMS (optional)
	if cfg.COMMSURL != "" {
		nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
		if err != nil {
			pool.Close()
			return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
		}
		s.nc = nc
	} else {
		slog.Info(fmt.Sprintf("%s - COMMS_URL not set; request/reply and change relay disabled", logPrefix))
	}

	// Step 3: Realtime hub and change listener
	registry := realtime.NewRegistry()
	s.hub = realtime.NewHub(registry)
	wsHandler := realtime.NewHandler(registry, &realtime.HandlerOpts{SendBuffer: cfg.WSSendBuffer})

	listener := s.newListener()
	go listener.Run(ctx)

	// Step 4: Gate service
	uploader, err := upload.New(upload.CloudinaryOpts{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.UploadFolder,
	})
	if err != nil {
		s.close()
		return fmt.Errorf("%s - failed to configure uploads: %w", logPrefix, err)
	}
	svc := gate.NewService(gate.NewServiceParams{
		Repo:        db.NewRepository(pool),
		Uploader:    uploader,
		Connections: registry,
		Config:      gate.Config{JWTSecret: cfg.JWTSecret, TokenTTL: cfg.TokenTTL},
	})

	// Step 5: Serve COMMS requests
	if s.nc != nil {
		subject := cfg.GateSubject
		if subject == "" {
			subject = commsutil.SubjectGate
		}
		sub, err := dispatcher.NewDispatcher(svc).Subscribe(ctx, s.nc, subject, cfg.RequestTimeout)
		if err != nil {
			s.close()
			return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, subject, err)
		}
		s.sub = sub
	}

	// Step 6: Start HTTP server
	httpAddr := cfg.ListenAddr()
	s.httpServer = &http.Server{
		Addr: httpAddr,
		Handler: NewRouter(RoutesParams{
			Service:            svc,
			Realtime:           wsHandler,
			JWTSecret:          cfg.JWTSecret,
			RequestTimeout:     cfg.RequestTimeout,
			HealthCheckTimeout: cfg.HealthCheckTimeout,
			MaxUploadBytes:     cfg.MaxUploadBytes,
			StaticDir:          cfg.StaticDir,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - Gate-registration is ready", logPrefix))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	// Graceful shutdown
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn(fmt.Sprintf("%s - HTTP shutdown: %v", logPrefix, err))
	}
	s.close()

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// newListener picks the change source: the database itself, relaying to
// COMMS when connected, or the COMMS relay of another instance.
func (s *Server) newListener() *changestream.Listener {
	if s.cfg.ChangeSource == config.ChangeSourceComms {
		subject := events.NewCommsPublisher(s.nc, &events.CommsPublisherOpts{GlobalChangeSubject: s.cfg.ChangeEventSubject}).GlobalSubject()
		slog.Info(fmt.Sprintf("%s - Realtime updates from COMMS subject %s", logPrefix, subject))
		return changestream.NewListener(changestream.NewCommsSource(s.nc, subject), s.hub, nil)
	}

	source := changestream.NewPGSource(s.pool, &changestream.PGSourceOpts{
		Channel: s.cfg.ChangeChannel,
		Origin:  instanceName(s.cfg.COMMSName),
	})
	slog.Info(fmt.Sprintf("%s - Realtime updates from database channel %s", logPrefix, s.cfg.ChangeChannel))
	return changestream.NewListener(source, s.hub, &changestream.ListenerOpts{Relay: s.changeRelay()})
}

// changeRelay republishes database changes to COMMS, or nowhere when COMMS is off.
func (s *Server) changeRelay() events.EventPublisher {
	if s.nc == nil {
		return &events.NoOpPublisher{}
	}
	return events.NewCommsPublisher(s.nc, &events.CommsPublisherOpts{GlobalChangeSubject: s.cfg.ChangeEventSubject})
}

// close releases everything Run acquired, in reverse order.
func (s *Server) close() {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			slog.Warn(fmt.Sprintf("%s - unsubscribe: %v", logPrefix, err))
		}
	}
	if s.hub != nil {
		s.hub.Close()
	}
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			slog.Warn(fmt.Sprintf("%s - COMMS drain: %v", logPrefix, err))
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// instanceName identifies this process on change events, e.g. "gate-registration@host".
func instanceName(service string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return service
	}
	return service + "@" + host
}
