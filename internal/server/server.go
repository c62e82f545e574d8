// FilePath: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spoilsense/spoilsense/api"
	"github.com/spoilsense/spoilsense/api/middleware"
	"github.com/spoilsense/spoilsense/internal/alerting"
	"github.com/spoilsense/spoilsense/internal/cache"
	"github.com/spoilsense/spoilsense/internal/collector"
	"github.com/spoilsense/spoilsense/internal/config"
	"github.com/spoilsense/spoilsense/internal/database"
	"github.com/spoilsense/spoilsense/internal/hubservice"
	"github.com/spoilsense/spoilsense/internal/monitoring"
	"github.com/spoilsense/spoilsense/internal/notify"
	"github.com/spoilsense/spoilsense/internal/repository/postgres"
	"github.com/spoilsense/spoilsense/internal/repository/timescale"
	nuts "github.com/vaudience/go-nuts"
)

// Server represents our HTTP server and the background workers that run
// alongside it.
type Server struct {
	config     *config.Config
	srv        *http.Server
	hubservice *hubservice.HubService
	collector  *collector.Collector
	cancel     context.CancelFunc
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config: cfg,
		srv:    srv,
	}
}

// Start begins listening for requests and launches the collector and
// housekeeping workers.
func (s *Server) Start() error {
	// Initialize services
	s.hubservice = initializeHubService(s.config)
	s.collector = collector.New(s.hubservice, s.config.Collector)

	// Set up housekeeping event handlers
	s.setupHousekeepingHandlers()

	// Setup routes and handler chain
	router := api.NewRouter(s.hubservice, middleware.KeycloakConfig{
		URL:          s.config.Keycloak.URL,
		Realm:        s.config.Keycloak.Realm,
		ClientID:     s.config.Keycloak.ClientID,
		ClientSecret: s.config.Keycloak.ClientSecret,
	})
	router.Resources().SetHealthCheck(s.handleHealth())
	router.Resources().SetMetrics(promhttp.Handler().ServeHTTP)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)
	s.srv.Handler = handlers.RecoveryHandler()(cors(router))

	// Start background workers
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.collector.Run(ctx)
	go s.hubservice.Housekeeping.Run(ctx)

	// Start server
	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	if s.hubservice.Cache != nil {
		if err := s.hubservice.Cache.Close(); err != nil {
			nuts.L.Warnf("[Server] Error closing cache: %v", err)
		}
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// handleHealth returns a simple health check handler
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","version":"` + nuts.GetVersion() + `"}`))
	}
}

func (s *Server) setupHousekeepingHandlers() {
	s.hubservice.Housekeeping.OnEvent("readings.pruned", func(arg interface{}) {
		if count, ok := arg.(int64); ok {
			monitoring.PrunedRecords.WithLabelValues("readings").Add(float64(count))
		}
	})

	s.hubservice.Housekeeping.OnEvent("alerts.pruned", func(arg interface{}) {
		if count, ok := arg.(int64); ok {
			monitoring.PrunedRecords.WithLabelValues("alerts").Add(float64(count))
		}
	})

	s.hubservice.Housekeeping.OnEvent("device.deleted", func(arg interface{}) {
		nuts.L.Infof("[Housekeeping] Device %v and all associated data deleted", arg)
	})
}

// initializeHubService creates and configures the hub service
func initializeHubService(cfg *config.Config) *hubservice.HubService {
	if err := config.ValidateAlerting(cfg.Alerting, cfg.Twilio); err != nil {
		nuts.L.Fatalf("[Server] Invalid alerting configuration: %v", err)
	}

	// Initialize database connections
	tsdb := initTimescaleDB(cfg.Database.TimescaleDB)
	appDB := initAppDB(cfg.Database.AppDB)

	// Initialize repositories
	devices, err := postgres.NewDeviceRepository(appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize device repository: %v", err)
	}
	alerts, err := postgres.NewAlertRepository(appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize alert repository: %v", err)
	}
	readings, err := timescale.NewReadingRepository(tsdb, cfg.Retention.MaxAge)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize reading repository: %v", err)
	}

	readingCache, err := cache.New(cfg.Redis)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to redis: %v", err)
	}

	var notifier alerting.Notifier
	if cfg.Twilio.Enabled() {
		notifier = notify.NewVoiceNotifier(cfg.Twilio)
		nuts.L.Infof("[Server] Voice notifications enabled via %s", cfg.Twilio.PhoneNumber)
	} else {
		nuts.L.Warnf("[Server] Twilio not configured, alerts will be recorded without calls")
	}

	// Create and return hub service
	svc := hubservice.New(devices, readings, alerts, readingCache, notifier, cfg.Alerting, cfg.Retention)
	if err := svc.Validate(); err != nil {
		nuts.L.Fatalf("[Server] Invalid service wiring: %v", err)
	}
	return svc
}

func initTimescaleDB(cfg config.PostgresConfig) database.DB {
	wrappedDB, err := database.NewTimescaleDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to TimescaleDB: %v", err)
	}
	db := wrappedDB.GetDB()
	// Verify TimescaleDB extension
	var hasTimescaleDB bool
	err = db.Get(&hasTimescaleDB, "SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'timescaledb')")
	if err != nil || !hasTimescaleDB {
		nuts.L.Fatalf("[Server] TimescaleDB extension not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping TimescaleDB: %v", err)
	}
	return wrappedDB
}

func initAppDB(cfg config.PostgresConfig) database.DB {
	wrappedDB, err := database.NewPostgresDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to AppDB: %v", err)
	}
	db := wrappedDB.GetDB()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping AppDB: %v", err)
	}
	return wrappedDB
}
