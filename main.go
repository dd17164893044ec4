package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"swing-trainer/game"
	"swing-trainer/sensor"
)

type Server struct {
	db         *pgxpool.Pool // nil when persistence is disabled
	router     *mux.Router
	httpServer *http.Server
	config     *Config
	engine     *game.Engine
	store      *game.SessionStore
	sensors    *sensor.Service
	hub        *Hub
	debounce   *game.Debouncer
}

type Config struct {
	Port           string
	DatabaseURL    string
	DebounceMs     int
	AllowedOrigins []string
}

func NewConfig() *Config {
	// A missing .env file is fine; plain environment variables still apply.
	_ = godotenv.Load()

	debounceMs := 250
	if env := os.Getenv("SENSOR_DEBOUNCE_MS"); env != "" {
		if v, err := strconv.Atoi(env); err == nil && v > 0 {
			debounceMs = v
		}
	}

	origins := []string{"http://localhost:3000", "http://localhost:8080"}
	if env := os.Getenv("ALLOWED_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}

	return &Config{
		Port:           getEnv("PORT", "8082"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DebounceMs:     debounceMs,
		AllowedOrigins: origins,
	}
}

func NewServer(config *Config) (*Server, error) {
	s := &Server{
		config:   config,
		router:   mux.NewRouter(),
		hub:      newHub(),
		debounce: game.NewDebouncer(time.Duration(config.DebounceMs) * time.Millisecond),
	}
	s.hub.server = s

	// Persistence is optional: the trainer keeps working without a database,
	// sessions are simply not recorded.
	if config.DatabaseURL != "" {
		if err := s.connectDatabase(config.DatabaseURL); err != nil {
			log.Printf("Warning: session persistence disabled: %v", err)
		}
	} else {
		log.Printf("No DATABASE_URL configured, session persistence disabled")
	}

	s.engine = game.NewEngine(s.store)
	s.engine.SetOnChange(s.hub.BroadcastState)

	s.sensors = sensor.NewService(s.acceptSwing, s.debounce)
	s.sensors.SetOnChange(func() {
		s.hub.BroadcastState(s.engine.Snapshot())
	})
	s.sensors.StartSweep()

	go s.hub.Run()

	s.setupRoutes()
	return s, nil
}

func (s *Server) connectDatabase(databaseURL string) error {
	dbConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return err
	}
	dbConfig.MaxConns = 4
	dbConfig.MaxConnLifetime = time.Hour
	dbConfig.MaxConnIdleTime = time.Minute * 30

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return err
	}

	store, err := game.NewSessionStore(db)
	if err != nil {
		db.Close()
		return err
	}
	if err := store.InitSchema(ctx); err != nil {
		db.Close()
		return err
	}

	s.db = db
	s.store = store
	log.Printf("Session persistence enabled")
	return nil
}

// acceptSwing is the single debounced entry for swing signals, shared by the
// sensor bridge, the WebSocket stream and the HTTP endpoint
func (s *Server) acceptSwing() {
	appMetrics.IncrementSwings()
	s.engine.RequestSwing()
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.HandleFunc("/health", s.healthHandler).Methods("GET")
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods("GET")

	// Session control endpoints
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.stateHandler).Methods("GET")
	api.HandleFunc("/pitch", s.pitchHandler).Methods("POST")
	api.HandleFunc("/swing", s.swingHandler).Methods("POST")
	api.HandleFunc("/config", s.getConfigHandler).Methods("GET")
	api.HandleFunc("/config", s.updateConfigHandler).Methods("POST", "PUT")
	api.HandleFunc("/reset", s.resetHandler).Methods("POST")
	api.HandleFunc("/sensors", s.sensorsHandler).Methods("GET")

	// Completed-session endpoints
	api.HandleFunc("/sessions/recent", s.recentSessionsHandler).Methods("GET")
	api.HandleFunc("/sessions/stats", s.sessionStatsHandler).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.getSessionHandler).Methods("GET")

	// WebSocket endpoints: state stream for the browser UI, ingest for the
	// swing sensor.
	s.router.HandleFunc("/ws", s.wsStateHandler)
	s.router.HandleFunc("/ws/sensor", s.wsSensorHandler)

	// Apply middleware
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.metricsMiddleware)
}

func (s *Server) Start() error {
	// Setup CORS so a browser UI served from another port can reach the API
	c := cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         86400,
	})

	handler := c.Handler(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(s.router))

	s.httpServer = &http.Server{
		Addr:        ":" + s.config.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	log.Printf("Starting Swing Trainer on port %s (debounce %dms)",
		s.config.Port, s.config.DebounceMs)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down Swing Trainer...")

	s.engine.Close()
	s.hub.Stop()

	if s.db != nil {
		s.db.Close()
	}

	return s.httpServer.Shutdown(ctx)
}

func main() {
	config := NewConfig()

	server, err := NewServer(config)
	if err != nil {
		log.Fatal("Failed to create server:", err)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatal("Server shutdown failed:", err)
		}
		log.Println("Server shutdown complete")
	}()

	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Server failed to start:", err)
	}
}
