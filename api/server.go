package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forgeci/runner-autoscaler/api/handlers"
	"github.com/forgeci/runner-autoscaler/api/middleware"
	"github.com/forgeci/runner-autoscaler/api/websocket"
	"github.com/forgeci/runner-autoscaler/internal/auth"
	"github.com/forgeci/runner-autoscaler/pkg/config"
	"github.com/forgeci/runner-autoscaler/pkg/database"
	"github.com/forgeci/runner-autoscaler/pkg/database/queries"
	"github.com/forgeci/runner-autoscaler/pkg/models"
)

// Deps are the control loop components the API surfaces.
type Deps struct {
	DB          *database.DB
	Status      handlers.StatusProvider
	TokenIssuer handlers.RegistrationTokenIssuer
	Events      <-chan *models.Event
	Registry    *prometheus.Registry
	Mode        string
}

type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      config.APIConfig
	deps        Deps
	authService *auth.Service
	wsHub       *websocket.Hub
	wsBridge    *websocket.EventBridge
}

func NewServer(cfg config.APIConfig, deps Deps) *Server {
	if deps.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	jwtDuration := cfg.JWTDuration
	if jwtDuration == 0 {
		jwtDuration = 24 * time.Hour
	}

	router := gin.New()
	authService := auth.NewService(cfg.JWTSecret, jwtDuration)
	wsHub := websocket.NewHub()

	s := &Server{
		router:      router,
		config:      cfg,
		deps:        deps,
		authService: authService,
		wsHub:       wsHub,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	if deps.Events != nil {
		s.wsBridge = websocket.NewEventBridge(wsHub, deps.Events)
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	s.router.Use(middleware.RequestLogger())
}

func (s *Server) setupRoutes() {
	var eventsRepo *queries.ScalingEventRepository
	if s.deps.DB != nil {
		eventsRepo = queries.NewScalingEventRepository(s.deps.DB.DB)
	}

	healthHandler := handlers.NewHealthHandler(s.deps.DB)
	authHandler := handlers.NewAuthHandler(s.config.AdminToken, s.authService)
	statusHandler := handlers.NewStatusHandler(s.deps.Status)
	eventsHandler := handlers.NewEventsHandler(eventsRepo)
	runnersHandler := handlers.NewRunnersHandler(s.deps.TokenIssuer)

	// Public routes
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	if s.deps.Registry != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{})))
	}

	// Auth routes
	s.router.POST("/auth/token", authHandler.Token)

	// WebSocket route
	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	// Protected routes
	protected := s.router.Group("/")
	protected.Use(middleware.JWTAuth(s.authService))
	{
		protected.GET("/status", statusHandler.Status)
		protected.GET("/events/recent", eventsHandler.Recent)
		protected.POST("/runners/registration-token", runnersHandler.RegistrationToken)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
