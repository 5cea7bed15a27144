// Package agent wires the parsed-model core, the entity graph store and
// the execution tracker into one HTTP server.
package agent

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/errgroup"

	"Vista"
	authentication "Vista/agent/Auth"
	"Vista/agent/notification"
	"Vista/agent/repository"
	"Vista/builder"
	"Vista/config"
	"Vista/events"
	"Vista/logger"
	"Vista/token"
	"Vista/tracker"
)

// dashboardRuntime is the in-memory per-dashboard state that does not
// belong in the persisted graph: the live token catalog and the token
// definitions extracted at import time.
type dashboardRuntime struct {
	catalog *token.Catalog
	defs    []token.Definition
}

type Server struct {
	cfg *config.Config
	log Vista.Logger

	e     *echo.Echo
	mongo *mongo.Client

	dashboards repository.DashboardRepo
	executions repository.ExecutionRepo
	builder    *builder.Builder

	bus          *events.Bus
	tracker      *tracker.Tracker
	orchestrator *tracker.Orchestrator
	forwarder    *notification.Forwarder

	mu       sync.Mutex
	runtimes map[string]*dashboardRuntime
}

// NewServer assembles the full server around the given search backend.
// An empty mongo URI selects the in-memory repositories.
func NewServer(ctx context.Context, cfg *config.Config, ds Vista.DataSource) (*Server, error) {
	log := logger.New("agent", "", cfg.Logging.InstanceName)

	s := &Server{
		cfg:      cfg,
		log:      log,
		bus:      events.NewBus(logger.New("events", "bus", "")),
		runtimes: make(map[string]*dashboardRuntime),
	}

	if cfg.Mongo.URI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, fmt.Errorf("connecting to mongo: %w", err)
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			return nil, fmt.Errorf("pinging mongo: %w", err)
		}
		s.mongo = client
		s.executions = repository.NewExecutionRepo(client, cfg.Mongo.Database, cfg.Mongo.ExecutionsCollection)
		s.dashboards = repository.NewDashboardRepo(client, cfg.Mongo.Database, cfg.Mongo.DashboardsCollection, s.executions)
	} else {
		log.Infof("no mongo uri configured, using in-memory repositories")
		s.executions = repository.NewMemoryExecutionRepo()
		s.dashboards = repository.NewMemoryDashboardRepo(s.executions)
	}

	s.builder = builder.New(s.dashboards, logger.New("builder", "", ""))
	s.tracker = tracker.New(ds, s.bus, logger.New("tracker", "", ""),
		tracker.WithRepo(s.executions),
		tracker.WithPoolSize(cfg.Tracker.PoolSize),
		tracker.WithPollInterval(cfg.Tracker.PollInterval.Value()),
		tracker.WithDefaultTimeout(cfg.Tracker.DefaultTimeout.Value()),
		tracker.WithFetchLimit(cfg.Tracker.FetchLimit),
	)
	s.orchestrator = tracker.NewOrchestrator(s.tracker, s.bus, logger.New("tracker", "orchestrator", ""))
	if cfg.Notification.WebhookURL != "" {
		s.forwarder = notification.NewForwarder(cfg.Notification.WebhookURL, cfg.Notification.Timeout.Value(), s.bus, logger.New("notification", "", ""))
	}

	if cfg.Auth.Enabled {
		authentication.Configure(cfg.Auth.Secret, cfg.Auth.TokenTTL.Value())
	}

	s.e = s.routes()
	return s, nil
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/healthz", s.HealthCheck)
	e.POST("/login", s.Login)

	api := e.Group("/api/v1")
	if s.cfg.Auth.Enabled {
		api.Use(authentication.Middleware())
	}

	api.POST("/dashboards/import", s.ImportDashboard)
	api.GET("/dashboards", s.ListDashboards)
	api.GET("/dashboards/:namespace/:name", s.GetDashboard)
	api.DELETE("/dashboards/:namespace/:name", s.DeleteDashboard)
	api.POST("/dashboards/:namespace/:name/run", s.RunDashboard)
	api.POST("/dashboards/:namespace/:name/tokens", s.SetToken)

	api.POST("/convert", s.Convert)

	api.POST("/executions", s.StartExecution)
	api.GET("/executions/:id", s.GetExecution)
	api.GET("/executions", s.ListExecutions)
	api.POST("/executions/:id/cancel", s.CancelExecution)

	return e
}

// Run serves until ctx is cancelled, then drains and shuts down.
func (s *Server) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		s.log.Infof("listening on %s", s.cfg.Server.Address)
		if err := s.e.Start(s.cfg.Server.Address); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		return s.shutdown()
	})
	return group.Wait()
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.e.Shutdown(ctx)
	s.orchestrator.Close()
	if s.forwarder != nil {
		s.forwarder.Close()
	}
	s.tracker.Stop()
	s.bus.Close()
	if s.mongo != nil {
		if derr := s.mongo.Disconnect(ctx); derr != nil && err == nil {
			err = derr
		}
	}
	return err
}

// runtime returns the per-dashboard token state, creating it on first use
// so a restart does not lose the ability to run a stored dashboard.
func (s *Server) runtime(key string) *dashboardRuntime {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.runtimes[key]
	if !ok {
		rt = &dashboardRuntime{catalog: token.NewCatalog()}
		s.runtimes[key] = rt
	}
	return rt
}

func (s *Server) setRuntime(key string, defs []token.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.runtimes[key]
	if !ok {
		rt = &dashboardRuntime{catalog: token.NewCatalog()}
		s.runtimes[key] = rt
	}
	rt.defs = defs
}

func (s *Server) dropRuntime(key string) {
	s.mu.Lock()
	delete(s.runtimes, key)
	s.mu.Unlock()
}
