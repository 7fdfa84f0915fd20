package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"clientportal/internal/auth"
	"clientportal/internal/authz"
	"clientportal/internal/config"
	"clientportal/internal/database"
	"clientportal/internal/models"
	"clientportal/internal/realtime"
	"clientportal/internal/services"
)

// Deps are the long-lived resources the server is built on.
type Deps struct {
	Config *config.Config
	DB     database.Service
	Files  services.FileStore
	Broker *realtime.Broker
	Log    *slog.Logger
}

type Server struct {
	cfg       *config.Config
	db        database.Service
	models    *models.DB
	auth      *auth.Service
	authz     *authz.Enforcer
	projects  *services.ProjectService
	tickets   *services.TicketService
	materials *services.MaterialService
	feeds     *services.FeedService
}

func New(d Deps) (*Server, error) {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	broker := d.Broker
	if broker == nil {
		broker = realtime.NewBroker(realtime.DefaultBuffer, log)
	}

	orm, err := models.NewDB(d.DB.DB())
	if err != nil {
		return nil, err
	}
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return nil, err
	}

	tokens := auth.TokenConfig{Secret: d.Config.JWTSecret, Issuer: d.Config.JWTIssuer, TTL: d.Config.JWTTTL}
	return &Server{
		cfg:       d.Config,
		db:        d.DB,
		models:    orm,
		auth:      auth.NewService(d.DB, orm.Roles, tokens, d.Config.IsAdminEmail, log),
		authz:     enforcer,
		projects:  services.NewProjectService(d.DB, enforcer, broker, log),
		tickets:   services.NewTicketService(d.DB, enforcer, broker, log),
		materials: services.NewMaterialService(d.DB, d.Files, enforcer, broker, log),
		feeds:     services.NewFeedService(d.DB, enforcer, broker),
	}, nil
}

func (s *Server) GetDB() database.Service                 { return s.db }
func (s *Server) GetModels() *models.DB                   { return s.models }
func (s *Server) GetConfig() *config.Config               { return s.cfg }
func (s *Server) GetAuth() *auth.Service                  { return s.auth }
func (s *Server) GetAuthz() *authz.Enforcer               { return s.authz }
func (s *Server) GetProjects() *services.ProjectService   { return s.projects }
func (s *Server) GetTickets() *services.TicketService     { return s.tickets }
func (s *Server) GetMaterials() *services.MaterialService { return s.materials }
func (s *Server) GetFeeds() *services.FeedService         { return s.feeds }

// HTTPServer wraps the routes in an http.Server. There is no write timeout
// because notification and timeline streams stay open.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.RegisterRoutes(),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
	}
}
