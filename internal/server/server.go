package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/app/domain/auth"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/badges"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/catalog"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/decision"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/events"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/keywords"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/locator"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/oracle"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/photos"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/ratelimit"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/scans"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/subscription"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/verification"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/visits"
	"github.com/FACorreiaa/loci-visits/internal/app/models"
	database "github.com/FACorreiaa/loci-visits/internal/db"
	"github.com/FACorreiaa/loci-visits/internal/pkg/config"
	"github.com/FACorreiaa/loci-visits/internal/routes"
)

// Server holds the dependencies for the HTTP server
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	dbPool    *pgxpool.Pool
	publisher events.Publisher
	router    http.Handler
}

// New creates a new Server instance with all dependencies
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger,
	}

	dbPool, err := s.setupDatabase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}
	s.dbPool = dbPool

	handlers, err := s.buildHandlers(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{SecretKey: cfg.JWT.SecretKey, Logger: logger})
	s.router = SetupRouter(handlers, jwtService, cfg.Server.ServiceName, logger)

	return s, nil
}

// setupDatabase initializes the database connection and runs migrations
func (s *Server) setupDatabase(ctx context.Context) (*pgxpool.Pool, error) {
	s.logger.Info("Setting up database connection and migrations")

	dbConfig, err := database.NewDatabaseConfig(s.cfg, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database configuration: %w", err)
	}

	pool, err := database.Init(ctx, dbConfig.ConnectionURL, s.cfg.Repositories.Postgres, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database pool: %w", err)
	}

	if !database.WaitForDB(ctx, pool, s.logger) {
		pool.Close()
		return nil, fmt.Errorf("database did not become ready")
	}
	s.logger.Info("Connected to Postgres",
		zap.String("host", s.cfg.Repositories.Postgres.Host),
		zap.String("port", s.cfg.Repositories.Postgres.Port),
		zap.String("database", s.cfg.Repositories.Postgres.DB))

	if err = database.RunMigrations(dbConfig.ConnectionURL, s.logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	s.logger.Info("Database setup completed successfully")
	return pool, nil
}

// buildHandlers wires repositories, the oracle and the optional photo and event sinks.
func (s *Server) buildHandlers(ctx context.Context) (*routes.AppHandlers, error) {
	vcfg := s.cfg.Verification

	imageOracle, err := oracle.NewGeminiOracle(ctx, oracle.GeminiConfig{
		APIKey:      s.cfg.Gemini.APIKey,
		Model:       s.cfg.Gemini.Model,
		Temperature: s.cfg.Gemini.Temperature,
		Timeout:     vcfg.OracleTimeout,
	}, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create image oracle: %w", err)
	}

	policy, err := decision.NewPolicy(decision.Thresholds{
		AutoMatch: vcfg.AutoMatchThreshold,
		Suggest:   vcfg.SuggestThreshold,
	})
	if err != nil {
		return nil, err
	}

	catalogService := catalog.NewService(catalog.NewRepository(s.dbPool, s.logger), s.logger)
	scanRepo := scans.NewRepository(s.dbPool, s.logger)
	limiter := ratelimit.NewService(
		subscription.NewRepository(s.dbPool, s.logger),
		scanRepo,
		ratelimit.Quotas{
			models.TierFree:    vcfg.FreeDailyScans,
			models.TierPremium: vcfg.PremiumDailyScans,
		},
		vcfg.Location,
		vcfg.DBTimeout,
		s.logger,
	)

	recorder := visits.NewRecorder(
		visits.NewRepository(s.dbPool, s.logger),
		catalogService,
		badges.NewEngine(s.dbPool, s.logger),
		s.logger,
	)
	if s.cfg.Minio.Endpoint != "" {
		store, err := photos.NewMinioStore(ctx, s.cfg.Minio, s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create photo store: %w", err)
		}
		recorder.WithPhotoStore(store)
	}
	if s.cfg.NATS.URL != "" {
		publisher, err := events.NewNATSPublisher(s.cfg.NATS.URL, s.cfg.NATS.Subject, s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		s.publisher = publisher
		recorder.WithPublisher(publisher)
	}

	workflow := verification.NewService(verification.Deps{
		RateLimiter: limiter,
		Locator:     locator.New(catalogService, imageOracle, keywords.NewExtractor(), vcfg.MaxCandidates, vcfg.MaxKeywords, s.logger),
		Oracle:      imageOracle,
		Audit:       scans.NewAuditLog(scanRepo, vcfg.Location, vcfg.PreviewLength, vcfg.DBTimeout, s.logger),
		Recorder:    recorder,
		Attractions: catalogService,
		Policy:      policy,
	}, vcfg, s.logger)

	return &routes.AppHandlers{
		Verification: verification.NewHandler(workflow, s.logger),
		Visits:       visits.NewHandler(recorder, s.logger),
	}, nil
}

// HTTPServer creates and configures the HTTP server
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              ":" + s.cfg.Server.Port,
		Handler:           s.router,
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Two sequential oracle calls in upload mode.
		WriteTimeout: 2*s.cfg.Verification.OracleTimeout + 10*time.Second,
	}
}

// Close closes all server resources
func (s *Server) Close() {
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.dbPool != nil {
		s.dbPool.Close()
	}
}
