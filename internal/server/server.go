package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"oceanwatch/internal/observability"
	"oceanwatch/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/go-playground/form/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

// ReportIngester is the ingestion boundary behind /api/reports.
type ReportIngester interface {
	CreateReport(ctx context.Context, payload types.ReportPayload, att *types.Attachment) (*types.IncidentReport, error)
	ListReports(ctx context.Context) ([]*types.IncidentReport, error)
	ReportByID(ctx context.Context, id string) (*types.IncidentReport, error)
}

// CognitoClient is the subset of the Cognito API used by /api/auth.
type CognitoClient interface {
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
}

type UserStore interface {
	Create(ctx context.Context, user *types.User) error
	UserByEmail(ctx context.Context, email string) (*types.User, error)
}

type Service struct {
	logger  *logrus.Logger
	config  *types.Config
	metrics *observability.Metrics

	ingest        ReportIngester
	cognitoClient CognitoClient
	users         UserStore

	// uploadRoot is served at /uploads when attachments live on local disk.
	uploadRoot string

	server *http.Server
}

type Option func(*Service)

// WithAuth enables the /api/auth routes.
func WithAuth(cognitoClient CognitoClient, users UserStore) Option {
	return func(s *Service) {
		s.cognitoClient = cognitoClient
		s.users = users
	}
}

// WithUploads serves files below root at /uploads.
func WithUploads(root string) Option {
	return func(s *Service) { s.uploadRoot = root }
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	metrics *observability.Metrics,
	ingest ReportIngester,
	opts ...Option,
) *Service {
	mux := flow.New()

	s := &Service{
		logger:  logger,
		config:  config,
		metrics: metrics,
		ingest:  ingest,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.ServerPort),
		Handler:           s.CORS(mux),
		ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	s.buildRouter(mux)

	return s
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", promhttp.Handler(), http.MethodGet)

	r.HandleFunc("/api/reports/upload", s.handleUploadReport, http.MethodPost)
	r.HandleFunc("/api/reports/get", s.handleListReports, http.MethodGet)
	r.HandleFunc("/api/reports/get/:id", s.handleGetReport, http.MethodGet)

	r.HandleFunc("/api/auth/register", s.handleRegister, http.MethodPost)
	r.HandleFunc("/api/auth/login", s.handleLogin, http.MethodPost)

	if s.uploadRoot != "" {
		r.Handle("/uploads/...", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadRoot))), http.MethodGet)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
