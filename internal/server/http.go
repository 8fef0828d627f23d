package server

import (
	"sync/atomic"
	"time"

	"resumelens/internal/analysis"
	"resumelens/internal/config"
	"resumelens/internal/errors"
	"resumelens/internal/extractor"
	"resumelens/internal/formatters"
	"resumelens/internal/observability"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	AnalysisTimeout time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *LimiterManager

	// Logger
	Logger *errors.Logger

	analyzer atomic.Pointer[analysis.Analyzer]
	reloads  atomic.Int64
	fetcher  *extractor.RemoteFetcher
	registry *formatters.FormatterRegistry
	watcher  *ResourceWatcher
	om       *observability.ObservabilityManager
	certs    *CertificateManager

	// secretReader replaces the Vault client for certificate polling
	secretReader TLSSecretReader
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host            string
	Port            string
	Version         string
	TLSConfig       config.TLSConfig
	APIKeys         []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	AnalysisTimeout time.Duration
	MaxRequestSize  int64
	RateLimit       *config.RateLimitConfig

	// Analyzer serves requests until a resource reload replaces it
	Analyzer *analysis.Analyzer
	// Fetcher enables JSON requests carrying a resume URL; nil disables them
	Fetcher *extractor.RemoteFetcher
	// Registry renders reports; nil selects formatters.GlobalRegistry
	Registry *formatters.FormatterRegistry
}

// ServerConfigFromConfig builds a ServerConfig from the application configuration
func ServerConfigFromConfig(cfg *config.Config, version string) ServerConfig {
	rateLimit := cfg.Server.RateLimit
	return ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		Version:         version,
		TLSConfig:       cfg.Server.TLS,
		APIKeys:         cfg.Server.APIKeys,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		AnalysisTimeout: cfg.Analysis.Timeout,
		MaxRequestSize:  cfg.App.MaxFileSize,
		RateLimit:       &rateLimit,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *errors.Logger) *Server {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *LimiterManager
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(*cfg.RateLimit, logger)
	}

	registry := cfg.Registry
	if registry == nil {
		registry = formatters.GlobalRegistry
	}

	// Start replaces the no-op manager with the configured one
	om := observability.NewNoopManager("resumelens", appCfg)

	s := &Server{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Version:         cfg.Version,
		AppConfig:       appCfg,
		TLSConfig:       cfg.TLSConfig,
		APIKeys:         apiKeyMap,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		AnalysisTimeout: cfg.AnalysisTimeout,
		MaxRequestSize:  cfg.MaxRequestSize,
		RateLimit:       cfg.RateLimit,
		RateLimiter:     rateLimiter,
		Logger:          logger,
		fetcher:         cfg.Fetcher,
		registry:        registry,
		om:              om,
	}
	s.analyzer.Store(cfg.Analyzer)
	return s
}

// Analyzer returns the analyzer currently serving requests
func (s *Server) Analyzer() *analysis.Analyzer {
	return s.analyzer.Load()
}

// SwapAnalyzer installs a new analyzer. Requests already running keep the
// one they started with.
func (s *Server) SwapAnalyzer(a *analysis.Analyzer) {
	if a != nil {
		s.analyzer.Store(a)
	}
}
