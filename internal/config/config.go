package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Tokenizer modes accepted by analysis.tokenizer
var validTokenizers = []string{"auto", "treebank", "whitespace"}

// Config holds all application configuration
// API Key Precedence Order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (RESUMELENS_SERVER_APIKEYS)
// 4. Default values - Lowest priority
type Config struct {
	Analysis      AnalysisConfig      `mapstructure:"analysis"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AnalysisConfig holds resume analysis configuration
type AnalysisConfig struct {
	TopN                int             `mapstructure:"topN"`                // Words kept in the frequency table
	ReportKeywords      int             `mapstructure:"reportKeywords"`      // Keywords listed in text reports
	KeywordDisplayLimit int             `mapstructure:"keywordDisplayLimit"` // Matching/missing keywords shown to humans
	TaxonomyFile        string          `mapstructure:"taxonomyFile"`        // YAML taxonomy, built-in when empty
	StopwordsFile       string          `mapstructure:"stopwordsFile"`       // One word per line, bundled list when empty
	Tokenizer           string          `mapstructure:"tokenizer"`           // auto, treebank, whitespace
	Timeout             time.Duration   `mapstructure:"timeout"`             // Per-analysis deadline imposed by callers
	Workers             int             `mapstructure:"workers"`             // Parallel analyses in batch mode
	WatchResources      bool            `mapstructure:"watchResources"`      // Reload taxonomy/stopwords on change (server)
	WordCloud           WordCloudConfig `mapstructure:"wordCloud"`
	Remote              RemoteConfig    `mapstructure:"remote"`
}

// WordCloudConfig holds word cloud rendering configuration
type WordCloudConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Width       int     `mapstructure:"width"`
	Height      int     `mapstructure:"height"`
	MaxWords    int     `mapstructure:"maxWords"`
	FontFile    string  `mapstructure:"fontFile"`
	FontMaxSize float64 `mapstructure:"fontMaxSize"`
	FontMinSize float64 `mapstructure:"fontMinSize"`
}

// RemoteConfig holds configuration for fetching resumes by URL
type RemoteConfig struct {
	Enabled        bool                 `mapstructure:"enabled"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	MaxBytes       int64                `mapstructure:"maxBytes"`
	AuthToken      string               `mapstructure:"authToken"`    // Bearer token sent to the document host
	AllowedHosts   []string             `mapstructure:"allowedHosts"` // Empty allows any host
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	TLS TLSConfig `mapstructure:"tls"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode     string `mapstructure:"mode"`     // TLS mode: "disabled", "server", "mutual"
	CertFile string `mapstructure:"certFile"` // Server certificate file (PEM)
	KeyFile  string `mapstructure:"keyFile"`  // Server private key file (PEM)
	CAFile   string `mapstructure:"caFile"`   // CA for client cert verification (PEM, mutual mode)

	// Certificate content (used when loaded from Vault instead of files)
	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`
	CAContent   string `mapstructure:"caContent"`

	MinVersion       string `mapstructure:"minVersion"`       // "1.2", "1.3"
	ClientAuthPolicy string `mapstructure:"clientAuthPolicy"` // "require", "request", "verify"

	AutoReload AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig holds configuration for certificate rotation without restart
type AutoReloadConfig struct {
	Enabled      bool               `mapstructure:"enabled"`
	FileWatcher  FileWatcherConfig  `mapstructure:"fileWatcher"`  // Reload when cert, key or CA files change
	VaultWatcher VaultWatcherConfig `mapstructure:"vaultWatcher"` // Reload when the Vault TLS secret gets a new version
}

// FileWatcherConfig holds configuration for file-based certificate watching
type FileWatcherConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// VaultWatcherConfig holds configuration for polling the TLS secret
// (vault.secrets.tlsCerts)
type VaultWatcherConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RequestsPerMin int           `mapstructure:"requestsPerMin"`
	BurstCapacity  int           `mapstructure:"burstCapacity"`
	ByIP           bool          `mapstructure:"byIP"`
	ByAPIKey       bool          `mapstructure:"byAPIKey"`
	Window         time.Duration `mapstructure:"window"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	Analysis       AnalysisMetricsConfig       `mapstructure:"analysis"`
	Infrastructure InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// AnalysisMetricsConfig holds analysis pipeline metrics configuration
type AnalysisMetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	TrackDuration bool `mapstructure:"trackDuration"`
	TrackJobMatch bool `mapstructure:"trackJobMatch"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled              bool `mapstructure:"enabled"`
	TrackRateLimits      bool `mapstructure:"trackRateLimits"`
	TrackResourceReloads bool `mapstructure:"trackResourceReloads"`
	TrackCertReloads     bool `mapstructure:"trackCertReloads"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	return load(viper.New())
}

// LoadConfigFile loads configuration from an explicit file path
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	setDefaults(v)

	v.SetEnvPrefix("RESUMELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Println("[CONFIG] Configured environment variable handling with prefix 'RESUMELENS'")

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/resumelens/")
		v.AddConfigPath("$HOME/.resumelens")
		v.AddConfigPath(".")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Default returns the configuration built from defaults only
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("default configuration does not decode: %v", err))
	}
	config.applyFallbacks()
	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis configuration error: %w", err)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.App.MaxFileSize <= 0 {
		return fmt.Errorf("app maxFileSize must be positive")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

// Validate checks the analysis section
func (a AnalysisConfig) Validate() error {
	if a.TopN <= 0 {
		return fmt.Errorf("topN must be positive, got %d", a.TopN)
	}
	if a.ReportKeywords <= 0 {
		return fmt.Errorf("reportKeywords must be positive, got %d", a.ReportKeywords)
	}
	if a.KeywordDisplayLimit <= 0 {
		return fmt.Errorf("keywordDisplayLimit must be positive, got %d", a.KeywordDisplayLimit)
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if a.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", a.Workers)
	}

	valid := false
	for _, mode := range validTokenizers {
		if a.Tokenizer == mode {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid tokenizer: %s (must be one of %s)", a.Tokenizer, strings.Join(validTokenizers, ", "))
	}

	wc := a.WordCloud
	if wc.Width <= 0 || wc.Height <= 0 {
		return fmt.Errorf("word cloud dimensions must be positive, got %dx%d", wc.Width, wc.Height)
	}
	if wc.MaxWords <= 0 {
		return fmt.Errorf("word cloud maxWords must be positive, got %d", wc.MaxWords)
	}
	if wc.FontMinSize <= 0 || wc.FontMaxSize < wc.FontMinSize {
		return fmt.Errorf("word cloud font sizes are invalid: min %.1f, max %.1f", wc.FontMinSize, wc.FontMaxSize)
	}

	if a.Remote.Enabled {
		if a.Remote.Timeout <= 0 {
			return fmt.Errorf("remote timeout must be positive")
		}
		if a.Remote.MaxBytes <= 0 {
			return fmt.Errorf("remote maxBytes must be positive")
		}
		cb := a.Remote.CircuitBreaker
		if cb.Enabled && (cb.FailureThreshold <= 0 || cb.FailureThreshold > 1) {
			return fmt.Errorf("remote circuit breaker failureThreshold must be in (0, 1], got %.2f", cb.FailureThreshold)
		}
	}

	return nil
}

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	// Parse API keys from environment variable if not set in config
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("RESUMELENS_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}

	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}

	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}

	if c.Observability.ServiceInstance == "" {
		if hostname, err := os.Hostname(); err == nil {
			c.Observability.ServiceInstance = fmt.Sprintf("%s-%s", c.Observability.ServiceName, hostname)
		} else {
			c.Observability.ServiceInstance = fmt.Sprintf("%s-1", c.Observability.ServiceName)
		}
	}

	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"RESUMELENS_ANALYSIS_TOPN",
		"RESUMELENS_ANALYSIS_TAXONOMYFILE",
		"RESUMELENS_ANALYSIS_STOPWORDSFILE",
		"RESUMELENS_ANALYSIS_TOKENIZER",
		"RESUMELENS_SERVER_PORT",
		"RESUMELENS_SERVER_HOST",
		"RESUMELENS_SERVER_APIKEYS",
		"RESUMELENS_APP_LOGLEVEL",
		"RESUMELENS_VAULT_ENABLED",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if strings.Contains(strings.ToLower(envVar), "key") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Top N: %d", c.Analysis.TopN)
	log.Printf("[CONFIG] Tokenizer: %s", c.Analysis.Tokenizer)
	if c.Analysis.TaxonomyFile != "" {
		log.Printf("[CONFIG] Taxonomy file: %s", c.Analysis.TaxonomyFile)
	} else {
		log.Println("[CONFIG] Taxonomy: built-in")
	}
	if c.Analysis.StopwordsFile != "" {
		log.Printf("[CONFIG] Stopwords file: %s", c.Analysis.StopwordsFile)
	} else {
		log.Println("[CONFIG] Stopwords: bundled")
	}
	log.Printf("[CONFIG] Word cloud enabled: %t", c.Analysis.WordCloud.Enabled)
	log.Printf("[CONFIG] Remote fetch enabled: %t", c.Analysis.Remote.Enabled)
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] API keys configured: %d", len(c.Server.APIKeys))
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}
