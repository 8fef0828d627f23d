package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Analysis Configuration
	v.SetDefault("analysis.topN", 20)
	v.SetDefault("analysis.reportKeywords", 10)
	v.SetDefault("analysis.keywordDisplayLimit", 20)
	v.SetDefault("analysis.taxonomyFile", "")
	v.SetDefault("analysis.stopwordsFile", "")
	v.SetDefault("analysis.tokenizer", "auto")
	v.SetDefault("analysis.timeout", 30*time.Second)
	v.SetDefault("analysis.workers", 4)
	v.SetDefault("analysis.watchResources", false)

	// Word cloud defaults (800x400, 100 words)
	v.SetDefault("analysis.wordCloud.enabled", true)
	v.SetDefault("analysis.wordCloud.width", 800)
	v.SetDefault("analysis.wordCloud.height", 400)
	v.SetDefault("analysis.wordCloud.maxWords", 100)
	v.SetDefault("analysis.wordCloud.fontFile", "")
	v.SetDefault("analysis.wordCloud.fontMaxSize", 72.0)
	v.SetDefault("analysis.wordCloud.fontMinSize", 10.0)

	// Remote resume fetching
	v.SetDefault("analysis.remote.enabled", false)
	v.SetDefault("analysis.remote.timeout", 15*time.Second)
	v.SetDefault("analysis.remote.maxBytes", 10*1024*1024)
	v.SetDefault("analysis.remote.authToken", "")
	v.SetDefault("analysis.remote.allowedHosts", []string{})
	v.SetDefault("analysis.remote.circuitBreaker.enabled", true)
	v.SetDefault("analysis.remote.circuitBreaker.maxRequests", 3)
	v.SetDefault("analysis.remote.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("analysis.remote.circuitBreaker.timeout", 30*time.Second)
	v.SetDefault("analysis.remote.circuitBreaker.minRequests", 3)
	v.SetDefault("analysis.remote.circuitBreaker.failureThreshold", 0.6)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 60*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)

	// TLS Configuration defaults
	v.SetDefault("server.tls.mode", "disabled") // disabled, server, mutual
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.caFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.tls.clientAuthPolicy", "require")

	// Certificate rotation defaults
	v.SetDefault("server.tls.autoReload.enabled", false)
	v.SetDefault("server.tls.autoReload.fileWatcher.enabled", true)
	v.SetDefault("server.tls.autoReload.fileWatcher.debounceDelay", time.Second)
	v.SetDefault("server.tls.autoReload.vaultWatcher.enabled", false)
	v.SetDefault("server.tls.autoReload.vaultWatcher.pollInterval", 5*time.Minute)

	// API Authentication defaults
	v.SetDefault("server.apiKeys", []string{})

	// Rate limiting defaults
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 30)
	v.SetDefault("server.rateLimit.burstCapacity", 5)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 10*1024*1024) // 10MB, PDFs are larger than text files

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.remoteAuth", "")
	v.SetDefault("vault.secrets.tlsCerts", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.serviceName", "resumelens")
	v.SetDefault("observability.serviceVersion", "")  // Falls back to the app version
	v.SetDefault("observability.serviceInstance", "") // Derived from hostname when empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	v.SetDefault("observability.customMetrics.analysis.enabled", true)
	v.SetDefault("observability.customMetrics.analysis.trackDuration", true)
	v.SetDefault("observability.customMetrics.analysis.trackJobMatch", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackResourceReloads", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackCertReloads", true)

	v.SetDefault("observability.console.prettyPrint", true)

	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
