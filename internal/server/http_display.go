package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
	s.displayAnalysisInfo()
	s.displayAutoReloadInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health     - Health check")
	fmt.Println("  GET  /stats      - Server statistics")
	fmt.Println("  GET  /skills     - Skill taxonomy (requires API key)")
	fmt.Println("  POST /analyze    - Analyze resume, JSON result (requires API key)")
	fmt.Println("  POST /report     - Analyze resume, text report (requires API key)")
	fmt.Println("  POST /wordcloud  - Resume word cloud PNG (requires API key)")
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to the analysis endpoints")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
	}
}

// displayAnalysisInfo shows the analysis timeout and optional features
func (s *Server) displayAnalysisInfo() {
	fmt.Printf("Analysis timeout: %s\n", s.AnalysisTimeout)
	if s.fetcher != nil {
		fmt.Println("Resume URLs: ENABLED (JSON body {\"resumeUrl\": ...})")
	}
	if s.watcher != nil {
		fmt.Printf("Resource reload: watching %v\n", s.watcher.GetWatchedFiles())
	}
}

// displayAutoReloadInfo shows how certificates are rotated
func (s *Server) displayAutoReloadInfo() {
	if s.certs == nil {
		return
	}
	reload := s.TLSConfig.AutoReload
	if !reload.Enabled {
		fmt.Println("Certificate auto-reload: DISABLED (restart to rotate certificates)")
		return
	}
	fmt.Println("Certificate auto-reload: ENABLED")
	if reload.FileWatcher.Enabled {
		fmt.Printf("  - File watching (debounce: %s)\n", reload.FileWatcher.DebounceDelay)
	}
	if reload.VaultWatcher.Enabled {
		fmt.Printf("  - Vault polling (interval: %s)\n", reload.VaultWatcher.PollInterval)
	}
}
