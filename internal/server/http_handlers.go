package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"resumelens/internal/common"
	"resumelens/internal/errors"
)

// healthHandler reports the state of the analyzer, the remote fetcher and
// the TLS certificate
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	response := map[string]any{
		"status":  "healthy",
		"service": "resumelens",
		"version": s.Version,
	}
	status := http.StatusOK

	analyzer := s.Analyzer()
	if analyzer == nil {
		response["status"] = "unhealthy"
		response["analysis"] = map[string]any{"available": false}
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	res := analyzer.Resources()
	response["analysis"] = map[string]any{
		"available":       true,
		"tokenizer":       res.Tokenizer.Name(),
		"stopword_source": res.StopwordSource,
		"degraded":        res.Degraded,
		"categories":      analyzer.Taxonomy().Len(),
	}
	// Fallback resources still produce results
	if res.Degraded {
		response["status"] = "degraded"
	}

	if s.fetcher != nil {
		response["remote_fetch"] = s.fetcher.Stats()
		if !s.fetcher.IsHealthy() {
			response["status"] = "degraded"
		}
	}

	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if healthy, ok := certStatus["healthy"].(bool); ok && !healthy {
			response["status"] = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, response)
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	response := map[string]any{
		"service": "resumelens",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"analysis_timeout":       s.AnalysisTimeout.String(),
		},
	}

	if analyzer := s.Analyzer(); analyzer != nil {
		response["analysis"] = map[string]any{
			"top_n":            analyzer.TopN(),
			"categories":       analyzer.Taxonomy().Len(),
			"resource_reloads": s.reloads.Load(),
		}
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.fetcher != nil {
		response["remote_fetch"] = s.fetcher.Stats()
	}

	if s.watcher != nil {
		response["resource_watcher"] = map[string]any{
			"running":       s.watcher.IsRunning(),
			"watched_files": s.watcher.GetWatchedFiles(),
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// skillsHandler lists the active skill taxonomy, as JSON unless ?format= says otherwise
func (s *Server) skillsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	format, err := common.ResolveOutputFormat(r.URL.Query().Get("format"), "json", s.AppConfig.App.SupportedFormats)
	if err != nil {
		writeErrorResponse(w, r, "Unsupported format", err.Error(), http.StatusBadRequest)
		return
	}

	analyzer := s.Analyzer()
	if analyzer == nil {
		writeErrorResponse(w, r, "Analyzer unavailable", "no analyzer is loaded", http.StatusServiceUnavailable)
		return
	}

	output, err := s.registry.Format(analyzer.Taxonomy().Listing(), format)
	if err != nil {
		writeErrorResponse(w, r, "Failed to render taxonomy", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeForFormat(format))
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, output); err != nil {
		s.Logger.LogError(err, "Failed to write taxonomy response")
	}
}

// requireMethod answers 405 unless the request uses method
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeErrorResponse(w, r, "Method not allowed", fmt.Sprintf("use %s", method), http.StatusMethodNotAllowed)
	return false
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return bodyReadError(err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to parse JSON body", err)
	}

	return nil
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, r *http.Request, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:     error,
		Message:   message,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
