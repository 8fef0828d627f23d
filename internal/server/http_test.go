package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resumelens/internal/common"
	"resumelens/internal/config"
	"resumelens/internal/errors"
	"resumelens/internal/extractor"
	"resumelens/internal/formatters"
	"resumelens/internal/testutil"
	"resumelens/internal/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testResume = "Jane Doe jane.doe@example.com 555-123-4567 Python developer with Docker and React"

func newTestServer(t *testing.T, mutate func(cfg *config.Config, sc *ServerConfig)) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.Analysis.Tokenizer = "whitespace"

	sc := ServerConfigFromConfig(cfg, "test")
	if mutate != nil {
		mutate(cfg, &sc)
	}

	analyzer, err := common.BuildAnalyzer(cfg.Analysis, errors.NewNopLogger())
	require.NoError(t, err)
	sc.Analyzer = analyzer

	s := NewServer(cfg, sc, errors.NewNopLogger())
	t.Cleanup(func() {
		if s.RateLimiter != nil {
			s.RateLimiter.Close()
		}
	})
	return s
}

func newUploadRequest(t *testing.T, target string, doc []byte, jobDescription string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if doc != nil {
		part, err := writer.CreateFormFile(FormFieldResume, "resume.pdf")
		require.NoError(t, err)
		_, err = part.Write(doc)
		require.NoError(t, err)
	}
	if jobDescription != "" {
		require.NoError(t, writer.WriteField(FormFieldJobDescription, jobDescription))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAnalyzeEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	req := newUploadRequest(t, "/analyze?wordcloud=false", testutil.MinimalPDF(testResume), "Python and Kubernetes engineer")
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result types.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.ExtractionFailed)
	assert.Equal(t, "jane.doe@example.com", result.Email)
	assert.Equal(t, "555-123-4567", result.Phone)
	assert.Empty(t, result.WordCloud)
	assert.NotEmpty(t, result.Skills)

	require.NotNil(t, result.JobMatch)
	assert.Contains(t, result.JobMatch.Matching, "python")
	assert.Contains(t, result.JobMatch.Missing, "kubernetes")
}

func TestAnalyzeEndpointIncludesWordCloudByDefault(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, newUploadRequest(t, "/analyze", testutil.MinimalPDF(testResume), ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var result types.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, bytes.HasPrefix(result.WordCloud, []byte("\x89PNG")))
	assert.Nil(t, result.JobMatch)
}

func TestAnalyzeEndpointRejections(t *testing.T) {
	tests := []struct {
		name       string
		request    func(t *testing.T) *http.Request
		wantStatus int
		wantCode   string
	}{
		{
			name: "wrong method",
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodGet, "/analyze", nil)
			},
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name: "missing resume part",
			request: func(t *testing.T) *http.Request {
				return newUploadRequest(t, "/analyze", nil, "python")
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.ErrCodeInvalidRequest,
		},
		{
			name: "not a pdf",
			request: func(t *testing.T) *http.Request {
				return newUploadRequest(t, "/analyze", []byte("plain text resume"), "")
			},
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   errors.ErrCodeInvalidDocumentFormat,
		},
		{
			name: "unsupported content type",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("resume"))
				req.Header.Set("Content-Type", "text/plain")
				return req
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.ErrCodeInvalidRequest,
		},
		{
			name: "resume url without fetcher",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"resumeUrl":"http://example.com/cv.pdf"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.ErrCodeInvalidRequest,
		},
		{
			name: "invalid wordcloud flag",
			request: func(t *testing.T) *http.Request {
				return newUploadRequest(t, "/analyze?wordcloud=maybe", testutil.MinimalPDF(testResume), "")
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	s := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, tt.request(t))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestAnalyzeEndpointExtractionFailure(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, newUploadRequest(t, "/analyze?wordcloud=false", []byte("%PDF-1.4\nnot really a pdf"), ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var result types.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.ExtractionFailed)
	assert.True(t, strings.HasPrefix(result.Text, "Error extracting text: "))
	assert.Equal(t, types.NotFound, result.Email)
}

func TestAnalyzeEndpointTimeout(t *testing.T) {
	s := newTestServer(t, func(_ *config.Config, sc *ServerConfig) {
		sc.AnalysisTimeout = time.Nanosecond
	})

	rec := serve(s, newUploadRequest(t, "/analyze", testutil.MinimalPDF(testResume), ""))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, errors.ErrCodeNetworkTimeout, decodeError(t, rec).Code)
}

func TestAnalyzeEndpointResumeURL(t *testing.T) {
	doc := testutil.MinimalPDF(testResume)
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(doc)
	}))
	defer remote.Close()

	s := newTestServer(t, func(cfg *config.Config, sc *ServerConfig) {
		cfg.Analysis.Remote.Enabled = true
		sc.Fetcher = extractor.NewRemoteFetcher(cfg.Analysis.Remote, nil)
	})

	body := `{"resumeUrl":"` + remote.URL + `/cv.pdf","jobDescription":"python"}`
	req := httptest.NewRequest(http.MethodPost, "/analyze?wordcloud=false", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result types.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "jane.doe@example.com", result.Email)
	require.NotNil(t, result.JobMatch)
	assert.Equal(t, 100.0, result.JobMatch.Percentage)
}

func TestAnalyzeEndpointRemoteFailure(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer remote.Close()

	s := newTestServer(t, func(cfg *config.Config, sc *ServerConfig) {
		cfg.Analysis.Remote.Enabled = true
		sc.Fetcher = extractor.NewRemoteFetcher(cfg.Analysis.Remote, nil)
	})

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"resumeUrl":"`+remote.URL+`/cv.pdf"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(s, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, errors.ErrCodeRemoteFetchFailed, decodeError(t, rec).Code)
}

func TestRequestSizeLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config, sc *ServerConfig) {
		cfg.Analysis.Remote.Enabled = true
		sc.Fetcher = extractor.NewRemoteFetcher(cfg.Analysis.Remote, nil)
		sc.MaxRequestSize = 32
	})

	body := `{"resumeUrl":"http://example.com/` + strings.Repeat("a", 64) + `.pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(s, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestReportEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, newUploadRequest(t, "/report", testutil.MinimalPDF(testResume), "python"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ReportFileName)

	report := rec.Body.String()
	assert.True(t, strings.HasPrefix(report, formatters.ReportHeader+"\n"))
	assert.Contains(t, report, "- Email: jane.doe@example.com\n")
	assert.Contains(t, report, "Job Match: 100.0%\n")
}

func TestReportEndpointFormats(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, newUploadRequest(t, "/report?format=markdown", testutil.MinimalPDF(testResume), ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# Resume Analysis"))

	rec = serve(s, newUploadRequest(t, "/report?format=yaml", testutil.MinimalPDF(testResume), ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWordCloudEndpoint(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config, _ *ServerConfig) {
		// The endpoint renders even when analyses skip the image by default
		cfg.Analysis.WordCloud.Enabled = false
	})

	rec := serve(s, newUploadRequest(t, "/wordcloud", testutil.MinimalPDF(testResume), ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestSkillsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/skills", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var listing types.TaxonomyListing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.NotEmpty(t, listing.Categories)
	assert.Equal(t, "programming", listing.Categories[0].Name)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/skills?format=text", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Programming (")
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "test", health["version"])

	analysisInfo, ok := health["analysis"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "whitespace", analysisInfo["tokenizer"])
	assert.NotContains(t, health, "certificates")
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, map[string]any{"enabled": false}, stats["rate_limiting"])
	assert.Contains(t, stats, "analysis")
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, func(_ *config.Config, sc *ServerConfig) {
		sc.APIKeys = []string{"secret-key-123", ""}
	})

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{name: "missing key", wantStatus: http.StatusUnauthorized},
		{name: "invalid key", header: "X-API-Key", value: "wrong", wantStatus: http.StatusUnauthorized},
		{name: "x-api-key", header: "X-API-Key", value: "secret-key-123", wantStatus: http.StatusOK},
		{name: "bearer token", header: "Authorization", value: "Bearer secret-key-123", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/skills", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			assert.Equal(t, tt.wantStatus, serve(s, req).Code)
		})
	}

	// Health stays public
	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	assert.Len(t, s.APIKeys, 1)
}

func TestRequestIDMiddleware(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	id, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	inbound := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, inbound)
	assert.Equal(t, inbound, serve(s, req).Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", serve(s, req).Header().Get(RequestIDHeader))
}

func TestNewServerTracksAnalysesBeforeStart(t *testing.T) {
	s := newTestServer(t, nil)
	require.NotNil(t, s.om)
	assert.False(t, s.om.Enabled())

	rec := serve(s, newUploadRequest(t, "/analyze", testutil.MinimalPDF("Python"), ""))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSwapAnalyzer(t *testing.T) {
	s := newTestServer(t, nil)
	original := s.Analyzer()

	s.SwapAnalyzer(nil)
	assert.Same(t, original, s.Analyzer())

	cfg := config.Default()
	cfg.Analysis.Tokenizer = "whitespace"
	cfg.Analysis.TopN = 5
	replacement, err := common.BuildAnalyzer(cfg.Analysis, nil)
	require.NoError(t, err)

	s.SwapAnalyzer(replacement)
	assert.Equal(t, 5, s.Analyzer().TopN())
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "plain error", err: assert.AnError, want: http.StatusInternalServerError},
		{name: "validation", err: errors.NewValidationError(errors.ErrCodeInvalidRequest, "bad", nil), want: http.StatusBadRequest},
		{name: "not a pdf", err: errors.NewValidationError(errors.ErrCodeInvalidDocumentFormat, "bad", nil), want: http.StatusUnsupportedMediaType},
		{name: "too large", err: errors.NewValidationError(errRequestTooLarge, "big", nil), want: http.StatusRequestEntityTooLarge},
		{name: "timeout", err: errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "slow", nil), want: http.StatusGatewayTimeout},
		{name: "circuit open", err: errors.NewNetworkError(errors.ErrCodeCircuitOpen, "open", nil), want: http.StatusServiceUnavailable},
		{name: "remote failure", err: errors.NewNetworkError(errors.ErrCodeRemoteFetchFailed, "down", nil), want: http.StatusBadGateway},
		{name: "internal", err: errors.NewInternalError("BOOM", "boom", nil), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcdefgh****", maskAPIKey("abcdefghijkl"))
	assert.Equal(t, "api:****", maskRateLimitKey("api:key"))
	assert.Equal(t, "ip:10.0.0.1", maskRateLimitKey("ip:10.0.0.1"))
}
