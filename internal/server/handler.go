package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"resumelens/internal/analysis"
	"resumelens/internal/common"
	"resumelens/internal/errors"
	"resumelens/internal/extractor"
	"resumelens/internal/types"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Form field names of multipart analysis requests
const (
	FormFieldResume         = "resume"
	FormFieldJobDescription = "jobDescription"
)

// ReportFileName is the download name of text reports
const ReportFileName = "resume_analysis_report.txt"

// Analysis input sources, used as span and metric attributes
const (
	sourceUpload = "upload"
	sourceURL    = "url"
)

const defaultMultipartMemory = 32 << 20

// analysisInput is a resume document and optional job description taken from a request
type analysisInput struct {
	Document       []byte
	JobDescription string
	Source         string
}

// analyzeHandler returns the full AnalysisResult as JSON
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var opts []analysis.AnalyzeOption
	if wc := r.URL.Query().Get("wordcloud"); wc != "" {
		include, err := strconv.ParseBool(wc)
		if err != nil {
			writeErrorResponse(w, r, "Invalid query parameter", "wordcloud must be true or false", http.StatusBadRequest)
			return
		}
		if include {
			opts = append(opts, analysis.IncludeWordCloud())
		} else {
			opts = append(opts, analysis.SkipWordCloud())
		}
	}

	result, ok := s.analyzeRequest(w, r, opts...)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// reportHandler returns a rendered report, plain text unless ?format= says otherwise
func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	format, err := common.ResolveOutputFormat(r.URL.Query().Get("format"), "text", s.AppConfig.App.SupportedFormats)
	if err != nil {
		writeErrorResponse(w, r, "Unsupported report format", err.Error(), http.StatusBadRequest)
		return
	}

	result, ok := s.analyzeRequest(w, r, analysis.SkipWordCloud())
	if !ok {
		return
	}

	report, err := s.registry.Format(result, format)
	if err != nil {
		writeErrorResponse(w, r, "Failed to render report", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeForFormat(format))
	if format == "text" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ReportFileName))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, report); err != nil {
		s.Logger.LogError(err, "Failed to write report response")
	}
}

// wordCloudHandler returns the word cloud PNG of a resume
func (s *Server) wordCloudHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	result, ok := s.analyzeRequest(w, r, analysis.IncludeWordCloud())
	if !ok {
		return
	}
	if len(result.WordCloud) == 0 {
		writeErrorResponse(w, r, "Word cloud unavailable", "the word cloud could not be rendered", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(result.WordCloud)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.WordCloud); err != nil {
		s.Logger.LogError(err, "Failed to write word cloud response")
	}
}

// analyzeRequest reads the input, runs the analysis under the configured
// deadline and writes an error response on failure
func (s *Server) analyzeRequest(w http.ResponseWriter, r *http.Request, opts ...analysis.AnalyzeOption) (*types.AnalysisResult, bool) {
	ctx := r.Context()
	requestID := RequestIDFromContext(ctx)

	input, err := s.readAnalysisInput(ctx, r)
	if err != nil {
		s.Logger.LogError(err, "Rejected analysis request",
			"endpoint", r.URL.Path,
			"request_id", requestID)
		writeAppError(w, r, err)
		return nil, false
	}

	result, err := s.om.TrackAnalysis(ctx, input.Source, func(ctx context.Context) (*types.AnalysisResult, error) {
		oteltrace.SpanFromContext(ctx).SetAttributes(input.spanAttributes()...)
		if s.AnalysisTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.AnalysisTimeout)
			defer cancel()
		}
		return common.AnalyzeWithContext(ctx, s.Analyzer(), input.Document, input.JobDescription, opts...)
	})
	if err != nil {
		s.Logger.LogError(err, "Analysis failed",
			"endpoint", r.URL.Path,
			"request_id", requestID)
		writeAppError(w, r, err)
		return nil, false
	}

	if result.ExtractionFailed {
		s.Logger.Warn("Resume text could not be extracted",
			"request_id", requestID,
			"source", input.Source,
			"bytes", len(input.Document))
	}

	s.Logger.Info("Resume analyzed",
		"endpoint", r.URL.Path,
		"request_id", requestID,
		"source", input.Source,
		"skills", result.SkillCount(),
		"job_match", result.JobMatch != nil)

	return result, true
}

// readAnalysisInput accepts multipart uploads, and JSON resume URLs when a
// remote fetcher is configured
func (s *Server) readAnalysisInput(ctx context.Context, r *http.Request) (*analysisInput, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"content-type must be multipart/form-data or application/json", err)
	}

	var input *analysisInput
	switch mediaType {
	case "multipart/form-data":
		input, err = s.readMultipartInput(r)
	case "application/json":
		input, err = s.readRemoteInput(ctx, r)
	default:
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("unsupported content-type %s", mediaType), nil)
	}
	if err != nil {
		return nil, err
	}

	if !extractor.IsPDF(input.Document) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidDocumentFormat,
			"resume must be a PDF document", nil).
			WithContext("bytes", len(input.Document))
	}
	return input, nil
}

func (s *Server) readMultipartInput(r *http.Request) (*analysisInput, error) {
	if err := r.ParseMultipartForm(defaultMultipartMemory); err != nil {
		return nil, bodyReadError(err)
	}

	file, header, err := r.FormFile(FormFieldResume)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("multipart field %q with the resume file is required", FormFieldResume), err)
	}
	defer func() { _ = file.Close() }()

	doc, err := io.ReadAll(file)
	if err != nil {
		return nil, bodyReadError(err)
	}
	if len(doc) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeEmptyDocument,
			"uploaded resume is empty", nil).
			WithContext("filename", header.Filename)
	}

	return &analysisInput{
		Document:       doc,
		JobDescription: r.FormValue(FormFieldJobDescription),
		Source:         sourceUpload,
	}, nil
}

func (s *Server) readRemoteInput(ctx context.Context, r *http.Request) (*analysisInput, error) {
	if s.fetcher == nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"resume URLs are not accepted by this server, upload the file as multipart/form-data", nil)
	}

	var req types.AnalyzeRequest
	if err := parseJSONRequest(r, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ResumeURL) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"resumeUrl field is required", nil)
	}

	doc, err := s.fetcher.Fetch(ctx, req.ResumeURL)
	if err != nil {
		return nil, err
	}

	return &analysisInput{
		Document:       doc,
		JobDescription: req.JobDescription,
		Source:         sourceURL,
	}, nil
}

// bodyReadError classifies failures while reading the request body
func bodyReadError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		return errors.NewValidationError(errRequestTooLarge,
			fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
	}
	return errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to read request body", err)
}

// errRequestTooLarge marks bodies rejected by the size limit
const errRequestTooLarge = "REQUEST_TOO_LARGE"

// statusForError maps an error to its HTTP status
func statusForError(err error) int {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case errRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.ErrCodeInvalidDocumentFormat:
		return http.StatusUnsupportedMediaType
	case errors.ErrCodeNetworkTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeCircuitOpen:
		return http.StatusServiceUnavailable
	}

	switch appErr.Type {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError writes err using the status it maps to
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)

	message := err.Error()
	code := ""
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		message = appErr.Message
		code = appErr.Code
	}

	writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

func contentTypeForFormat(format string) string {
	switch format {
	case "json":
		return "application/json"
	case "markdown":
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// spanAttributes describes an analysis input for tracing
func (in *analysisInput) spanAttributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("input.source", in.Source),
		attribute.Int("input.bytes", len(in.Document)),
		attribute.Bool("input.job_description", analysis.HasJobDescription(in.JobDescription)),
	}
}
