package extractor

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"resumelens/internal/config"
	"resumelens/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// maxRedirects is the number of redirects followed for one fetch
const maxRedirects = 5

// RemoteFetcher downloads resume documents by URL behind a circuit breaker
type RemoteFetcher struct {
	client       *http.Client
	cb           *gobreaker.CircuitBreaker[[]byte]
	maxBytes     int64
	authToken    string
	allowedHosts []string
	logger       *errors.Logger
}

// NewRemoteFetcher creates a fetcher from the remote configuration. The
// circuit breaker is omitted when disabled in cfg.
func NewRemoteFetcher(cfg config.RemoteConfig, logger *errors.Logger) *RemoteFetcher {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	f := &RemoteFetcher{
		maxBytes:     cfg.MaxBytes,
		authToken:    cfg.AuthToken,
		allowedHosts: cfg.AllowedHosts,
		logger:       logger,
	}
	f.client = &http.Client{Timeout: cfg.Timeout, CheckRedirect: f.checkRedirect}

	if cfg.CircuitBreaker.Enabled {
		cbCfg := cfg.CircuitBreaker
		f.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "remote-resume-fetch",
			MaxRequests: cbCfg.MaxRequests,
			Interval:    cbCfg.Interval,
			Timeout:     cbCfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= cbCfg.MinRequests &&
					failureRatio >= cbCfg.FailureThreshold
			},
			IsSuccessful: func(err error) bool {
				// Client-side rejections say nothing about the remote host's health
				return err == nil || errors.IsType(err, errors.ErrorTypeValidation)
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Info("Circuit breaker state changed",
					"name", name,
					"from", from.String(),
					"to", to.String(),
					"failure_threshold", cbCfg.FailureThreshold)
			},
		})
	}

	return f
}

// Fetch downloads the document at rawURL. Bodies larger than the configured
// limit are rejected.
func (f *RemoteFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	target, err := f.validateURL(rawURL)
	if err != nil {
		return nil, err
	}

	if f.cb == nil {
		return f.fetch(ctx, target)
	}

	data, err := f.cb.Execute(func() ([]byte, error) {
		return f.fetch(ctx, target)
	})
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.NewNetworkError(errors.ErrCodeCircuitOpen,
			"remote document host is unavailable, try again later", err).
			WithContext("host", target.Host)
	}
	return data, err
}

// Stats returns circuit breaker statistics
func (f *RemoteFetcher) Stats() map[string]any {
	if f.cb == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    f.cb.Name(),
		"state":   f.cb.State().String(),
		"counts":  f.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy reports whether the circuit is closed (or there is no breaker)
func (f *RemoteFetcher) IsHealthy() bool {
	return f.cb == nil || f.cb.State() == gobreaker.StateClosed
}

func (f *RemoteFetcher) validateURL(rawURL string) (*url.URL, error) {
	target, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || target.Host == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid resume URL: %q", rawURL), err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("unsupported URL scheme: %s", target.Scheme), nil)
	}
	if len(f.allowedHosts) > 0 && !slices.Contains(f.allowedHosts, target.Hostname()) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("host not allowed: %s", target.Hostname()), nil)
	}
	return target, nil
}

// checkRedirect applies the URL rules to every redirect target
func (f *RemoteFetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("stopped after %d redirects", maxRedirects), nil)
	}
	if _, err := f.validateURL(req.URL.String()); err != nil {
		f.logger.Warn("Rejected remote resume redirect",
			"from", via[len(via)-1].URL.Host,
			"to", req.URL.Host)
		return err
	}
	return nil
}

func (f *RemoteFetcher) fetch(ctx context.Context, target *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeRemoteFetchFailed, "cannot build request", err)
	}
	req.Header.Set("Accept", "application/pdf")
	if f.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+f.authToken)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			return nil, appErr
		}
		code := errors.ErrCodeRemoteFetchFailed
		if ctx.Err() != nil || isTimeout(err) {
			code = errors.ErrCodeNetworkTimeout
		}
		return nil, errors.NewNetworkError(code,
			fmt.Sprintf("failed to fetch resume from %s", target.Host), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewNetworkError(errors.ErrCodeRemoteFetchFailed,
			fmt.Sprintf("failed to download resume: status code %d", resp.StatusCode), nil).
			WithContext("host", target.Host)
	}

	if resp.ContentLength > f.maxBytes {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("remote document exceeds %d bytes", f.maxBytes), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeRemoteFetchFailed,
			"failed to read remote document", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("remote document exceeds %d bytes", f.maxBytes), nil)
	}

	f.logger.Debug("Remote resume fetched", "host", target.Host, "bytes", len(data))
	return data, nil
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return stderrors.As(err, &timeout) && timeout.Timeout()
}
