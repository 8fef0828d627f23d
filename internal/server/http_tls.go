package server

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"time"

	"resumelens/internal/config"
)

// Certificate expiry thresholds reported by /health
const (
	certCriticalThreshold = 24 * time.Hour
	certWarningThreshold  = 7 * 24 * time.Hour
)

// certificateState remembers the served certificate for health reporting
type certificateState struct {
	notAfter time.Time
	subject  string
}

// configureTLS sets up TLS configuration based on the mode
func (s *Server) configureTLS(httpServer *http.Server) error {
	addr := httpServer.Addr

	switch s.TLSConfig.Mode {
	case config.TLSModeServer:
		fmt.Printf("Starting server with HTTPS (server-only TLS) on https://%s\n", addr)
		fmt.Println("TLS mode: Server-only (no client certificates required)")
	case config.TLSModeMutual:
		fmt.Printf("Starting server with mTLS (mutual TLS) on https://%s\n", addr)
		fmt.Println("TLS mode: Mutual (client certificates required)")
	case config.TLSModeDisabled, "":
		fmt.Printf("Starting server on http://%s\n", addr)
		fmt.Println("TLS mode: Disabled (HTTP only)")
		return nil
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	certs := NewCertificateManager(s.TLSConfig, s.om, s.Logger)
	if err := certs.Load(); err != nil {
		return fmt.Errorf("failed to set up TLS: %w", err)
	}

	if err := s.startCertificateReload(certs); err != nil {
		_ = certs.Stop()
		return err
	}

	s.certs = certs
	httpServer.TLSConfig = certs.ServerTLSConfig()
	return nil
}

// startCertificateReload starts the watchers enabled under tls.autoReload
func (s *Server) startCertificateReload(certs *CertificateManager) error {
	reload := s.TLSConfig.AutoReload
	if !reload.Enabled {
		return nil
	}

	if reload.FileWatcher.Enabled {
		if err := certs.StartFileWatcher(reload.FileWatcher.DebounceDelay); err != nil {
			return err
		}
	}

	if reload.VaultWatcher.Enabled {
		client, err := s.vaultSecretReader()
		if err != nil {
			return fmt.Errorf("failed to start vault certificate watcher: %w", err)
		}
		if err := certs.StartVaultWatcher(client, s.AppConfig.Vault.Secrets.TLSCerts, reload.VaultWatcher.PollInterval); err != nil {
			return err
		}
	}
	return nil
}

// vaultSecretReader returns the injected reader or a client for the
// configured Vault
func (s *Server) vaultSecretReader() (TLSSecretReader, error) {
	if s.secretReader != nil {
		return s.secretReader, nil
	}
	client, err := config.NewVaultClient(s.AppConfig.Vault, s.Logger)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("vault is disabled")
	}
	return client, nil
}

func tlsVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}

func newCertificateState(cert tls.Certificate) *certificateState {
	leaf := cert.Leaf
	if leaf == nil && len(cert.Certificate) > 0 {
		parsed, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil
		}
		leaf = parsed
	}
	if leaf == nil {
		return nil
	}
	return &certificateState{notAfter: leaf.NotAfter, subject: leaf.Subject.String()}
}

// checkCertificateHealth reports the expiry of the served certificate, or
// nil when TLS is off
func (s *Server) checkCertificateHealth() map[string]any {
	if s.certs == nil {
		return nil
	}
	return s.certs.Status(time.Now())
}

func (c *certificateState) status(now time.Time) map[string]any {
	timeToExpiry := c.notAfter.Sub(now)

	certStatus := map[string]any{
		"subject":              c.subject,
		"not_after":            c.notAfter.UTC().Format(time.RFC3339),
		"time_to_expiry_hours": int(timeToExpiry.Hours()),
	}

	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"] = false
		certStatus["status"] = "expired"
	case timeToExpiry <= certCriticalThreshold:
		certStatus["healthy"] = false
		certStatus["status"] = "critical"
	case timeToExpiry <= certWarningThreshold:
		certStatus["healthy"] = true
		certStatus["status"] = "warning"
	default:
		certStatus["healthy"] = true
		certStatus["status"] = "ok"
	}

	return certStatus
}
